package transient

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/descriptor"
	"github.com/vkngwrapper/transient/fence"
	"github.com/vkngwrapper/transient/linear"
	"github.com/vkngwrapper/transient/memutils"
	"golang.org/x/exp/slog"
)

// AllocatorContext owns the shared state of the transient allocators: one PageManager for each
// kind of page and one HeapPool for each kind of descriptor. It is created once and shared by
// every CommandContext.
type AllocatorContext struct {
	logger      *slog.Logger
	createFlags CreateFlags

	fence      fence.CompletionFence
	isComplete fence.Predicate

	pageManagers [backend.PageKindCount]*linear.PageManager
	heapPools    [backend.DescriptorKindCount]*descriptor.HeapPool
}

// HeapStatistics summarizes the shader-visible heaps of one descriptor kind
type HeapStatistics struct {
	HeapCount        int
	RetiredHeapCount int
	Capacity         int
}

// ContextStatistics summarizes everything an AllocatorContext owns
type ContextStatistics struct {
	PageKinds       [backend.PageKindCount]memutils.DetailedStatistics
	DescriptorKinds [backend.DescriptorKindCount]HeapStatistics
	Total           memutils.DetailedStatistics
}

// Flags are the CreateFlags the context was created with
func (c *AllocatorContext) Flags() CreateFlags { return c.createFlags }

// Fence is the completion fence supplied at creation
func (c *AllocatorContext) Fence() fence.CompletionFence { return c.fence }

// CompletionPredicate is the predicate the context uses to decide whether retired pages and
// heaps may be reused
func (c *AllocatorContext) CompletionPredicate() fence.Predicate { return c.isComplete }

// PageManager returns the shared PageManager for kind, or nil if kind is not a valid page kind
func (c *AllocatorContext) PageManager(kind backend.PageKind) *linear.PageManager {
	if kind >= backend.PageKindCount {
		return nil
	}
	return c.pageManagers[kind]
}

// HeapPool returns the shared HeapPool for kind, or nil if kind is not a valid descriptor kind
func (c *AllocatorContext) HeapPool(kind backend.DescriptorKind) *descriptor.HeapPool {
	if kind >= backend.DescriptorKindCount {
		return nil
	}
	return c.heapPools[kind]
}

// NewLinearAllocator creates a LinearAllocator that takes pages of kind from this context
func (c *AllocatorContext) NewLinearAllocator(kind backend.PageKind) (*linear.LinearAllocator, error) {
	manager := c.PageManager(kind)
	if manager == nil {
		return nil, errors.Newf("attempted to create a linear allocator of unknown page kind %d", kind)
	}

	return linear.NewLinearAllocator(c.logger, manager), nil
}

// NewDynamicDescriptorHeap creates a DynamicDescriptorHeap that takes shader-visible heaps of
// kind from this context
func (c *AllocatorContext) NewDynamicDescriptorHeap(kind backend.DescriptorKind) (*descriptor.DynamicDescriptorHeap, error) {
	pool := c.HeapPool(kind)
	if pool == nil {
		return nil, errors.Newf("attempted to create a dynamic descriptor heap of unknown descriptor kind %d", kind)
	}

	return descriptor.NewDynamicDescriptorHeap(c.logger, pool, c.isComplete), nil
}

// UpdateAvailablePages reclaims every retired page whose fence has completed, across all page
// kinds. It returns the number of pages reclaimed.
func (c *AllocatorContext) UpdateAvailablePages() (int, error) {
	c.logger.Debug("AllocatorContext::UpdateAvailablePages")

	var err error
	reclaimed := 0
	for _, manager := range c.pageManagers {
		count, updateErr := manager.UpdateAvailablePages(c.isComplete)
		reclaimed += count
		err = errors.CombineErrors(err, updateErr)
	}

	return reclaimed, err
}

// CalculateStatistics populates stats with the current state of every page manager and heap
// pool
func (c *AllocatorContext) CalculateStatistics(stats *ContextStatistics) {
	stats.Total.Clear()

	for kind, manager := range c.pageManagers {
		stats.PageKinds[kind].Clear()
		manager.AddDetailedStatistics(&stats.PageKinds[kind])
		stats.Total.AddDetailedStatistics(&stats.PageKinds[kind])
	}

	for kind, pool := range c.heapPools {
		stats.DescriptorKinds[kind] = HeapStatistics{
			HeapCount:        pool.HeapCount(),
			RetiredHeapCount: pool.RetiredHeapCount(),
			Capacity:         pool.Capacity(),
		}
	}
}

// BuildStatsString returns a JSON document describing the context. If detailedMap is true, every
// page owned by the context is listed.
func (c *AllocatorContext) BuildStatsString(detailedMap bool) string {
	var stats ContextStatistics
	c.CalculateStatistics(&stats)

	writer := jwriter.NewWriter()
	rootObj := writer.Object()

	totalObj := rootObj.Name("Total").Object()
	printDetailedStatistics(&totalObj, &stats.Total)
	totalObj.End()

	pagesObj := rootObj.Name("PageKinds").Object()
	for kind := range c.pageManagers {
		kindObj := pagesObj.Name(backend.PageKind(kind).String()).Object()
		kindObj.Name("DefaultPageSize").Int(c.pageManagers[kind].DefaultSize())
		statsObj := kindObj.Name("Stats").Object()
		printDetailedStatistics(&statsObj, &stats.PageKinds[kind])
		statsObj.End()
		kindObj.End()
	}
	pagesObj.End()

	heapsObj := rootObj.Name("DescriptorKinds").Object()
	for kind, heapStats := range stats.DescriptorKinds {
		kindObj := heapsObj.Name(backend.DescriptorKind(kind).String()).Object()
		kindObj.Name("Capacity").Int(heapStats.Capacity)
		kindObj.Name("Heaps").Int(heapStats.HeapCount)
		kindObj.Name("RetiredHeaps").Int(heapStats.RetiredHeapCount)
		kindObj.End()
	}
	heapsObj.End()

	if detailedMap {
		mapObj := rootObj.Name("DetailedMap").Object()
		for kind, manager := range c.pageManagers {
			mapObj.Name(backend.PageKind(kind).String())
			manager.PrintDetailedMap(&writer)
		}
		for kind, pool := range c.heapPools {
			mapObj.Name(backend.DescriptorKind(kind).String())
			pool.PrintDetailedMap(&writer)
		}
		mapObj.End()
	}

	rootObj.End()

	return string(writer.Bytes())
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("PageCount").Int(stats.PageCount)
	json.Name("PageBytes").Int(stats.PageBytes)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)
	json.Name("AvailablePageCount").Int(stats.AvailablePageCount)
	json.Name("RetiredPageCount").Int(stats.RetiredPageCount)
	json.Name("LargePageCount").Int(stats.LargePageCount)
	json.Name("LargePageBytes").Int(stats.LargePageBytes)

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}
}

// Destroy frees every page and shader-visible heap owned by the context. Every LinearAllocator
// and DynamicDescriptorHeap created from the context must have returned its memory first, and no
// GPU work referencing the context's memory may be outstanding.
func (c *AllocatorContext) Destroy() error {
	c.logger.Debug("AllocatorContext::Destroy")

	var err error
	for _, manager := range c.pageManagers {
		err = errors.CombineErrors(err, manager.Reset())
	}
	for _, pool := range c.heapPools {
		err = errors.CombineErrors(err, pool.Destroy())
	}

	if err != nil {
		c.logger.LogAttrs(context.Background(), slog.LevelError, "allocator context destroyed with errors",
			slog.String("error", err.Error()),
		)
	}

	return err
}
