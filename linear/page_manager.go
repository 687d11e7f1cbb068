package linear

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/fence"
	"github.com/vkngwrapper/transient/internal/utils"
	"github.com/vkngwrapper/transient/memutils"
	"golang.org/x/exp/slog"
)

type retiredPage struct {
	page  *Page
	fence fence.Value
}

// PageManager owns the pool of reusable pages of one kind, along with the pages that have been
// retired by LinearAllocators and are waiting for their fence to complete. A single PageManager
// is shared by every LinearAllocator of its kind, so RequestPage and DiscardPage may be called
// concurrently. The manager's mutex is only held while its queues are modified, never while
// backend memory is allocated or freed.
type PageManager struct {
	logger      *slog.Logger
	device      backend.PageDevice
	kind        backend.PageKind
	defaultSize int

	mutex      utils.OptionalMutex
	nextPageID PageID
	// pages maps every page this manager has created and not yet freed
	pages        *swiss.Map[PageID, *Page]
	available    []*Page
	retired      []retiredPage
	retiredLarge []retiredPage
}

// NewPageManager creates a PageManager that allocates pages of kind from device. Pages from
// RequestPage are defaultSize bytes. If useMutex is false the consumer must guarantee the
// manager is only used from one goroutine at a time.
func NewPageManager(logger *slog.Logger, device backend.PageDevice, kind backend.PageKind, defaultSize int, useMutex bool) (*PageManager, error) {
	if device == nil {
		return nil, errors.New("attempted to create a page manager without a page device")
	}
	if defaultSize <= 0 {
		return nil, errors.Newf("attempted to create a page manager with invalid default page size %d", defaultSize)
	}
	if kind != backend.PageKindDeviceExclusive && kind != backend.PageKindCPUWritable {
		return nil, errors.Newf("attempted to create a page manager of unknown kind %d", kind)
	}

	return &PageManager{
		logger:      logger,
		device:      device,
		kind:        kind,
		defaultSize: defaultSize,
		mutex:       utils.OptionalMutex{UseMutex: useMutex},
		nextPageID:  1,
		pages:       swiss.NewMap[PageID, *Page](16),
	}, nil
}

func (m *PageManager) Kind() backend.PageKind { return m.kind }
func (m *PageManager) DefaultSize() int       { return m.defaultSize }

// RequestPage transfers ownership of a page of the default size to the caller. A page that has
// been reclaimed by UpdateAvailablePages is reused if there is one; otherwise a new page is
// allocated. This method never waits on the GPU.
func (m *PageManager) RequestPage() (*Page, error) {
	m.logger.Debug("PageManager::RequestPage")

	m.mutex.Lock()
	if len(m.available) > 0 {
		page := m.available[0]
		m.available[0] = nil
		m.available = m.available[1:]
		page.held = false
		m.mutex.Unlock()

		return page, nil
	}
	m.mutex.Unlock()

	return m.createPage(m.defaultSize, false)
}

// RequestLargePage allocates a dedicated page for a single request larger than the default page
// size. Large pages never enter the reusable pool: once retired with DiscardLargePage and their
// fence completes, they are freed.
func (m *PageManager) RequestLargePage(size int) (*Page, error) {
	m.logger.Debug("PageManager::RequestLargePage")

	if size <= m.defaultSize {
		return nil, errors.Wrapf(ErrInvalidAllocation, "large page size %d does not exceed the default page size %d", size, m.defaultSize)
	}

	return m.createPage(size, true)
}

func (m *PageManager) createPage(size int, large bool) (*Page, error) {
	memory, err := m.device.AllocatePageMemory(m.kind, size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to allocate %d bytes for a %s page", size, m.kind)
	}

	if memory.Size() < size {
		freeErr := memory.Free()
		return nil, errors.CombineErrors(
			errors.AssertionFailedf("backend returned %d bytes of page memory when %d were requested", memory.Size(), size),
			freeErr,
		)
	}

	if (m.kind == backend.PageKindCPUWritable) != (memory.MappedData() != nil) {
		freeErr := memory.Free()
		return nil, errors.CombineErrors(
			errors.AssertionFailedf("backend returned %s page memory with an inconsistent CPU mapping", m.kind),
			freeErr,
		)
	}

	page := &Page{
		kind:   m.kind,
		size:   size,
		large:  large,
		memory: memory,
	}

	m.mutex.Lock()
	page.id = m.nextPageID
	m.nextPageID++
	m.pages.Put(page.id, page)
	m.mutex.Unlock()

	m.logger.LogAttrs(context.Background(), slog.LevelDebug, "created page",
		slog.String("kind", m.kind.String()),
		slog.Uint64("id", uint64(page.id)),
		slog.Int("size", size),
		slog.Bool("large", large),
	)

	return page, nil
}

// DiscardPage returns ownership of a default-size page to the manager. The page becomes
// available to RequestPage once UpdateAvailablePages observes that fenceValue is complete.
// The caller must not write to the page after discarding it.
func (m *PageManager) DiscardPage(page *Page, fenceValue fence.Value) error {
	m.logger.Debug("PageManager::DiscardPage")

	if page == nil {
		return errors.New("attempted to discard a nil page")
	}
	if page.large {
		return errors.AssertionFailedf("attempted to discard large page %d with DiscardPage", page.id)
	}

	return m.retire(page, fenceValue, &m.retired)
}

// DiscardLargePage returns ownership of a large page to the manager. The page is freed once
// UpdateAvailablePages observes that fenceValue is complete.
func (m *PageManager) DiscardLargePage(page *Page, fenceValue fence.Value) error {
	m.logger.Debug("PageManager::DiscardLargePage")

	if page == nil {
		return errors.New("attempted to discard a nil page")
	}
	if !page.large {
		return errors.AssertionFailedf("attempted to discard default-size page %d with DiscardLargePage", page.id)
	}

	return m.retire(page, fenceValue, &m.retiredLarge)
}

func (m *PageManager) retire(page *Page, fenceValue fence.Value, queue *[]retiredPage) error {
	memutils.DebugValidate(page)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	owned, ok := m.pages.Get(page.id)
	if !ok || owned != page {
		return errors.AssertionFailedf("attempted to discard page %d, which does not belong to this %s page manager", page.id, m.kind)
	}
	if page.held {
		return errors.AssertionFailedf("attempted to discard page %d, which has already been discarded", page.id)
	}

	page.held = true
	*queue = append(*queue, retiredPage{page: page, fence: fenceValue})
	return nil
}

// UpdateAvailablePages reclaims every retired page whose fence isComplete reports as finished.
// Default-size pages are made available to RequestPage and large pages are freed. The fence
// value 0 is always complete. It returns the number of pages reclaimed.
//
// The whole retired list is scanned rather than stopping at the first incomplete fence: pages
// are retired by many allocators whose fence values do not arrive in order.
func (m *PageManager) UpdateAvailablePages(isComplete fence.Predicate) (int, error) {
	m.logger.Debug("PageManager::UpdateAvailablePages")

	var toFree []*Page
	reclaimed := 0

	m.mutex.Lock()

	remaining := m.retired[:0]
	for _, entry := range m.retired {
		if !isComplete.Complete(entry.fence) {
			remaining = append(remaining, entry)
			continue
		}

		if !entry.page.IsPageFree() {
			m.logger.LogAttrs(context.Background(), slog.LevelDebug, "recycling page with unreleased allocations",
				slog.Uint64("id", uint64(entry.page.id)),
				slog.Int("allocations", entry.page.AllocationCount()),
			)
		}

		entry.page.recycle()
		m.available = append(m.available, entry.page)
		reclaimed++
	}
	clearTail(m.retired, len(remaining))
	m.retired = remaining

	remainingLarge := m.retiredLarge[:0]
	for _, entry := range m.retiredLarge {
		if !isComplete.Complete(entry.fence) {
			remainingLarge = append(remainingLarge, entry)
			continue
		}

		m.pages.Delete(entry.page.id)
		toFree = append(toFree, entry.page)
		reclaimed++
	}
	clearTail(m.retiredLarge, len(remainingLarge))
	m.retiredLarge = remainingLarge

	m.mutex.Unlock()

	var err error
	for _, page := range toFree {
		m.logger.LogAttrs(context.Background(), slog.LevelDebug, "freeing large page",
			slog.Uint64("id", uint64(page.id)),
			slog.Int("size", page.size),
		)
		err = errors.CombineErrors(err, page.memory.Free())
		page.memory = nil
	}

	return reclaimed, err
}

func clearTail(entries []retiredPage, keep int) {
	for i := keep; i < len(entries); i++ {
		entries[i] = retiredPage{}
	}
}

func (m *PageManager) releaseAllocation(pageID PageID, generation uint64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	page, ok := m.pages.Get(pageID)
	if !ok || page.generation != generation {
		return
	}

	if page.allocationCount.Add(-1) < 0 {
		panic(errors.AssertionFailedf("page %d released more allocations than were made from it", pageID))
	}
}

// Reset frees every page held by the manager, whether available or retired, without consulting
// any fence. It must only be called at teardown, when no GPU work referencing any page can be
// outstanding. Pages still owned by a LinearAllocator are reported as an error and left alone.
func (m *PageManager) Reset() error {
	m.logger.Debug("PageManager::Reset")

	m.mutex.Lock()

	var toFree []*Page
	outstanding := 0
	m.pages.Iter(func(id PageID, page *Page) bool {
		if page.held {
			toFree = append(toFree, page)
			return false
		}

		outstanding++
		m.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] page still owned by an allocator",
			slog.String("kind", m.kind.String()),
			slog.Uint64("id", uint64(id)),
			slog.Int("size", page.size),
			slog.Int("cursor", page.Cursor()),
		)
		return false
	})

	for _, page := range toFree {
		m.pages.Delete(page.id)
	}
	m.available = nil
	m.retired = nil
	m.retiredLarge = nil

	m.mutex.Unlock()

	var err error
	for _, page := range toFree {
		err = errors.CombineErrors(err, page.memory.Free())
		page.memory = nil
	}

	if outstanding > 0 {
		err = errors.CombineErrors(err, errors.Newf("%d %s pages were still owned by allocators when the page manager was reset", outstanding, m.kind))
	}

	return err
}

// AvailablePageCount is the number of pages RequestPage can hand out without allocating
func (m *PageManager) AvailablePageCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.available)
}

// RetiredPageCount is the number of pages, large pages included, waiting on their fence
func (m *PageManager) RetiredPageCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.retired) + len(m.retiredLarge)
}

// PageCount is the number of pages created by this manager that have not been freed
func (m *PageManager) PageCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.pages.Count()
}

// AddDetailedStatistics sums this manager's page statistics into stats
func (m *PageManager) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stats.AvailablePageCount += len(m.available)
	stats.RetiredPageCount += len(m.retired) + len(m.retiredLarge)

	m.pages.Iter(func(id PageID, page *Page) bool {
		stats.PageCount++
		stats.PageBytes += page.size
		if page.large {
			stats.AddLargePage(page.size)
		}

		stats.AddAllocations(
			page.AllocationCount(),
			page.AllocationBytes(),
			int(page.allocationSizeMin.Load()),
			int(page.allocationSizeMax.Load()),
		)
		return false
	})
}

// PrintDetailedMap writes a JSON object describing every page this manager owns
func (m *PageManager) PrintDetailedMap(writer *jwriter.Writer) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	objState := writer.Object()
	defer objState.End()

	objState.Name("Kind").String(m.kind.String())
	objState.Name("DefaultPageSize").Int(m.defaultSize)
	objState.Name("AvailablePages").Int(len(m.available))
	objState.Name("RetiredPages").Int(len(m.retired) + len(m.retiredLarge))

	pagesObj := objState.Name("Pages").Object()
	defer pagesObj.End()

	m.pages.Iter(func(id PageID, page *Page) bool {
		pageObj := pagesObj.Name(strconv.FormatUint(uint64(id), 10)).Object()
		pageObj.Name("Size").Int(page.size)
		pageObj.Name("Cursor").Int(page.Cursor())
		pageObj.Name("Allocations").Int(page.AllocationCount())
		pageObj.Name("Large").Bool(page.large)
		pageObj.Name("Pooled").Bool(page.held)
		pageObj.End()
		return false
	})
}
