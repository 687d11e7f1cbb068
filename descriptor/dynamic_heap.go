package descriptor

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/fence"
	"github.com/vkngwrapper/transient/memutils"
	"golang.org/x/exp/slog"
)

type tableCache struct {
	base  int
	count int
}

// DynamicDescriptorHeap stages descriptor table contents in a CPU-side cache and copies only
// the tables that changed into a shader-visible heap right before a draw or dispatch is
// recorded. One DynamicDescriptorHeap of each kind belongs to each command context and it is
// not safe for concurrent use. Shader-visible heaps come from a shared HeapPool.
type DynamicDescriptorHeap struct {
	logger     *slog.Logger
	pool       *HeapPool
	isComplete fence.Predicate

	kind          backend.DescriptorKind
	incrementSize int

	// tableMask has a bit set for every table of this heap's kind in the parsed layout
	tableMask uint32
	// staleMask has a bit set for every table whose cached handles have not been copied into
	// the current shader-visible heap
	staleMask   uint32
	tables      [MaxDescriptorTables]tableCache
	handleCache []backend.CPUHandle

	current     backend.DescriptorHeap
	currentCPU  backend.CPUHandle
	currentGPU  backend.GPUHandle
	freeHandles int
	// switched holds heaps this instance filled since the last Reset. They may still be
	// referenced by recorded work, so they go back to the pool with the current heap.
	switched []backend.DescriptorHeap
}

// NewDynamicDescriptorHeap creates a DynamicDescriptorHeap that takes shader-visible heaps from
// pool. isComplete decides whether a retired heap in the pool may be reused.
func NewDynamicDescriptorHeap(logger *slog.Logger, pool *HeapPool, isComplete fence.Predicate) *DynamicDescriptorHeap {
	return &DynamicDescriptorHeap{
		logger:        logger,
		pool:          pool,
		isComplete:    isComplete,
		kind:          pool.Kind(),
		incrementSize: pool.IncrementSize(),
		handleCache:   make([]backend.CPUHandle, pool.Capacity()),
	}
}

func (h *DynamicDescriptorHeap) Kind() backend.DescriptorKind { return h.kind }

// CurrentHeap is the shader-visible heap that descriptors are currently committed into
func (h *DynamicDescriptorHeap) CurrentHeap() backend.DescriptorHeap { return h.current }

// FreeHandleCount is the number of unused slots left in the current shader-visible heap
func (h *DynamicDescriptorHeap) FreeHandleCount() int { return h.freeHandles }

// StaleTableMask has one bit set for each root index with uncommitted descriptors
func (h *DynamicDescriptorHeap) StaleTableMask() uint32 { return h.staleMask }

// ParseBindingLayout assigns each descriptor table of this heap's kind in layout a contiguous
// range of the descriptor cache, in ascending root index order. Any previously staged
// descriptors are dropped.
func (h *DynamicDescriptorHeap) ParseBindingLayout(layout *BindingLayout) error {
	h.logger.Debug("DynamicDescriptorHeap::ParseBindingLayout")

	h.staleMask = 0
	h.tableMask = 0
	h.tables = [MaxDescriptorTables]tableCache{}
	clear(h.handleCache)

	if layout == nil {
		return nil
	}

	mask := layout.TableMask(h.kind)
	offset := 0
	for remaining := mask; remaining != 0; remaining &= remaining - 1 {
		rootIndex, _ := memutils.LowestSetBit(remaining)
		count := layout.TableSize(rootIndex)

		if offset+count > len(h.handleCache) {
			h.tables = [MaxDescriptorTables]tableCache{}
			return errors.Wrapf(ErrCapacityExceeded, "the binding layout requires more than the %d %s descriptors a heap can hold (table at root index %d needs %d)", len(h.handleCache), h.kind, rootIndex, count)
		}

		h.tables[rootIndex] = tableCache{base: offset, count: count}
		offset += count
	}

	h.tableMask = mask
	return nil
}

// StageDescriptors writes handles into the cached table at rootIndex, beginning offset slots
// into the table, and marks the table stale
func (h *DynamicDescriptorHeap) StageDescriptors(rootIndex int, offset int, handles []backend.CPUHandle) error {
	if rootIndex < 0 || rootIndex >= MaxDescriptorTables {
		return errors.Wrapf(ErrCapacityExceeded, "root index %d is outside of the %d supported descriptor tables", rootIndex, MaxDescriptorTables)
	}
	if len(handles) > len(h.handleCache) {
		return errors.Wrapf(ErrCapacityExceeded, "staging %d descriptors at root index %d exceeds the heap capacity %d", len(handles), rootIndex, len(h.handleCache))
	}

	table := h.tables[rootIndex]
	if offset < 0 || offset+len(handles) > table.count {
		return errors.Wrapf(ErrTableOverflow, "staging %d descriptors at offset %d of root index %d, which holds %d", len(handles), offset, rootIndex, table.count)
	}
	if len(handles) == 0 {
		return nil
	}

	copy(h.handleCache[table.base+offset:], handles)
	h.staleMask |= 1 << rootIndex
	return nil
}

// StaleDescriptorCount is the number of slots needed to commit every stale table
func (h *DynamicDescriptorHeap) StaleDescriptorCount() int {
	count := 0
	memutils.ForEachSetBit(h.staleMask, func(rootIndex int) {
		count += h.tables[rootIndex].count
	})
	return count
}

// CommitStagedDescriptors copies each stale table into the current shader-visible heap and
// binds it with bind, in ascending root index order. If the current heap cannot fit the stale
// tables a new heap is requested and every table is copied, since bindings made into the old
// heap are no longer visible. Tables whose first slot was never staged are not bound.
func (h *DynamicDescriptorHeap) CommitStagedDescriptors(recorder Recorder, bind BindFunc) error {
	count := h.StaleDescriptorCount()
	if count == 0 {
		return nil
	}

	if h.current == nil || h.freeHandles < count {
		err := h.switchHeap(recorder)
		if err != nil {
			return err
		}
	}

	for h.staleMask != 0 {
		rootIndex, _ := memutils.LowestSetBit(h.staleMask)
		table := h.tables[rootIndex]
		handles := h.handleCache[table.base : table.base+table.count]

		if len(handles) > 0 && handles[0] != 0 {
			h.pool.copyDescriptors(h.currentCPU, handles)
			bind(recorder, rootIndex, h.currentGPU)
			h.advance(table.count)
		}

		h.staleMask &^= 1 << rootIndex
	}

	return nil
}

// CopyDescriptor copies a single descriptor into the current shader-visible heap and returns
// its GPU handle
func (h *DynamicDescriptorHeap) CopyDescriptor(recorder Recorder, handle backend.CPUHandle) (backend.GPUHandle, error) {
	if handle == 0 {
		return 0, errors.New("attempted to copy a null descriptor")
	}

	if h.current == nil || h.freeHandles < 1 {
		err := h.switchHeap(recorder)
		if err != nil {
			return 0, err
		}
	}

	gpuHandle := h.currentGPU
	h.pool.copyDescriptors(h.currentCPU, []backend.CPUHandle{handle})
	h.advance(1)

	return gpuHandle, nil
}

func (h *DynamicDescriptorHeap) advance(count int) {
	h.currentCPU = h.currentCPU.Offset(count, h.incrementSize)
	h.currentGPU = h.currentGPU.Offset(count, h.incrementSize)
	h.freeHandles -= count
}

func (h *DynamicDescriptorHeap) switchHeap(recorder Recorder) error {
	h.logger.Debug("DynamicDescriptorHeap::switchHeap")

	heap, err := h.pool.RequestDescriptorHeap(h.isComplete)
	if err != nil {
		return err
	}

	if h.current != nil {
		h.switched = append(h.switched, h.current)
	}

	h.current = heap
	h.currentCPU = heap.CPUStart()
	h.currentGPU = heap.GPUStart()
	h.freeHandles = h.pool.Capacity()

	recorder.SetDescriptorHeap(h.kind, heap)
	h.staleMask = h.tableMask
	return nil
}

// Reset returns every shader-visible heap used since the last Reset to the pool under
// fenceValue and clears the descriptor cache. ParseBindingLayout must be called again before
// descriptors are staged.
func (h *DynamicDescriptorHeap) Reset(fenceValue fence.Value) error {
	h.logger.Debug("DynamicDescriptorHeap::Reset")

	var err error
	for i, heap := range h.switched {
		err = errors.CombineErrors(err, h.pool.DiscardDescriptorHeap(heap, fenceValue))
		h.switched[i] = nil
	}
	h.switched = h.switched[:0]

	if h.current != nil {
		err = errors.CombineErrors(err, h.pool.DiscardDescriptorHeap(h.current, fenceValue))
	}

	h.current = nil
	h.currentCPU = 0
	h.currentGPU = 0
	h.freeHandles = 0
	h.tableMask = 0
	h.staleMask = 0
	h.tables = [MaxDescriptorTables]tableCache{}
	clear(h.handleCache)

	return err
}
