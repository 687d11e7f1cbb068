package hostmem

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/transient/backend"
)

const (
	// DescriptorIncrementSize is the handle distance between adjacent descriptors in every heap
	// this backend creates
	DescriptorIncrementSize int = 32

	handleSpaceBase backend.CPUHandle = 0x10_0000
	gpuHandleBase   backend.GPUHandle = 0x1_0000_0000_0000
)

// DescriptorDevice is a backend.DescriptorDevice whose shader-visible heaps are slices of
// CPU handles. Copies record the source handle in the destination slot so tests can read back
// exactly what was committed.
type DescriptorDevice struct {
	mutex      sync.Mutex
	nextHandle backend.CPUHandle
	heaps      []*DescriptorHeap
	copies     int
}

var _ backend.DescriptorDevice = &DescriptorDevice{}

func NewDescriptorDevice() *DescriptorDevice {
	return &DescriptorDevice{nextHandle: handleSpaceBase}
}

func (d *DescriptorDevice) CreateDescriptorHeap(kind backend.DescriptorKind, capacity int) (backend.DescriptorHeap, error) {
	if capacity <= 0 {
		return nil, errors.Newf("attempted to create a %s heap with invalid capacity %d", kind, capacity)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	heap := &DescriptorHeap{
		device:   d,
		kind:     kind,
		cpuStart: d.nextHandle,
		gpuStart: gpuHandleBase + backend.GPUHandle(d.nextHandle),
		slots:    make([]backend.CPUHandle, capacity),
	}
	d.nextHandle = d.nextHandle.Offset(capacity, DescriptorIncrementSize)
	d.heaps = append(d.heaps, heap)

	return heap, nil
}

func (d *DescriptorDevice) DescriptorIncrementSize(kind backend.DescriptorKind) int {
	return DescriptorIncrementSize
}

func (d *DescriptorDevice) CopyDescriptors(kind backend.DescriptorKind, dst backend.CPUHandle, src []backend.CPUHandle) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	heap, index := d.locate(dst)
	if heap == nil {
		panic(errors.AssertionFailedf("descriptor copy destination %#x is not inside any live heap", dst))
	}
	if heap.kind != kind {
		panic(errors.AssertionFailedf("descriptor copy of kind %s into a %s heap", kind, heap.kind))
	}
	if index+len(src) > len(heap.slots) {
		panic(errors.AssertionFailedf("descriptor copy of %d handles at slot %d overruns a heap of capacity %d", len(src), index, len(heap.slots)))
	}

	copy(heap.slots[index:], src)
	d.copies++
}

// CopyCount is the number of CopyDescriptors calls this device has served
func (d *DescriptorDevice) CopyCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.copies
}

// HeapCount is the number of live heaps created from this device
func (d *DescriptorDevice) HeapCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return len(d.heaps)
}

func (d *DescriptorDevice) locate(handle backend.CPUHandle) (*DescriptorHeap, int) {
	for _, heap := range d.heaps {
		end := heap.cpuStart.Offset(len(heap.slots), DescriptorIncrementSize)
		if handle >= heap.cpuStart && handle < end {
			return heap, int(handle-heap.cpuStart) / DescriptorIncrementSize
		}
	}

	return nil, -1
}

func (d *DescriptorDevice) release(heap *DescriptorHeap) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for i, candidate := range d.heaps {
		if candidate == heap {
			d.heaps = append(d.heaps[:i], d.heaps[i+1:]...)
			return nil
		}
	}

	return errors.AssertionFailedf("descriptor heap at %#x was released twice", heap.cpuStart)
}

// DescriptorHeap is a shader-visible heap created by DescriptorDevice
type DescriptorHeap struct {
	device   *DescriptorDevice
	kind     backend.DescriptorKind
	cpuStart backend.CPUHandle
	gpuStart backend.GPUHandle
	slots    []backend.CPUHandle
}

var _ backend.DescriptorHeap = &DescriptorHeap{}

func (h *DescriptorHeap) Kind() backend.DescriptorKind { return h.kind }
func (h *DescriptorHeap) Capacity() int                { return len(h.slots) }
func (h *DescriptorHeap) CPUStart() backend.CPUHandle  { return h.cpuStart }
func (h *DescriptorHeap) GPUStart() backend.GPUHandle  { return h.gpuStart }
func (h *DescriptorHeap) Release() error               { return h.device.release(h) }

// Slot returns the handle most recently copied into the slot at index
func (h *DescriptorHeap) Slot(index int) backend.CPUHandle {
	h.device.mutex.Lock()
	defer h.device.mutex.Unlock()

	return h.slots[index]
}

// SlotAt returns the handle copied into the slot that gpuHandle points at
func (h *DescriptorHeap) SlotAt(gpuHandle backend.GPUHandle, offset int) backend.CPUHandle {
	index := int(gpuHandle-h.gpuStart)/DescriptorIncrementSize + offset
	return h.Slot(index)
}
