package linear

import (
	"unsafe"
)

// Allocation describes a range of bytes inside a page. It does not own the page: releasing
// an Allocation only decrements the page's live allocation count. Pages are reclaimed in bulk
// once the fence they were retired under completes.
type Allocation struct {
	manager    *PageManager
	pageID     PageID
	generation uint64

	offset        int
	size          int
	cpuPointer    unsafe.Pointer
	deviceAddress uint64
}

func (a *Allocation) PageID() PageID        { return a.pageID }
func (a *Allocation) Offset() int           { return a.offset }
func (a *Allocation) Size() int             { return a.size }
func (a *Allocation) DeviceAddress() uint64 { return a.deviceAddress }

// CPUPointer is the mapped address of the first byte of the allocation, or nil if the
// allocation was made from device-exclusive memory
func (a *Allocation) CPUPointer() unsafe.Pointer { return a.cpuPointer }

// Bytes exposes the allocation's mapped memory as a byte slice. It returns nil for
// allocations from device-exclusive memory.
func (a *Allocation) Bytes() []byte {
	if a.cpuPointer == nil {
		return nil
	}
	return unsafe.Slice((*byte)(a.cpuPointer), a.size)
}

// IsValid reports whether the allocation has been made and not released
func (a *Allocation) IsValid() bool {
	return a.manager != nil
}

// Release drops this allocation's contribution to its page's live allocation count. Releasing an
// allocation whose page has already been recycled or freed has no effect. Release is safe to call
// more than once.
func (a *Allocation) Release() {
	if a.manager == nil {
		return
	}

	a.manager.releaseAllocation(a.pageID, a.generation)
	a.manager = nil
	a.cpuPointer = nil
}
