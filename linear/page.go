package linear

import (
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/memutils"
)

// PageID identifies a page within the PageManager that created it. Allocations refer to their
// page by PageID so that they never keep a retired page reachable.
type PageID uint64

// Page is a fixed-size region of backend memory that a LinearAllocator sub-allocates from
// front to back. A page is owned either by exactly one LinearAllocator (as its current page)
// or by the PageManager (while available or retired).
type Page struct {
	id     PageID
	kind   backend.PageKind
	size   int
	large  bool
	memory backend.Memory

	// cursor is the number of bytes consumed so far. Only the owning LinearAllocator advances
	// it, but statistics read it from other goroutines.
	cursor atomic.Int64
	// generation increments each time the page is recycled, which invalidates the
	// Allocations handed out before recycling
	generation      uint64
	allocationCount atomic.Int32

	// Sizes of the allocations carved from the page since it was last recycled
	allocationBytes   atomic.Int64
	allocationSizeMin atomic.Int64
	allocationSizeMax atomic.Int64

	// held is true while the page sits in one of the manager's queues
	held bool

	// debugMarkers holds the offsets of the guard bytes written after each allocation.
	// It is only populated when memutils.DebugMargin is nonzero.
	debugMarkers []int
}

func (p *Page) ID() PageID             { return p.id }
func (p *Page) Kind() backend.PageKind { return p.kind }
func (p *Page) Size() int              { return p.size }
func (p *Page) IsLarge() bool          { return p.large }
func (p *Page) Cursor() int            { return int(p.cursor.Load()) }
func (p *Page) FreeSize() int          { return p.size - p.Cursor() }
func (p *Page) DeviceAddress() uint64  { return p.memory.DeviceAddress() }

// MappedData is the CPU pointer to the start of the page, or nil for device-exclusive pages
func (p *Page) MappedData() unsafe.Pointer { return p.memory.MappedData() }

// AllocationCount is the number of Allocations from this page that have not been released
func (p *Page) AllocationCount() int { return int(p.allocationCount.Load()) }

// AllocationBytes is the number of bytes handed out from this page since it was last
// recycled, excluding alignment padding
func (p *Page) AllocationBytes() int { return int(p.allocationBytes.Load()) }

// IsPageFree reports whether every Allocation made from this page has been released
func (p *Page) IsPageFree() bool { return p.allocationCount.Load() == 0 }

// recycle prepares a retired page for reuse by a new owner
func (p *Page) recycle() {
	p.cursor.Store(0)
	p.generation++
	p.allocationCount.Store(0)
	p.allocationBytes.Store(0)
	p.allocationSizeMin.Store(0)
	p.allocationSizeMax.Store(0)
	p.debugMarkers = p.debugMarkers[:0]
}

// suballocate reserves size bytes at offset and advances the cursor past them
func (p *Page) suballocate(offset, size int) {
	p.cursor.Store(int64(offset + size + memutils.DebugMargin))
	p.allocationBytes.Add(int64(size))
	if minSize := p.allocationSizeMin.Load(); minSize == 0 || int64(size) < minSize {
		p.allocationSizeMin.Store(int64(size))
	}
	if int64(size) > p.allocationSizeMax.Load() {
		p.allocationSizeMax.Store(int64(size))
	}
	p.allocationCount.Add(1)

	if memutils.DebugMargin > 0 && p.MappedData() != nil {
		memutils.WriteGuard(p.MappedData(), offset+size)
		p.debugMarkers = append(p.debugMarkers, offset+size)
	}
}

// CheckCorruption verifies the debug markers written after every allocation in this page. It
// always succeeds unless the module is built with the debug_mem_utils tag.
func (p *Page) CheckCorruption() error {
	if memutils.DebugMargin == 0 || p.MappedData() == nil {
		return nil
	}

	for _, markerOffset := range p.debugMarkers {
		if !memutils.CheckGuard(p.MappedData(), markerOffset) {
			return errors.Newf("memory corruption detected in page %d after the allocation ending at offset %d", p.id, markerOffset)
		}
	}

	return nil
}

// Validate performs internal consistency checks on the page
func (p *Page) Validate() error {
	if p.memory == nil {
		return errors.Newf("page %d has no backing memory", p.id)
	}
	if cursor := p.Cursor(); cursor < 0 || cursor > p.size {
		return errors.Newf("page %d has cursor %d outside of its size %d", p.id, cursor, p.size)
	}
	if (p.kind == backend.PageKindCPUWritable) != (p.MappedData() != nil) {
		return errors.Newf("page %d of kind %s has an inconsistent CPU mapping", p.id, p.kind)
	}
	if p.allocationCount.Load() < 0 {
		return errors.Newf("page %d has a negative allocation count", p.id)
	}

	return p.CheckCorruption()
}
