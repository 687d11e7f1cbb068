package linear

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/transient/fence"
	"github.com/vkngwrapper/transient/memutils"
	"golang.org/x/exp/slog"
)

// DefaultAlignment is the alignment to use for constant buffer data when the consumer has no
// stricter requirement
const DefaultAlignment uint = 256

// LinearAllocator is a bump allocator owned by a single command context. It pulls pages from a
// shared PageManager, hands out increasing offsets within the current page, and returns every
// page it has written to the manager when the context's work is associated with a fence by
// SetFence.
//
// A LinearAllocator is not safe for concurrent use.
type LinearAllocator struct {
	logger  *slog.Logger
	manager *PageManager

	fence   fence.Value
	current *Page
	// filled holds pages that ran out of room since the last SetFence. They may still be read
	// by the work being recorded, so they are retired under the next fence rather than the
	// previous one.
	filled     []*Page
	largePages []*Page
}

// NewLinearAllocator creates an allocator that takes its pages from manager
func NewLinearAllocator(logger *slog.Logger, manager *PageManager) *LinearAllocator {
	return &LinearAllocator{
		logger:  logger,
		manager: manager,
	}
}

// Fence is the fence value most recently passed to SetFence
func (a *LinearAllocator) Fence() fence.Value { return a.fence }

// CurrentPage is the page that the next small allocation will be carved from, if any
func (a *LinearAllocator) CurrentPage() *Page { return a.current }

// Allocate reserves size bytes whose offset within its page is a multiple of alignment.
// Requests larger than the manager's default page size are served from a dedicated large
// page. Otherwise, if the current page cannot fit the request, it is set aside and a new page
// is requested. Pages set aside this way, like large pages, stay with the allocator until the
// next SetFence and are retired under that fence value, so they do not count toward the
// manager's RetiredPageCount before then.
//
// Allocate only fails for requests that can never be satisfied, such as a size that is not
// positive or an alignment that is not a power of two, or when the backend cannot provide memory.
func (a *LinearAllocator) Allocate(size int, alignment uint) (Allocation, error) {
	if size <= 0 {
		return Allocation{}, errors.Wrapf(ErrInvalidAllocation, "requested size %d is not positive", size)
	}
	err := memutils.CheckPow2(alignment, "alignment")
	if err != nil {
		return Allocation{}, errors.Wrap(ErrInvalidAllocation, err.Error())
	}
	if uint64(alignment) > math.MaxInt32 {
		return Allocation{}, errors.Wrapf(ErrInvalidAllocation, "alignment %d is unreasonably large", alignment)
	}
	if size > math.MaxInt-memutils.DebugMargin {
		return Allocation{}, errors.Wrapf(ErrInvalidAllocation, "requested size %d overflows", size)
	}
	paddedSize := size + memutils.DebugMargin

	if paddedSize > a.manager.defaultSize {
		return a.allocateLarge(size, paddedSize)
	}

	offset := 0
	if a.current != nil {
		offset, err = memutils.CheckedAlignUp(a.current.Cursor(), int(alignment))
		if err != nil {
			offset = math.MaxInt
		}
	}

	if a.current == nil || offset > a.current.size-paddedSize {
		if a.current != nil {
			a.filled = append(a.filled, a.current)
			a.current = nil
		}

		page, err := a.manager.RequestPage()
		if err != nil {
			return Allocation{}, err
		}
		a.current = page
		offset = 0
	}

	return a.suballocate(a.current, offset, size), nil
}

func (a *LinearAllocator) allocateLarge(size, paddedSize int) (Allocation, error) {
	a.logger.Debug("LinearAllocator::allocateLarge")

	page, err := a.manager.RequestLargePage(paddedSize)
	if err != nil {
		return Allocation{}, err
	}
	a.largePages = append(a.largePages, page)

	return a.suballocate(page, 0, size), nil
}

func (a *LinearAllocator) suballocate(page *Page, offset, size int) Allocation {
	page.suballocate(offset, size)

	alloc := Allocation{
		manager:    a.manager,
		pageID:     page.id,
		generation: page.generation,
		offset:     offset,
		size:       size,
	}

	if address := page.DeviceAddress(); address != 0 {
		alloc.deviceAddress = address + uint64(offset)
	}

	if data := page.MappedData(); data != nil {
		alloc.cpuPointer = unsafe.Add(data, offset)
	}

	return alloc
}

// SetFence associates all work recorded so far with fenceValue. Every page this allocator has
// written to, including the current page, is returned to the PageManager under fenceValue, and
// the next Allocate starts on a fresh page.
func (a *LinearAllocator) SetFence(fenceValue fence.Value) error {
	a.logger.Debug("LinearAllocator::SetFence")

	a.fence = fenceValue

	var err error
	if a.current != nil {
		a.filled = append(a.filled, a.current)
		a.current = nil
	}

	for i, page := range a.filled {
		err = errors.CombineErrors(err, a.manager.DiscardPage(page, fenceValue))
		a.filled[i] = nil
	}
	a.filled = a.filled[:0]

	for i, page := range a.largePages {
		err = errors.CombineErrors(err, a.manager.DiscardLargePage(page, fenceValue))
		a.largePages[i] = nil
	}
	a.largePages = a.largePages[:0]

	return err
}

// Destroy returns every page to the PageManager under fence value 0, making them reusable as
// soon as the manager next updates. The caller must ensure no GPU work that reads this
// allocator's memory is still outstanding.
func (a *LinearAllocator) Destroy() error {
	a.logger.Debug("LinearAllocator::Destroy")

	return a.SetFence(0)
}
