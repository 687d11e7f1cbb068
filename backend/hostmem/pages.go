// Package hostmem implements the backend capabilities in host memory. CPU-writable pages are
// anonymous memory mappings; device-exclusive pages only reserve a range of a synthetic device
// address space. Shader-visible heaps are plain handle tables. It lets the allocators run
// without a GPU.
package hostmem

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/edsrzf/mmap-go"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/memutils"
)

const (
	// addressSpaceBase is the first synthetic device address handed out
	addressSpaceBase uint64 = 0x1_0000_0000
	// addressAlignment is the alignment of every synthetic device address range
	addressAlignment uint64 = 64 * 1024
)

// PageDevice is a backend.PageDevice that allocates from host memory
type PageDevice struct {
	mutex       sync.Mutex
	nextAddress uint64

	liveCount atomic.Int32
	liveBytes atomic.Int64
}

var _ backend.PageDevice = &PageDevice{}

func NewPageDevice() *PageDevice {
	return &PageDevice{nextAddress: addressSpaceBase}
}

// LiveCount is the number of page memories that have been allocated and not yet freed
func (d *PageDevice) LiveCount() int {
	return int(d.liveCount.Load())
}

// LiveBytes is the number of bytes that have been allocated and not yet freed
func (d *PageDevice) LiveBytes() int {
	return int(d.liveBytes.Load())
}

func (d *PageDevice) reserveAddressRange(size int) uint64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	address := d.nextAddress
	d.nextAddress = memutils.AlignUp(address+uint64(size), addressAlignment)
	return address
}

func (d *PageDevice) AllocatePageMemory(kind backend.PageKind, size int) (backend.Memory, error) {
	if size <= 0 {
		return nil, errors.Newf("attempted to allocate page memory with invalid size %d", size)
	}

	memory := &pageMemory{
		device: d,
		size:   size,
	}

	switch kind {
	case backend.PageKindDeviceExclusive:
	case backend.PageKindCPUWritable:
		mapping, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to map %d bytes of host memory", size)
		}
		memory.mapping = mapping
	default:
		return nil, errors.Newf("attempted to allocate page memory of unknown kind %d", kind)
	}

	memory.address = d.reserveAddressRange(size)
	d.liveCount.Add(1)
	d.liveBytes.Add(int64(size))

	return memory, nil
}

type pageMemory struct {
	device  *PageDevice
	size    int
	address uint64
	mapping mmap.MMap
	freed   bool
}

func (m *pageMemory) Size() int             { return m.size }
func (m *pageMemory) DeviceAddress() uint64 { return m.address }

func (m *pageMemory) MappedData() unsafe.Pointer {
	if m.mapping == nil {
		return nil
	}
	return unsafe.Pointer(&m.mapping[0])
}

func (m *pageMemory) Free() error {
	if m.freed {
		return errors.AssertionFailedf("page memory at device address %#x was freed twice", m.address)
	}
	m.freed = true

	m.device.liveCount.Add(-1)
	m.device.liveBytes.Add(int64(-m.size))

	if m.mapping != nil {
		err := m.mapping.Unmap()
		m.mapping = nil
		if err != nil {
			return errors.Wrapf(err, "failed to unmap page memory at device address %#x", m.address)
		}
	}

	return nil
}
