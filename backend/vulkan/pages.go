// Package vulkan implements backend.PageDevice on top of a Vulkan device
package vulkan

import (
	"math/bits"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/core/v2/core1_2"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/extensions/v2/khr_buffer_device_address"
	khr_buffer_device_address_shim "github.com/vkngwrapper/extensions/v2/khr_buffer_device_address/shim"
	"github.com/vkngwrapper/transient/backend"
	"golang.org/x/exp/slog"
)

type memoryPreferences struct {
	required     core1_0.MemoryPropertyFlags
	preferred    core1_0.MemoryPropertyFlags
	notPreferred core1_0.MemoryPropertyFlags
}

var pagePreferences = [backend.PageKindCount]memoryPreferences{
	backend.PageKindDeviceExclusive: {
		required:     core1_0.MemoryPropertyDeviceLocal,
		notPreferred: core1_0.MemoryPropertyHostVisible,
	},
	backend.PageKindCPUWritable: {
		required:     core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
		notPreferred: core1_0.MemoryPropertyHostCached,
	},
}

// FindMemoryTypeIndex selects the memory type that pages of kind are allocated from. Memory
// types missing a required property are never chosen. Among the rest, the type with the fewest
// missing preferred and present not-preferred properties wins, lowest index first.
func FindMemoryTypeIndex(properties *core1_0.PhysicalDeviceMemoryProperties, kind backend.PageKind) (int, error) {
	if kind >= backend.PageKindCount {
		return -1, errors.Newf("unknown page kind %d", kind)
	}
	prefs := pagePreferences[kind]

	bestMemoryTypeIndex := -1
	minCost := 100000

	for memTypeIndex, memType := range properties.MemoryTypes {
		flags := memType.PropertyFlags
		if prefs.required & ^flags != 0 {
			continue
		}

		missingPreferredFlags := prefs.preferred & ^flags
		presentNotPreferredFlags := prefs.notPreferred & flags
		cost := bits.OnesCount32(uint32(missingPreferredFlags)) + bits.OnesCount32(uint32(presentNotPreferredFlags))
		if cost == 0 {
			return memTypeIndex, nil
		} else if cost < minCost {
			bestMemoryTypeIndex = memTypeIndex
			minCost = cost
		}
	}

	if bestMemoryTypeIndex < 0 {
		return -1, errors.Wrapf(core1_0.VKErrorFeatureNotPresent.ToError(), "no memory type can back %s pages", kind)
	}

	return bestMemoryTypeIndex, nil
}

// pageBufferUsage is every usage a transient allocation may be put to
var pageBufferUsage = core1_0.BufferUsageTransferSrc | core1_0.BufferUsageTransferDst |
	core1_0.BufferUsageUniformBuffer | core1_0.BufferUsageStorageBuffer |
	core1_0.BufferUsageIndexBuffer | core1_0.BufferUsageVertexBuffer |
	core1_0.BufferUsageIndirectBuffer | khr_buffer_device_address.BufferUsageShaderDeviceAddress

// PageDevice allocates a dedicated VkDeviceMemory for every page. CPU-writable pages stay
// mapped until they are freed.
//
// When buffer device addresses are available, through core 1.2 or khr_buffer_device_address,
// each page is allocated with MemoryAllocateDeviceAddress and bound to a buffer spanning the
// whole page, and the page reports that buffer's address. Otherwise pages report address 0.
type PageDevice struct {
	logger              *slog.Logger
	device              core1_0.Device
	allocationCallbacks *driver.AllocationCallbacks
	memoryTypes         [backend.PageKindCount]int

	bufferDeviceAddress khr_buffer_device_address_shim.Shim
}

var _ backend.PageDevice = &PageDevice{}

// NewPageDevice selects a memory type for each page kind from physicalDevice's memory
// properties. allocationCallbacks may be nil.
func NewPageDevice(logger *slog.Logger, device core1_0.Device, physicalDevice core1_0.PhysicalDevice, allocationCallbacks *driver.AllocationCallbacks) (*PageDevice, error) {
	if device == nil || physicalDevice == nil {
		return nil, errors.New("attempted to create a vulkan page device without a device")
	}

	pageDevice := &PageDevice{
		logger:              logger,
		device:              device,
		allocationCallbacks: allocationCallbacks,
		bufferDeviceAddress: bufferDeviceAddressFor(device),
	}

	properties := physicalDevice.MemoryProperties()
	for kind := backend.PageKind(0); kind < backend.PageKindCount; kind++ {
		memoryTypeIndex, err := FindMemoryTypeIndex(properties, kind)
		if err != nil {
			return nil, err
		}
		pageDevice.memoryTypes[kind] = memoryTypeIndex
	}

	if pageDevice.bufferDeviceAddress == nil {
		logger.Warn("buffer device addresses are unavailable, transient pages will report address 0")
	}

	return pageDevice, nil
}

func bufferDeviceAddressFor(device core1_0.Device) khr_buffer_device_address_shim.Shim {
	device12 := core1_2.PromoteDevice(device)
	if device12 != nil {
		return device12
	}

	if device.IsDeviceExtensionActive(khr_buffer_device_address.ExtensionName) {
		extension := khr_buffer_device_address.CreateExtensionFromDevice(device)
		return khr_buffer_device_address_shim.NewShim(extension, device)
	}

	return nil
}

// MemoryTypeIndex is the memory type pages of kind are allocated from
func (d *PageDevice) MemoryTypeIndex(kind backend.PageKind) int {
	return d.memoryTypes[kind]
}

// SupportsDeviceAddress reports whether pages carry a buffer device address. When it is false,
// every page's DeviceAddress is 0.
func (d *PageDevice) SupportsDeviceAddress() bool {
	return d.bufferDeviceAddress != nil
}

func (d *PageDevice) AllocatePageMemory(kind backend.PageKind, size int) (backend.Memory, error) {
	d.logger.Debug("PageDevice::AllocatePageMemory")

	if kind >= backend.PageKindCount {
		return nil, errors.Newf("unknown page kind %d", kind)
	}

	allocInfo := core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: d.memoryTypes[kind],
	}

	if d.bufferDeviceAddress != nil {
		allocInfo.Next = core1_1.MemoryAllocateFlagsInfo{
			Flags: khr_buffer_device_address.MemoryAllocateDeviceAddress,
		}
	}

	memory, _, err := d.device.AllocateMemory(d.allocationCallbacks, allocInfo)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to allocate %d bytes for a %s page", size, kind)
	}

	page := &pageMemory{
		device:              d.device,
		memory:              memory,
		allocationCallbacks: d.allocationCallbacks,
		size:                size,
	}

	if d.bufferDeviceAddress != nil {
		err = d.bindPageBuffer(page, kind)
		if err != nil {
			return nil, errors.CombineErrors(err, page.Free())
		}
	}

	if kind == backend.PageKindCPUWritable {
		page.mappedData, _, err = memory.Map(0, -1, 0)
		if err != nil {
			err = errors.Wrapf(err, "failed to map %d bytes for a %s page", size, kind)
			return nil, errors.CombineErrors(err, page.Free())
		}
	}

	return page, nil
}

func (d *PageDevice) bindPageBuffer(page *pageMemory, kind backend.PageKind) error {
	buffer, _, err := d.device.CreateBuffer(d.allocationCallbacks, core1_0.BufferCreateInfo{
		Size:        page.size,
		Usage:       pageBufferUsage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create a buffer over a %d-byte %s page", page.size, kind)
	}
	page.buffer = buffer

	requirements := buffer.MemoryRequirements()
	memoryTypeIndex := d.memoryTypes[kind]
	if requirements.MemoryTypeBits&(1<<uint(memoryTypeIndex)) == 0 || requirements.Size > page.size {
		return errors.Wrapf(core1_0.VKErrorFeatureNotPresent.ToError(),
			"a buffer over a %d-byte %s page cannot be bound to memory type %d", page.size, kind, memoryTypeIndex)
	}

	_, err = buffer.BindBufferMemory(page.memory, 0)
	if err != nil {
		return errors.Wrapf(err, "failed to bind a buffer to a %s page", kind)
	}

	page.deviceAddress, err = d.bufferDeviceAddress.GetBufferDeviceAddress(core1_2.BufferDeviceAddressInfo{
		Buffer: buffer,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to query the device address of a %s page", kind)
	}

	return nil
}

type pageMemory struct {
	device              core1_0.Device
	memory              core1_0.DeviceMemory
	buffer              core1_0.Buffer
	allocationCallbacks *driver.AllocationCallbacks

	size          int
	deviceAddress uint64
	mappedData    unsafe.Pointer
}

func (m *pageMemory) Size() int                  { return m.size }
func (m *pageMemory) DeviceAddress() uint64      { return m.deviceAddress }
func (m *pageMemory) MappedData() unsafe.Pointer { return m.mappedData }

func (m *pageMemory) Free() error {
	if m.memory == nil {
		return errors.New("attempted to free vulkan page memory twice")
	}

	if m.buffer != nil {
		m.buffer.Destroy(m.allocationCallbacks)
		m.buffer = nil
	}

	if m.mappedData != nil {
		m.memory.Unmap()
		m.mappedData = nil
	}

	m.device.FreeMemory(m.memory, m.allocationCallbacks)
	m.memory = nil
	m.deviceAddress = 0
	return nil
}
