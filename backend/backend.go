// Package backend declares the capabilities the transient allocators consume from a graphics
// backend: page-sized device memory, shader-visible descriptor heaps, and descriptor copies.
// The allocators never touch a graphics API directly.
package backend

//go:generate mockgen -source backend.go -destination ./mocks/backend.go -package mocks

import "unsafe"

// PageKind selects the memory a page is carved from
type PageKind uint32

const (
	// PageKindDeviceExclusive memory lives on the device and is not CPU addressable. It is used as
	// scratch space for default-heap copies and compute output.
	PageKindDeviceExclusive PageKind = iota
	// PageKindCPUWritable memory is persistently mapped for CPU writes and read by the device
	PageKindCPUWritable

	PageKindCount = 2
)

var pageKindMapping = map[PageKind]string{
	PageKindDeviceExclusive: "PageKindDeviceExclusive",
	PageKindCPUWritable:     "PageKindCPUWritable",
}

func (k PageKind) String() string {
	return pageKindMapping[k]
}

// Memory is a single backend allocation that backs one page
type Memory interface {
	// Size is the number of bytes backing this memory, which may exceed the requested size
	Size() int
	// DeviceAddress is the base address the device uses to read this memory, or 0 if the
	// backend cannot report one
	DeviceAddress() uint64
	// MappedData is the persistent CPU mapping of this memory. It must be nil for
	// PageKindDeviceExclusive memory and non-nil for PageKindCPUWritable memory.
	MappedData() unsafe.Pointer
	// Free returns the memory to the backend
	Free() error
}

// PageDevice creates the memory that backs linear allocator pages
type PageDevice interface {
	AllocatePageMemory(kind PageKind, size int) (Memory, error)
}

// DescriptorKind selects which family of descriptors a heap holds
type DescriptorKind uint32

const (
	// DescriptorKindView covers constant buffer, shader resource and unordered access views
	DescriptorKindView DescriptorKind = iota
	// DescriptorKindSampler covers samplers
	DescriptorKindSampler

	DescriptorKindCount = 2
)

var descriptorKindMapping = map[DescriptorKind]string{
	DescriptorKindView:    "DescriptorKindView",
	DescriptorKindSampler: "DescriptorKindSampler",
}

func (k DescriptorKind) String() string {
	return descriptorKindMapping[k]
}

// CPUHandle is an opaque CPU-side descriptor handle. The zero CPUHandle is null.
type CPUHandle uint64

// Offset advances the handle by count descriptors of the given increment size
func (h CPUHandle) Offset(count int, incrementSize int) CPUHandle {
	return h + CPUHandle(count*incrementSize)
}

// GPUHandle is an opaque handle the device uses to locate a range of shader-visible descriptors
type GPUHandle uint64

// Offset advances the handle by count descriptors of the given increment size
func (h GPUHandle) Offset(count int, incrementSize int) GPUHandle {
	return h + GPUHandle(count*incrementSize)
}

// DescriptorHeap is a shader-visible heap of fixed capacity
type DescriptorHeap interface {
	Kind() DescriptorKind
	Capacity() int
	CPUStart() CPUHandle
	GPUStart() GPUHandle
	Release() error
}

// DescriptorDevice creates shader-visible heaps and copies descriptors into them
type DescriptorDevice interface {
	CreateDescriptorHeap(kind DescriptorKind, capacity int) (DescriptorHeap, error)
	// DescriptorIncrementSize is the distance in handle units between adjacent descriptors of kind
	DescriptorIncrementSize(kind DescriptorKind) int
	// CopyDescriptors copies each handle in src into consecutive slots starting at dst
	CopyDescriptors(kind DescriptorKind, dst CPUHandle, src []CPUHandle)
}
