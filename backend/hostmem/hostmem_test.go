package hostmem_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/backend/hostmem"
)

func TestCPUWritablePageIsMapped(t *testing.T) {
	device := hostmem.NewPageDevice()

	memory, err := device.AllocatePageMemory(backend.PageKindCPUWritable, 4096)
	require.NoError(t, err)
	require.Equal(t, 4096, memory.Size())
	require.NotNil(t, memory.MappedData())
	require.NotZero(t, memory.DeviceAddress())

	data := unsafe.Slice((*byte)(memory.MappedData()), memory.Size())
	data[0] = 0xAB
	data[4095] = 0xCD
	require.Equal(t, byte(0xAB), data[0])

	require.Equal(t, 1, device.LiveCount())
	require.Equal(t, 4096, device.LiveBytes())

	require.NoError(t, memory.Free())
	require.Equal(t, 0, device.LiveCount())
	require.Equal(t, 0, device.LiveBytes())
	require.Error(t, memory.Free())
}

func TestDeviceExclusivePageIsNotMapped(t *testing.T) {
	device := hostmem.NewPageDevice()

	first, err := device.AllocatePageMemory(backend.PageKindDeviceExclusive, 100)
	require.NoError(t, err)
	second, err := device.AllocatePageMemory(backend.PageKindDeviceExclusive, 100)
	require.NoError(t, err)

	require.Nil(t, first.MappedData())
	require.Nil(t, second.MappedData())
	require.Greater(t, second.DeviceAddress(), first.DeviceAddress()+100)
	require.Zero(t, second.DeviceAddress()%(64*1024))

	require.NoError(t, first.Free())
	require.NoError(t, second.Free())
}

func TestInvalidPageRequests(t *testing.T) {
	device := hostmem.NewPageDevice()

	_, err := device.AllocatePageMemory(backend.PageKindCPUWritable, 0)
	require.Error(t, err)

	_, err = device.AllocatePageMemory(backend.PageKind(9), 64)
	require.Error(t, err)
}

func TestDescriptorCopies(t *testing.T) {
	device := hostmem.NewDescriptorDevice()

	heap, err := device.CreateDescriptorHeap(backend.DescriptorKindView, 8)
	require.NoError(t, err)
	require.Equal(t, 8, heap.Capacity())
	require.Equal(t, backend.DescriptorKindView, heap.Kind())

	dst := heap.CPUStart().Offset(2, device.DescriptorIncrementSize(backend.DescriptorKindView))
	device.CopyDescriptors(backend.DescriptorKindView, dst, []backend.CPUHandle{11, 12, 13})

	hostHeap := heap.(*hostmem.DescriptorHeap)
	require.Equal(t, backend.CPUHandle(0), hostHeap.Slot(1))
	require.Equal(t, backend.CPUHandle(11), hostHeap.Slot(2))
	require.Equal(t, backend.CPUHandle(13), hostHeap.Slot(4))
	require.Equal(t, backend.CPUHandle(12), hostHeap.SlotAt(heap.GPUStart().Offset(2, hostmem.DescriptorIncrementSize), 1))
	require.Equal(t, 1, device.CopyCount())

	require.Panics(t, func() {
		device.CopyDescriptors(backend.DescriptorKindSampler, dst, []backend.CPUHandle{1})
	})
	require.Panics(t, func() {
		device.CopyDescriptors(backend.DescriptorKindView, dst, make([]backend.CPUHandle, 7))
	})

	require.NoError(t, heap.Release())
	require.Equal(t, 0, device.HeapCount())
	require.Error(t, heap.Release())
}
