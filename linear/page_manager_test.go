package linear

import (
	"io"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/backend/mocks"
	"github.com/vkngwrapper/transient/fence"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

func mockManager(t *testing.T, ctrl *gomock.Controller, kind backend.PageKind, pageSize int) (*mocks.MockPageDevice, *PageManager) {
	device := mocks.NewMockPageDevice(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	manager, err := NewPageManager(logger, device, kind, pageSize, false)
	require.NoError(t, err)

	return device, manager
}

func mockMemory(ctrl *gomock.Controller, size int, address uint64, data unsafe.Pointer) *mocks.MockMemory {
	memory := mocks.NewMockMemory(ctrl)
	memory.EXPECT().Size().Return(size).AnyTimes()
	memory.EXPECT().DeviceAddress().Return(address).AnyTimes()
	memory.EXPECT().MappedData().Return(data).AnyTimes()
	return memory
}

func TestNewPageManagerValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockPageDevice(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewPageManager(logger, nil, backend.PageKindCPUWritable, 64, true)
	require.Error(t, err)

	_, err = NewPageManager(logger, device, backend.PageKindCPUWritable, 0, true)
	require.Error(t, err)

	_, err = NewPageManager(logger, device, backend.PageKindCount, 64, true)
	require.Error(t, err)
}

func TestBackendAllocationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, manager := mockManager(t, ctrl, backend.PageKindDeviceExclusive, 1024)

	device.EXPECT().AllocatePageMemory(backend.PageKindDeviceExclusive, 1024).Return(nil, errors.New("out of device memory"))

	allocator := NewLinearAllocator(slog.New(slog.NewTextHandler(io.Discard, nil)), manager)
	_, err := allocator.Allocate(16, 16)
	require.ErrorContains(t, err, "out of device memory")
	require.Nil(t, allocator.CurrentPage())
	require.Equal(t, 0, manager.PageCount())
}

func TestPagesWithoutDeviceAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, manager := mockManager(t, ctrl, backend.PageKindDeviceExclusive, 1024)

	memory := mockMemory(ctrl, 1024, 0, nil)
	device.EXPECT().AllocatePageMemory(backend.PageKindDeviceExclusive, 1024).Return(memory, nil)

	allocator := NewLinearAllocator(slog.New(slog.NewTextHandler(io.Discard, nil)), manager)
	_, err := allocator.Allocate(16, 16)
	require.NoError(t, err)
	alloc, err := allocator.Allocate(16, 16)
	require.NoError(t, err)

	require.NotZero(t, alloc.Offset())
	require.Zero(t, alloc.DeviceAddress())

	memory.EXPECT().Free().Return(nil)
	require.NoError(t, allocator.Destroy())
	require.NoError(t, manager.Reset())
}

func TestBackendReturnsShortMemory(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, manager := mockManager(t, ctrl, backend.PageKindDeviceExclusive, 1024)

	memory := mockMemory(ctrl, 512, 0x1000, nil)
	memory.EXPECT().Free().Return(nil)
	device.EXPECT().AllocatePageMemory(backend.PageKindDeviceExclusive, 1024).Return(memory, nil)

	_, err := manager.RequestPage()
	require.True(t, errors.HasAssertionFailure(err))
	require.Equal(t, 0, manager.PageCount())
}

func TestBackendReturnsInconsistentMapping(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, manager := mockManager(t, ctrl, backend.PageKindCPUWritable, 1024)

	memory := mockMemory(ctrl, 1024, 0x1000, nil)
	memory.EXPECT().Free().Return(errors.New("free failed"))
	device.EXPECT().AllocatePageMemory(backend.PageKindCPUWritable, 1024).Return(memory, nil)

	_, err := manager.RequestPage()
	require.True(t, errors.HasAssertionFailure(err))
	require.ErrorContains(t, err, "inconsistent CPU mapping")
}

func TestDeviceAddressesFollowOffsets(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, manager := mockManager(t, ctrl, backend.PageKindDeviceExclusive, 1024)

	memory := mockMemory(ctrl, 1024, 0x40000, nil)
	device.EXPECT().AllocatePageMemory(backend.PageKindDeviceExclusive, 1024).Return(memory, nil)

	allocator := NewLinearAllocator(slog.New(slog.NewTextHandler(io.Discard, nil)), manager)
	first, err := allocator.Allocate(10, 1)
	require.NoError(t, err)
	second, err := allocator.Allocate(10, 256)
	require.NoError(t, err)

	require.Equal(t, uint64(0x40000), first.DeviceAddress())
	require.Equal(t, uint64(0x40000+256), second.DeviceAddress())
}

func TestLargePageFreeErrorsAreReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, manager := mockManager(t, ctrl, backend.PageKindDeviceExclusive, 64)

	memory := mockMemory(ctrl, 4096, 0x2000, nil)
	memory.EXPECT().Free().Return(errors.New("device lost"))
	device.EXPECT().AllocatePageMemory(backend.PageKindDeviceExclusive, 4096).Return(memory, nil)

	page, err := manager.RequestLargePage(4096)
	require.NoError(t, err)
	require.NoError(t, manager.DiscardLargePage(page, 4))

	reclaimed, err := manager.UpdateAvailablePages(func(value fence.Value) bool { return value < 4 })
	require.NoError(t, err)
	require.Zero(t, reclaimed)

	reclaimed, err = manager.UpdateAvailablePages(func(value fence.Value) bool { return true })
	require.ErrorContains(t, err, "device lost")
	require.Equal(t, 1, reclaimed)
	require.Equal(t, 0, manager.PageCount())
}

func TestPrintDetailedMap(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, manager := mockManager(t, ctrl, backend.PageKindDeviceExclusive, 1024)

	memory := mockMemory(ctrl, 1024, 0x1000, nil)
	device.EXPECT().AllocatePageMemory(backend.PageKindDeviceExclusive, 1024).Return(memory, nil)

	page, err := manager.RequestPage()
	require.NoError(t, err)
	require.NoError(t, manager.DiscardPage(page, 2))

	writer := jwriter.NewWriter()
	manager.PrintDetailedMap(&writer)
	require.NoError(t, writer.Error())
	require.JSONEq(t, `{
		"Kind": "PageKindDeviceExclusive",
		"DefaultPageSize": 1024,
		"AvailablePages": 0,
		"RetiredPages": 1,
		"Pages": {
			"1": {"Size": 1024, "Cursor": 0, "Allocations": 0, "Large": false, "Pooled": true}
		}
	}`, string(writer.Bytes()))
}
