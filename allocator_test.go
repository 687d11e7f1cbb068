package transient

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/backend/hostmem"
	"github.com/vkngwrapper/transient/fence"
	"github.com/vkngwrapper/transient/memutils"
	"golang.org/x/exp/slog"
)

type ContextSetup struct {
	Options CreateOptions
}

func readyContext(t *testing.T, setup ContextSetup) (*hostmem.PageDevice, *hostmem.DescriptorDevice, *fence.Timeline, *AllocatorContext) {
	pages := hostmem.NewPageDevice()
	descriptors := hostmem.NewDescriptorDevice()
	timeline := &fence.Timeline{}

	options := setup.Options
	if options.Fence == nil {
		options.Fence = timeline
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	allocatorContext, err := New(logger, pages, descriptors, options)
	require.NoError(t, err)

	return pages, descriptors, timeline, allocatorContext
}

func TestNewDefaults(t *testing.T) {
	_, _, _, allocatorContext := readyContext(t, ContextSetup{})

	require.Equal(t, DefaultDeviceExclusivePageSize, allocatorContext.PageManager(backend.PageKindDeviceExclusive).DefaultSize())
	require.Equal(t, DefaultCPUWritablePageSize, allocatorContext.PageManager(backend.PageKindCPUWritable).DefaultSize())
	require.Equal(t, DefaultDescriptorHeapCapacity, allocatorContext.HeapPool(backend.DescriptorKindView).Capacity())
	require.Equal(t, DefaultDescriptorHeapCapacity, allocatorContext.HeapPool(backend.DescriptorKindSampler).Capacity())
	require.Nil(t, allocatorContext.PageManager(backend.PageKindCount))
	require.Nil(t, allocatorContext.HeapPool(backend.DescriptorKindCount))
	require.Equal(t, CreateFlags(0), allocatorContext.Flags())

	require.NoError(t, allocatorContext.Destroy())
}

func TestNewValidation(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	pages := hostmem.NewPageDevice()
	descriptors := hostmem.NewDescriptorDevice()

	_, err := New(logger, pages, descriptors, CreateOptions{})
	require.Error(t, err)

	_, err = New(nil, pages, descriptors, CreateOptions{Fence: &fence.Timeline{}})
	require.Error(t, err)

	_, err = New(logger, pages, descriptors, CreateOptions{
		Fence:               &fence.Timeline{},
		CPUWritablePageSize: 3000,
	})
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))

	_, err = New(logger, nil, descriptors, CreateOptions{Fence: &fence.Timeline{}})
	require.Error(t, err)

	_, err = New(logger, pages, nil, CreateOptions{Fence: &fence.Timeline{}})
	require.Error(t, err)

	_, err = New(logger, pages, descriptors, CreateOptions{
		Fence:                  &fence.Timeline{},
		DescriptorHeapCapacity: -1,
	})
	require.Error(t, err)
}

func TestCreateFlagsString(t *testing.T) {
	require.Equal(t, "CreateExternallySynchronized", CreateExternallySynchronized.String())
}

func TestUpdateAvailablePagesFollowsFence(t *testing.T) {
	pages, _, timeline, allocatorContext := readyContext(t, ContextSetup{
		Options: CreateOptions{
			Flags:                   CreateExternallySynchronized,
			DeviceExclusivePageSize: 256,
			CPUWritablePageSize:     512,
		},
	})

	upload, err := allocatorContext.NewLinearAllocator(backend.PageKindCPUWritable)
	require.NoError(t, err)
	scratch, err := allocatorContext.NewLinearAllocator(backend.PageKindDeviceExclusive)
	require.NoError(t, err)
	_, err = allocatorContext.NewLinearAllocator(backend.PageKindCount)
	require.Error(t, err)

	_, err = upload.Allocate(100, 16)
	require.NoError(t, err)
	_, err = scratch.Allocate(100, 16)
	require.NoError(t, err)
	_, err = scratch.Allocate(1000, 16)
	require.NoError(t, err)

	submitted := timeline.Next()
	require.NoError(t, upload.SetFence(submitted))
	require.NoError(t, scratch.SetFence(submitted))

	reclaimed, err := allocatorContext.UpdateAvailablePages()
	require.NoError(t, err)
	require.Zero(t, reclaimed)
	require.Equal(t, 3, pages.LiveCount())

	timeline.Signal(submitted)
	reclaimed, err = allocatorContext.UpdateAvailablePages()
	require.NoError(t, err)
	require.Equal(t, 3, reclaimed)
	require.Equal(t, 2, pages.LiveCount())

	var stats ContextStatistics
	allocatorContext.CalculateStatistics(&stats)
	require.Equal(t, 2, stats.Total.PageCount)
	require.Equal(t, 2, stats.Total.AvailablePageCount)
	require.Equal(t, 0, stats.Total.LargePageCount)
	require.Equal(t, 1, stats.PageKinds[backend.PageKindCPUWritable].PageCount)
	require.Equal(t, 512, stats.PageKinds[backend.PageKindCPUWritable].PageBytes)

	require.NoError(t, allocatorContext.Destroy())
	require.Zero(t, pages.LiveCount())
}

func TestBuildStatsString(t *testing.T) {
	_, _, _, allocatorContext := readyContext(t, ContextSetup{
		Options: CreateOptions{
			DeviceExclusivePageSize: 1024,
			CPUWritablePageSize:     1024,
			DescriptorHeapCapacity:  64,
		},
	})

	upload, err := allocatorContext.NewLinearAllocator(backend.PageKindCPUWritable)
	require.NoError(t, err)
	_, err = upload.Allocate(10, 4)
	require.NoError(t, err)

	var summary struct {
		Total struct {
			PageCount         int
			AllocationCount   int
			AllocationSizeMin int
			AllocationSizeMax int
		}
		PageKinds       map[string]map[string]any
		DescriptorKinds map[string]map[string]int
		DetailedMap     map[string]map[string]any
	}

	require.NoError(t, json.Unmarshal([]byte(allocatorContext.BuildStatsString(false)), &summary))
	require.Equal(t, 1, summary.Total.PageCount)
	require.Equal(t, 1, summary.Total.AllocationCount)
	require.Equal(t, 10, summary.Total.AllocationSizeMin)
	require.Equal(t, 10, summary.Total.AllocationSizeMax)
	require.Contains(t, summary.PageKinds, "PageKindCPUWritable")
	require.Equal(t, 64, summary.DescriptorKinds["DescriptorKindSampler"]["Capacity"])
	require.Nil(t, summary.DetailedMap)

	require.NoError(t, json.Unmarshal([]byte(allocatorContext.BuildStatsString(true)), &summary))
	require.Len(t, summary.DetailedMap, 4)
	require.Contains(t, summary.DetailedMap["PageKindCPUWritable"], "Pages")

	require.NoError(t, upload.Destroy())
	require.NoError(t, allocatorContext.Destroy())
}

func TestStatisticsWhileRecording(t *testing.T) {
	_, _, timeline, allocatorContext := readyContext(t, ContextSetup{
		Options: CreateOptions{CPUWritablePageSize: 512},
	})

	upload, err := allocatorContext.NewLinearAllocator(backend.PageKindCPUWritable)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 2000; i++ {
			_, err := upload.Allocate(16+i%200, 16)
			if err != nil {
				done <- err
				return
			}

			if i%50 == 49 {
				submitted := timeline.Next()
				err = upload.SetFence(submitted)
				if err != nil {
					done <- err
					return
				}
				timeline.Signal(submitted)
			}
		}
		done <- upload.Destroy()
	}()

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			_, err = allocatorContext.UpdateAvailablePages()
			require.NoError(t, err)
			require.NoError(t, allocatorContext.Destroy())
			return
		default:
		}

		var stats ContextStatistics
		allocatorContext.CalculateStatistics(&stats)
		require.True(t, json.Valid([]byte(allocatorContext.BuildStatsString(true))))

		_, err := allocatorContext.UpdateAvailablePages()
		require.NoError(t, err)
	}
}

func TestDestroyReportsOutstandingPages(t *testing.T) {
	pages, _, _, allocatorContext := readyContext(t, ContextSetup{
		Options: CreateOptions{CPUWritablePageSize: 1024},
	})

	upload, err := allocatorContext.NewLinearAllocator(backend.PageKindCPUWritable)
	require.NoError(t, err)
	_, err = upload.Allocate(10, 4)
	require.NoError(t, err)

	require.Error(t, allocatorContext.Destroy())
	require.Equal(t, 1, pages.LiveCount())

	require.NoError(t, upload.Destroy())
	require.NoError(t, allocatorContext.Destroy())
	require.Zero(t, pages.LiveCount())
}
