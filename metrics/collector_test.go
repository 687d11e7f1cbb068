package metrics

import (
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/transient"
	"github.com/vkngwrapper/transient/backend"
	"github.com/vkngwrapper/transient/backend/hostmem"
	"github.com/vkngwrapper/transient/fence"
	"golang.org/x/exp/slog"
)

func readyContext(t *testing.T) (*fence.Timeline, *transient.AllocatorContext) {
	timeline := &fence.Timeline{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	allocatorContext, err := transient.New(logger, hostmem.NewPageDevice(), hostmem.NewDescriptorDevice(), transient.CreateOptions{
		DeviceExclusivePageSize: 256,
		CPUWritablePageSize:     1024,
		Fence:                   timeline,
	})
	require.NoError(t, err)

	return timeline, allocatorContext
}

func gaugeValue(t *testing.T, registry *prometheus.Registry, name string, label string) float64 {
	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetValue() == label {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}

	require.Failf(t, "metric not found", "%s{%s}", name, label)
	return 0
}

func TestCollectorCount(t *testing.T) {
	_, allocatorContext := readyContext(t)
	collector := NewCollector(allocatorContext)

	require.Equal(t, 7*int(backend.PageKindCount)+2*int(backend.DescriptorKindCount), testutil.CollectAndCount(collector))
	require.Equal(t, int(backend.PageKindCount), testutil.CollectAndCount(collector, "transient_pages_count"))
	require.Equal(t, int(backend.DescriptorKindCount), testutil.CollectAndCount(collector, "transient_descriptor_heaps_count"))

	require.NoError(t, allocatorContext.Destroy())
}

func TestCollectorTracksPages(t *testing.T) {
	timeline, allocatorContext := readyContext(t)

	registry := prometheus.NewPedanticRegistry()
	registry.MustRegister(NewCollector(allocatorContext))

	scratch, err := allocatorContext.NewLinearAllocator(backend.PageKindDeviceExclusive)
	require.NoError(t, err)

	_, err = scratch.Allocate(100, 16)
	require.NoError(t, err)
	_, err = scratch.Allocate(1000, 16)
	require.NoError(t, err)

	scratchLabel := backend.PageKindDeviceExclusive.String()
	require.Equal(t, float64(2), gaugeValue(t, registry, "transient_pages_count", scratchLabel))
	require.Equal(t, float64(1), gaugeValue(t, registry, "transient_large_pages_count", scratchLabel))
	require.Equal(t, float64(2), gaugeValue(t, registry, "transient_allocations_live", scratchLabel))
	require.Equal(t, float64(0), gaugeValue(t, registry, "transient_pages_count", backend.PageKindCPUWritable.String()))

	submitted := timeline.Next()
	require.NoError(t, scratch.SetFence(submitted))
	require.Equal(t, float64(2), gaugeValue(t, registry, "transient_pages_retired", scratchLabel))

	timeline.Signal(submitted)
	_, err = allocatorContext.UpdateAvailablePages()
	require.NoError(t, err)

	require.Equal(t, float64(1), gaugeValue(t, registry, "transient_pages_count", scratchLabel))
	require.Equal(t, float64(1), gaugeValue(t, registry, "transient_pages_available", scratchLabel))
	require.Equal(t, float64(0), gaugeValue(t, registry, "transient_large_pages_count", scratchLabel))
	require.Equal(t, float64(0), gaugeValue(t, registry, "transient_descriptor_heaps_count", backend.DescriptorKindView.String()))

	require.NoError(t, allocatorContext.Destroy())
}
