// Package metrics exports the statistics of a transient.AllocatorContext to Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vkngwrapper/transient"
	"github.com/vkngwrapper/transient/backend"
)

const namespace = "transient"

// StatisticsSource is anything that can report allocator context statistics.
// *transient.AllocatorContext satisfies it.
type StatisticsSource interface {
	CalculateStatistics(stats *transient.ContextStatistics)
}

// Collector is a prometheus.Collector that samples a StatisticsSource every time it is scraped
type Collector struct {
	source StatisticsSource

	pages          *prometheus.Desc
	pageBytes      *prometheus.Desc
	availablePages *prometheus.Desc
	retiredPages   *prometheus.Desc
	largePages     *prometheus.Desc
	largePageBytes *prometheus.Desc
	allocations    *prometheus.Desc

	heaps        *prometheus.Desc
	retiredHeaps *prometheus.Desc
}

var _ prometheus.Collector = &Collector{}

func NewCollector(source StatisticsSource) *Collector {
	pageLabels := []string{"page_kind"}
	heapLabels := []string{"descriptor_kind"}

	return &Collector{
		source: source,

		pages: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pages", "count"),
			"Pages currently owned by the page manager, including large pages.", pageLabels, nil),
		pageBytes: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pages", "bytes"),
			"Bytes of backend memory backing the page manager's pages.", pageLabels, nil),
		availablePages: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pages", "available"),
			"Pages that can be handed out without allocating.", pageLabels, nil),
		retiredPages: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pages", "retired"),
			"Pages waiting for their fence to complete.", pageLabels, nil),
		largePages: prometheus.NewDesc(prometheus.BuildFQName(namespace, "large_pages", "count"),
			"Dedicated pages serving a single oversized allocation.", pageLabels, nil),
		largePageBytes: prometheus.NewDesc(prometheus.BuildFQName(namespace, "large_pages", "bytes"),
			"Bytes of backend memory backing large pages.", pageLabels, nil),
		allocations: prometheus.NewDesc(prometheus.BuildFQName(namespace, "allocations", "live"),
			"Allocations that have not been released.", pageLabels, nil),

		heaps: prometheus.NewDesc(prometheus.BuildFQName(namespace, "descriptor_heaps", "count"),
			"Shader-visible descriptor heaps created by the heap pool.", heapLabels, nil),
		retiredHeaps: prometheus.NewDesc(prometheus.BuildFQName(namespace, "descriptor_heaps", "retired"),
			"Shader-visible descriptor heaps waiting in the heap pool.", heapLabels, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pages
	ch <- c.pageBytes
	ch <- c.availablePages
	ch <- c.retiredPages
	ch <- c.largePages
	ch <- c.largePageBytes
	ch <- c.allocations
	ch <- c.heaps
	ch <- c.retiredHeaps
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var stats transient.ContextStatistics
	c.source.CalculateStatistics(&stats)

	for kind := range stats.PageKinds {
		label := backend.PageKind(kind).String()
		pageStats := &stats.PageKinds[kind]

		ch <- prometheus.MustNewConstMetric(c.pages, prometheus.GaugeValue, float64(pageStats.PageCount), label)
		ch <- prometheus.MustNewConstMetric(c.pageBytes, prometheus.GaugeValue, float64(pageStats.PageBytes), label)
		ch <- prometheus.MustNewConstMetric(c.availablePages, prometheus.GaugeValue, float64(pageStats.AvailablePageCount), label)
		ch <- prometheus.MustNewConstMetric(c.retiredPages, prometheus.GaugeValue, float64(pageStats.RetiredPageCount), label)
		ch <- prometheus.MustNewConstMetric(c.largePages, prometheus.GaugeValue, float64(pageStats.LargePageCount), label)
		ch <- prometheus.MustNewConstMetric(c.largePageBytes, prometheus.GaugeValue, float64(pageStats.LargePageBytes), label)
		ch <- prometheus.MustNewConstMetric(c.allocations, prometheus.GaugeValue, float64(pageStats.AllocationCount), label)
	}

	for kind, heapStats := range stats.DescriptorKinds {
		label := backend.DescriptorKind(kind).String()

		ch <- prometheus.MustNewConstMetric(c.heaps, prometheus.GaugeValue, float64(heapStats.HeapCount), label)
		ch <- prometheus.MustNewConstMetric(c.retiredHeaps, prometheus.GaugeValue, float64(heapStats.RetiredHeapCount), label)
	}
}
