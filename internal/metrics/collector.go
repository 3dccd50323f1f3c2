// Package metrics exposes the coordinator's metrics snapshot as a Prometheus
// collector, so the observability collaborator can scrape cluster health
// without any extra bookkeeping inside the core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamware/corral/internal/cluster"
)

// Collector adapts a MetricsSnapshot source to the Prometheus collection
// model. Every scrape takes one fresh snapshot; there is no cached state and
// the collector itself is stateless, so a single instance is safe for
// concurrent scrapes.
type Collector struct {
	snapshot func() cluster.MetricsSnapshot

	nodes         *prometheus.Desc
	loadAverage   *prometheus.Desc
	loadP50       *prometheus.Desc
	loadP95       *prometheus.Desc
	utilization   *prometheus.Desc
	evictions     *prometheus.Desc
	sweepErrors   *prometheus.Desc
	droppedEvents *prometheus.Desc
}

// NewCollector creates a collector reading snapshots from fn, typically
// Coordinator.Metrics.
func NewCollector(fn func() cluster.MetricsSnapshot) *Collector {
	return &Collector{
		snapshot: fn,
		nodes: prometheus.NewDesc("corral_nodes",
			"Registered nodes by status.", []string{"status"}, nil),
		loadAverage: prometheus.NewDesc("corral_load_average",
			"Average load across registered nodes.", nil, nil),
		loadP50: prometheus.NewDesc("corral_load_p50",
			"Median node load.", nil, nil),
		loadP95: prometheus.NewDesc("corral_load_p95",
			"95th percentile node load.", nil, nil),
		utilization: prometheus.NewDesc("corral_pool_utilization",
			"Active nodes relative to the configured maximum.", nil, nil),
		evictions: prometheus.NewDesc("corral_evictions_total",
			"Nodes evicted by the heartbeat monitor.", nil, nil),
		sweepErrors: prometheus.NewDesc("corral_sweep_errors_total",
			"Per-node failures isolated during heartbeat sweeps.", nil, nil),
		droppedEvents: prometheus.NewDesc("corral_dropped_events_total",
			"Events discarded because the dispatch buffer was full.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodes
	ch <- c.loadAverage
	ch <- c.loadP50
	ch <- c.loadP95
	ch <- c.utilization
	ch <- c.evictions
	ch <- c.sweepErrors
	ch <- c.droppedEvents
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ms := c.snapshot()

	for status, count := range ms.NodesByStatus {
		ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue,
			float64(count), string(status))
	}
	ch <- prometheus.MustNewConstMetric(c.loadAverage, prometheus.GaugeValue, ms.AverageLoad)
	ch <- prometheus.MustNewConstMetric(c.loadP50, prometheus.GaugeValue, ms.P50Load)
	ch <- prometheus.MustNewConstMetric(c.loadP95, prometheus.GaugeValue, ms.P95Load)
	ch <- prometheus.MustNewConstMetric(c.utilization, prometheus.GaugeValue, ms.PoolUtilization)
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(ms.EvictionsTotal))
	ch <- prometheus.MustNewConstMetric(c.sweepErrors, prometheus.CounterValue, float64(ms.SweepErrorsTotal))
	ch <- prometheus.MustNewConstMetric(c.droppedEvents, prometheus.CounterValue, float64(ms.DroppedEventsTotal))
}
