package coordinator

import (
	"sort"

	"github.com/dreamware/corral/internal/cluster"
)

// Metrics computes the observability snapshot exposed to collaborators:
// node counts by status, load distribution summary, pool utilization, and
// the coordinator's monotonic counters. It reads one registry snapshot and
// holds no locks while summarizing.
func (c *Coordinator) Metrics() cluster.MetricsSnapshot {
	snapshot := c.registry.Snapshot()

	byStatus := map[cluster.NodeStatus]int{
		cluster.NodeStatusActive:   0,
		cluster.NodeStatusDraining: 0,
		cluster.NodeStatusDead:     0,
	}
	loads := make([]float64, 0, len(snapshot))
	var sum float64
	for _, rec := range snapshot {
		byStatus[rec.Status]++
		loads = append(loads, rec.Load)
		sum += rec.Load
	}

	ms := cluster.MetricsSnapshot{
		NodesByStatus:      byStatus,
		TotalNodes:         len(snapshot),
		EvictionsTotal:     c.evictions.Load(),
		SweepErrorsTotal:   c.sweepErrors.Load(),
		DroppedEventsTotal: c.droppedEvents.Load(),
	}
	if c.cfg.MaxNodes > 0 {
		ms.PoolUtilization = float64(byStatus[cluster.NodeStatusActive]) / float64(c.cfg.MaxNodes)
	}
	if len(loads) == 0 {
		return ms
	}

	sort.Float64s(loads)
	ms.AverageLoad = sum / float64(len(loads))
	ms.P50Load = percentile(loads, 0.50)
	ms.P95Load = percentile(loads, 0.95)
	return ms
}

// percentile returns the nearest-rank percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted)) + 0.5)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
