package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/corral/internal/cluster"
)

// TestCollectorExportsSnapshot verifies the collector renders a snapshot
// into the expected Prometheus exposition.
func TestCollectorExportsSnapshot(t *testing.T) {
	c := NewCollector(func() cluster.MetricsSnapshot {
		return cluster.MetricsSnapshot{
			NodesByStatus: map[cluster.NodeStatus]int{
				cluster.NodeStatusActive:   3,
				cluster.NodeStatusDraining: 1,
				cluster.NodeStatusDead:     0,
			},
			TotalNodes:         4,
			AverageLoad:        12.5,
			P50Load:            10,
			P95Load:            40,
			PoolUtilization:    0.3,
			EvictionsTotal:     7,
			SweepErrorsTotal:   2,
			DroppedEventsTotal: 5,
		}
	})

	expected := `
# HELP corral_dropped_events_total Events discarded because the dispatch buffer was full.
# TYPE corral_dropped_events_total counter
corral_dropped_events_total 5
# HELP corral_evictions_total Nodes evicted by the heartbeat monitor.
# TYPE corral_evictions_total counter
corral_evictions_total 7
# HELP corral_load_average Average load across registered nodes.
# TYPE corral_load_average gauge
corral_load_average 12.5
# HELP corral_nodes Registered nodes by status.
# TYPE corral_nodes gauge
corral_nodes{status="active"} 3
corral_nodes{status="dead"} 0
corral_nodes{status="draining"} 1
# HELP corral_pool_utilization Active nodes relative to the configured maximum.
# TYPE corral_pool_utilization gauge
corral_pool_utilization 0.3
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"corral_nodes", "corral_load_average", "corral_pool_utilization",
		"corral_evictions_total", "corral_dropped_events_total")
	require.NoError(t, err)

	// Three per-status samples plus seven scalar metrics.
	assert.Equal(t, 10, testutil.CollectAndCount(c))
}
