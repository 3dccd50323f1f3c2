package cluster

// MetricsSnapshot is the point-in-time observability view the coordinator
// exposes to collaborators. It is computed on demand from a registry
// snapshot plus the coordinator's monotonic counters; holding one never
// pins any live state.
type MetricsSnapshot struct {
	// NodesByStatus counts registered nodes per status.
	NodesByStatus map[NodeStatus]int `json:"nodes_by_status"`

	// TotalNodes is the registry size at snapshot time.
	TotalNodes int `json:"total_nodes"`

	// AverageLoad, P50Load and P95Load summarize the load distribution over
	// all registered nodes. Zero when the registry is empty.
	AverageLoad float64 `json:"average_load"`
	P50Load     float64 `json:"p50_load"`
	P95Load     float64 `json:"p95_load"`

	// PoolUtilization is active nodes divided by the configured maximum,
	// in [0, 1].
	PoolUtilization float64 `json:"pool_utilization"`

	// EvictionsTotal counts nodes removed by the heartbeat monitor since
	// the coordinator started.
	EvictionsTotal uint64 `json:"evictions_total"`

	// SweepErrorsTotal counts per-node failures isolated during heartbeat
	// sweeps since the coordinator started.
	SweepErrorsTotal uint64 `json:"sweep_errors_total"`

	// DroppedEventsTotal counts events discarded because the dispatch
	// buffer was full. A rising value means a listener is too slow.
	DroppedEventsTotal uint64 `json:"dropped_events_total"`
}
