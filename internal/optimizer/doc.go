// Package optimizer implements Corral's ResourceOptimizer: a periodic,
// purely advisory capacity planner.
//
// # Signals
//
// Each cycle combines two signals:
//
//   - Aggregate cluster load: the average load over active registry records,
//     on the same [0, 100] scale as the configured watermarks.
//   - Host resource pressure (optional): CPU and memory percentages sampled
//     from /proc via ProcSampler, standing in for the deployment's own
//     telemetry when the coordinator runs next to the workload.
//
// Host pressure can only push the decision toward scale-up (or veto a
// scale-down); it never triggers a scale-down by itself, since an idle
// coordinator host says nothing about a busy fleet.
//
// # Decisions
//
// scale_up when pressure exceeds the high watermark and the pool has room;
// scale_down (naming the least-loaded active node as the drain target)
// when aggregate load sits below the low watermark and the pool is above its
// minimum; none otherwise. The at-capacity case is reported as none with an
// explanatory reason so operators can see the pool is saturated.
//
// # Advisory boundary
//
// The optimizer mutates nothing. The coordinator emits each non-trivial
// recommendation as an event and performs drain marking on the registry;
// actually adding or removing machines belongs to the external provisioning
// collaborator. Cycles never fail: sampler errors degrade the cycle to
// aggregate load alone.
package optimizer
