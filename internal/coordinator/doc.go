// Package coordinator implements Corral's ClusterCoordinator: the
// orchestrating façade that owns the node registry and drives the lifecycle
// of every other coordination component.
//
// # Architecture
//
// The coordinator is the only component with a start/stop lifecycle and the
// only one that mutates registry state on behalf of callers:
//
//	                 ┌───────────────────────────┐
//	 callers ──────► │       Coordinator         │ ──► events (listeners)
//	                 │                           │
//	                 │  registry   (owned)       │
//	                 │  balancer   (reads snaps) │
//	                 │  states     (reads snaps) │
//	                 │  optimizer  (reads snaps) │
//	                 │  monitor    (background)  │
//	                 └───────────────────────────┘
//
// Two background loops run between Start and Stop: the heartbeat monitor
// sweeps the registry on HeartbeatInterval and evicts nodes whose last
// heartbeat exceeds NodeTimeout (and completes drains); the optimization
// loop runs optimizer cycles and state consistency sweeps on
// OptimizeInterval. Stop cancels both and waits for the running iteration to
// finish, so no sweep is ever left mutating state after shutdown.
//
// # Eviction path
//
// The monitor decides, the coordinator acts. On expiry the monitor invokes
// the coordinator's evict callback, which removes the record, flags the
// node's shared state for collection on the next consistency sweep, bumps
// the eviction counter, and emits node.lost. Per-record failures inside a
// sweep are isolated and counted; one malformed record never aborts the
// sweep, let alone the loop.
//
// # Events
//
// All emission is non-blocking: events queue onto a buffered channel drained
// by a single dispatcher goroutine that calls listeners serially, in order.
// A listener can be slow without ever holding up a registry writer; if the
// buffer fills, events are dropped and counted rather than applying
// backpressure to the data path.
package coordinator
