// Package balancer implements Corral's LoadBalancer: greedy least-loaded node
// selection constrained by capability matching.
//
// # Policy
//
// Selection is a two-phase filter-then-score pass, made against exactly one
// registry snapshot per decision:
//
//	snapshot ─► filter (active ∧ capability superset) ─► min(load, then id)
//
// Filtering excludes draining and dead nodes outright: a draining node
// finishes what it has but never receives new work. Scoring is pure
// least-loaded with ties broken by smallest id, which makes every decision
// reproducible for a fixed snapshot.
//
// # Why not round-robin or consistent hashing
//
// Weighted round-robin needs shared counters that would reintroduce mutable
// state outside the registry; consistent hashing optimizes for placement
// stickiness this core does not need, since tasks are ephemeral and carry no
// affinity. Least-loaded needs nothing but the snapshot it is handed and
// degrades gracefully when membership churns.
//
// # Snapshot discipline
//
// Select never re-reads the registry mid-decision. The snapshot is taken
// once, so the answer reflects all mutations that completed before the call
// began and cannot name a node that was already evicted at that point. A
// node evicted after the snapshot was taken can still be returned; callers
// handle that the same way they handle any placement that fails to launch:
// retry, and the next snapshot will not contain it.
package balancer
