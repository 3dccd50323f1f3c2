// Package registry implements Corral's NodeRegistry: the single authoritative
// in-memory mapping of node identity to node record.
//
// # Overview
//
// The registry is deliberately the only shared mutable structure in the
// entire coordination core. The heartbeat monitor, load balancer, state
// manager and resource optimizer all operate on snapshots copied out of it,
// and all mutation funnels through the coordinator into the registry's own
// methods. That single choice removes whole classes of bugs (torn reads,
// iterator invalidation, decisions made against a record that changed
// mid-decision) without any distributed machinery.
//
// # Locking
//
// A single sync.RWMutex serializes all writers globally. Correctness only
// demands per-id serialization, but at tens to low hundreds of nodes a
// global lock is held for nanoseconds per operation and is simpler to reason
// about than striped locking. Read paths (Get, Snapshot, Len) take the read
// lock and copy.
//
// # Identity
//
// Node ids are UUIDv4 strings allocated at registration and never reused.
// Re-registration after eviction yields a fresh id on purpose: the state
// manager must re-reconcile a returning node rather than trust whatever the
// old record claimed.
//
// # Heartbeats
//
// UpdateStatus stamps LastHeartbeat from the registry's clock, which is
// injectable for tests. The stamp is monotone per record: a stale clock
// reading never moves a heartbeat backwards, preserving the invariant the
// heartbeat monitor's expiry arithmetic relies on.
package registry
