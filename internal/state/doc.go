// Package state implements Corral's StateManager: one versioned, checksummed
// state blob per node, converging best-effort rather than by consensus.
//
// # Model
//
// Each node owns at most one blob, keyed by node id. A blob carries a
// monotonically increasing version, a wall-clock write time, and a sha256
// checksum of its payload. The payload itself is opaque bytes; the
// coordination core never parses it.
//
// # Write paths
//
// Push is the authoritative path: it validates the node against the registry
// and rejects any version at or below the stored one (ErrStaleVersion), so a
// writer that lost a race must re-pull and retry with a fresh version.
//
// Reconcile is the convergence path for replicas arriving from the external
// transport: last-writer-wins, where a higher version always wins and an
// equal version is broken by the later wall-clock write. Reconcile skips the
// registry check on purpose: during convergence a blob may briefly outlive
// its node, and the sweep cleans up whatever never re-registers.
//
// # Consistency sweeps
//
// ConsistencyCheck cross-references every entry against registry membership
// and its own checksum. Entries whose node is gone (or that eviction flagged
// via Invalidate) are reported as orphaned and garbage-collected; entries
// whose payload no longer matches their checksum are reported and kept.
// Eviction only flags and the sweep collects, so the
// heartbeat monitor never mutates state-store internals directly.
//
// # On (not) having consensus
//
// This is a deliberate trade inherited from the system's requirements: the
// shared view feeds load and capacity decisions where transient staleness is
// acceptable and self-heals within one sweep. A caller needing linearizable
// state would replace this package with a real consensus log, not extend it.
package state
