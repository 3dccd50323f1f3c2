// Package registry implements the authoritative in-memory store of cluster
// membership. See doc.go for complete package documentation.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dreamware/corral/internal/cluster"
)

// Registry is the authoritative mapping of node id to node record. It is the
// only shared mutable structure in the coordination core: every other
// component reads point-in-time copies taken through Snapshot or Get and
// requests mutation through the coordinator.
//
// Concurrency Model:
//   - All mutations take the write lock, giving global serialization. At the
//     expected scale (tens to low hundreds of nodes) this is cheaper than
//     per-node locking and leaves no room for id-level races.
//   - Reads take the read lock and return deep copies, never live records.
//
// Time is read through an injectable clock so eviction behavior is
// deterministic under test.
type Registry struct {
	clock    func() time.Time
	nodes    map[string]*cluster.NodeRecord
	log      *zap.Logger
	maxNodes int
	mu       sync.RWMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the registry's time source. Tests use this to drive
// heartbeat expiry without sleeping.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithLogger sets the registry's logger. Defaults to zap.NewNop.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// New creates a registry bounded at maxNodes records.
func New(maxNodes int, opts ...Option) *Registry {
	r := &Registry{
		nodes:    make(map[string]*cluster.NodeRecord),
		maxNodes: maxNodes,
		clock:    time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register allocates a fresh unique id and inserts an active record with
// zero load and LastHeartbeat set to now.
//
// Returns:
//   - The new node id on success
//   - cluster.ErrCapacityExceeded when the registry is at its maximum
//
// Registration never reuses ids: a node that was evicted and comes back is a
// brand-new record with no state carried over.
func (r *Registry) Register(addr string, caps cluster.CapabilitySet) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.nodes) >= r.maxNodes {
		return "", fmt.Errorf("%w: registry holds %d of %d nodes", cluster.ErrCapacityExceeded, len(r.nodes), r.maxNodes)
	}

	id := uuid.NewString()
	r.nodes[id] = &cluster.NodeRecord{
		ID:            id,
		Addr:          addr,
		Capabilities:  caps.Clone(),
		Load:          0,
		Status:        cluster.NodeStatusActive,
		LastHeartbeat: r.clock(),
	}

	r.log.Info("node registered",
		zap.String("node_id", id),
		zap.String("addr", addr),
		zap.Stringer("capabilities", caps))
	return id, nil
}

// Unregister removes the record for id if present. Idempotent: removing an
// absent id is a no-op, not an error.
//
// Returns true when a record was actually removed, so the coordinator knows
// whether to emit a node-lost event.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[id]; !ok {
		return false
	}
	delete(r.nodes, id)
	r.log.Info("node unregistered", zap.String("node_id", id))
	return true
}

// Get returns a point-in-time copy of the record for id, or false when the
// id is unknown.
func (r *Registry) Get(id string) (cluster.NodeRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.nodes[id]
	if !ok {
		return cluster.NodeRecord{}, false
	}
	return rec.Clone(), true
}

// UpdateStatus records a status report from a node: it updates load and
// status and stamps LastHeartbeat with now.
//
// Returns:
//   - cluster.ErrNotFound when the id is unknown
//
// LastHeartbeat is monotone per record: a clock that momentarily reads
// earlier than the stored stamp never rolls it back.
func (r *Registry) UpdateStatus(id string, load float64, status cluster.NodeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", cluster.ErrNotFound, id)
	}

	rec.Load = load
	rec.Status = status
	if now := r.clock(); now.After(rec.LastHeartbeat) {
		rec.LastHeartbeat = now
	}
	return nil
}

// SetStatus changes only the status of a record, without refreshing its
// heartbeat. The coordinator uses this to mark a node draining on the
// optimizer's behalf: the node still has to keep reporting, and a draining
// node that falls silent is evicted like any other.
//
// Returns cluster.ErrNotFound when the id is unknown.
func (r *Registry) SetStatus(id string, status cluster.NodeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", cluster.ErrNotFound, id)
	}
	rec.Status = status
	return nil
}

// Snapshot returns a consistent point-in-time copy of every record, sorted
// by id for deterministic iteration. Callers own the returned slice; nothing
// in it aliases registry state.
func (r *Registry) Snapshot() []cluster.NodeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]cluster.NodeRecord, 0, len(r.nodes))
	for _, rec := range r.nodes {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the current number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// MaxNodes returns the configured registry bound.
func (r *Registry) MaxNodes() int {
	return r.maxNodes
}
