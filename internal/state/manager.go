// Package state implements the shared state view: versioned per-node blobs
// with best-effort convergence. See doc.go for complete package
// documentation.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/corral/internal/cluster"
)

// NodeLookup answers whether a node currently exists in the registry. The
// registry satisfies it; tests supply fakes.
type NodeLookup interface {
	Get(id string) (cluster.NodeRecord, bool)
}

// Snapshot is the externally visible state blob associated with a node.
// Payload is opaque to the coordination core and always copied on the way in
// and out.
type Snapshot struct {
	WrittenAt time.Time // Wall-clock time of the accepted write, tie-breaker for equal versions
	NodeID    string
	Checksum  string // Hex sha256 of Payload, recomputed on every accepted write
	Payload   []byte
	Version   uint64 // Monotonically increasing per node
}

// DivergenceKind classifies a consistency-check finding.
type DivergenceKind string

const (
	// DivergenceOrphaned means the state's node is absent from the registry
	// (or transiently dead); the entry was garbage-collected.
	DivergenceOrphaned DivergenceKind = "orphaned"
	// DivergenceChecksum means a stored payload no longer matches its
	// recorded checksum. This indicates corruption and the entry is kept for
	// inspection.
	DivergenceChecksum DivergenceKind = "checksum_mismatch"
)

// Divergence is one finding from a consistency sweep.
type Divergence struct {
	Kind    DivergenceKind
	NodeID  string
	Version uint64
	Detail  string
}

type entry struct {
	writtenAt time.Time
	checksum  string
	payload   []byte
	version   uint64
	orphaned  bool // Set by Invalidate; collected on the next sweep
}

// Manager stores one versioned state blob per node and reconciles the store
// against registry membership on periodic consistency sweeps.
//
// Writes are last-writer-wins by version: a push at or below the stored
// version is rejected with ErrStaleVersion, and replica ingestion resolves
// equal versions by latest wall-clock write. Strict consensus is deliberately
// out of scope; transient divergence self-heals on the next sweep.
type Manager struct {
	clock  func() time.Time
	nodes  NodeLookup
	states map[string]*entry
	log    *zap.Logger
	mu     sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the manager's time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// NewManager creates a state manager validating node ids against nodes.
func NewManager(nodes NodeLookup, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		clock:  time.Now,
		nodes:  nodes,
		states: make(map[string]*entry),
		log:    log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Push stores payload for nodeID at the given version.
//
// Returns:
//   - cluster.ErrNotFound when the registry has no live record for nodeID,
//     or the record is dead
//   - cluster.ErrStaleVersion when version <= the stored version; the stored
//     state is untouched
//
// The payload is copied in; callers keep ownership of their slice.
func (m *Manager) Push(nodeID string, payload []byte, version uint64) error {
	rec, ok := m.nodes.Get(nodeID)
	if !ok || rec.Status == cluster.NodeStatusDead {
		return fmt.Errorf("%w: cannot push state for %s", cluster.ErrNotFound, nodeID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, exists := m.states[nodeID]; exists && version <= cur.version {
		return fmt.Errorf("%w: node %s holds version %d, push carried %d",
			cluster.ErrStaleVersion, nodeID, cur.version, version)
	}

	m.states[nodeID] = &entry{
		payload:   append([]byte(nil), payload...),
		version:   version,
		checksum:  checksum(payload),
		writtenAt: m.clock(),
	}
	m.log.Debug("state pushed",
		zap.String("node_id", nodeID),
		zap.Uint64("version", version),
		zap.Int("bytes", len(payload)))
	return nil
}

// Pull returns the stored state for nodeID, or false when none exists. The
// payload is a copy; mutating it never touches the store.
func (m *Manager) Pull(nodeID string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cur, ok := m.states[nodeID]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		NodeID:    nodeID,
		Payload:   append([]byte(nil), cur.payload...),
		Version:   cur.version,
		Checksum:  cur.checksum,
		WrittenAt: cur.writtenAt,
	}, true
}

// Reconcile ingests a state replica observed elsewhere (e.g. relayed over
// the external broadcast channel) and applies last-writer-wins resolution:
// a higher version always wins, an equal version wins only with a later
// wall-clock write, and anything older is ignored. It reports whether the
// local store changed.
//
// Unlike Push, Reconcile does not require a live registry record: during
// convergence a blob may briefly outlive its node, and the next consistency
// sweep will collect it if the node never comes back.
func (m *Manager) Reconcile(nodeID string, payload []byte, version uint64, writtenAt time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.states[nodeID]
	if exists {
		if version < cur.version {
			return false
		}
		if version == cur.version && !writtenAt.After(cur.writtenAt) {
			return false
		}
	}

	m.states[nodeID] = &entry{
		payload:   append([]byte(nil), payload...),
		version:   version,
		checksum:  checksum(payload),
		writtenAt: writtenAt,
	}
	m.log.Debug("state reconciled",
		zap.String("node_id", nodeID),
		zap.Uint64("version", version))
	return true
}

// Invalidate marks nodeID's state as orphaned after its node was evicted.
// The entry stays readable until the next consistency sweep collects it;
// eviction and garbage collection are deliberately decoupled so a sweep in
// flight never races a removal.
func (m *Manager) Invalidate(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.states[nodeID]; ok {
		cur.orphaned = true
	}
}

// ConsistencyCheck compares every stored state against registry membership
// and content checksums, returning one report per divergence found, ordered
// by node id.
//
// Orphaned entries (previously invalidated, or whose node is now absent or
// dead) are garbage-collected as part of the sweep. Checksum mismatches are
// reported but retained, since destroying the only copy of a corrupt blob
// helps nobody.
func (m *Manager) ConsistencyCheck() []Divergence {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reports []Divergence
	for nodeID, cur := range m.states {
		rec, ok := m.nodes.Get(nodeID)
		if cur.orphaned || !ok || rec.Status == cluster.NodeStatusDead {
			reports = append(reports, Divergence{
				Kind:    DivergenceOrphaned,
				NodeID:  nodeID,
				Version: cur.version,
				Detail:  "owning node absent from registry",
			})
			delete(m.states, nodeID)
			continue
		}
		if got := checksum(cur.payload); got != cur.checksum {
			reports = append(reports, Divergence{
				Kind:    DivergenceChecksum,
				NodeID:  nodeID,
				Version: cur.version,
				Detail:  fmt.Sprintf("stored checksum %s, recomputed %s", cur.checksum, got),
			})
		}
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].NodeID < reports[j].NodeID })
	if len(reports) > 0 {
		m.log.Warn("consistency sweep found divergences", zap.Int("count", len(reports)))
	}
	return reports
}

// Len returns the number of stored state entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// checksum returns the hex sha256 digest of payload.
func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
