// Package balancer implements capability-aware, load-aware node selection.
// See doc.go for complete package documentation.
package balancer

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/dreamware/corral/internal/cluster"
)

// SnapshotSource supplies the point-in-time cluster view a placement decision
// is made against. The registry satisfies it; tests supply fixed slices.
type SnapshotSource interface {
	Snapshot() []cluster.NodeRecord
}

// Balancer selects the best node for a placement request using a greedy
// least-loaded policy over capability-matching active nodes.
//
// The policy is deliberately simple: it needs no shared counters, no ring
// state, and degrades gracefully as nodes join and leave. Determinism for a
// fixed snapshot (ties broken by smallest id) makes placements reproducible
// under test.
type Balancer struct {
	source SnapshotSource
	log    *zap.Logger
}

// New creates a balancer reading cluster views from source.
func New(source SnapshotSource, log *zap.Logger) *Balancer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Balancer{source: source, log: log}
}

// Select returns the node that should receive work requiring the given
// capability set.
//
// Algorithm:
//  1. Take one snapshot. The decision never re-reads the registry, so a
//     node evicted mid-call cannot be selected if it was already gone when
//     the call began.
//  2. Filter to status active whose capabilities are a superset of required.
//     Draining and dead nodes never receive new work.
//  3. Among survivors pick minimum load; break ties by smallest id.
//
// Returns cluster.ErrNoEligibleNode when no node passes the filter.
func (b *Balancer) Select(required cluster.CapabilitySet) (cluster.NodeRecord, error) {
	snapshot := b.source.Snapshot()

	candidates := filter(snapshot, required)
	if len(candidates) == 0 {
		return cluster.NodeRecord{}, fmt.Errorf("%w: no active node offers [%s] among %d nodes",
			cluster.ErrNoEligibleNode, required, len(snapshot))
	}

	best := score(candidates)
	b.log.Debug("placement decided",
		zap.String("node_id", best.ID),
		zap.Float64("load", best.Load),
		zap.Stringer("required", required),
		zap.Int("candidates", len(candidates)))
	return best, nil
}

// ClusterLoad returns the average load across active nodes in one snapshot,
// or zero for an empty cluster. The optimizer uses this as its aggregate
// load signal.
func (b *Balancer) ClusterLoad() float64 {
	var sum float64
	var n int
	for _, rec := range b.source.Snapshot() {
		if rec.Status != cluster.NodeStatusActive {
			continue
		}
		sum += rec.Load
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// filter keeps the records eligible for the request: active status and a
// capability superset of required.
func filter(snapshot []cluster.NodeRecord, required cluster.CapabilitySet) []cluster.NodeRecord {
	candidates := make([]cluster.NodeRecord, 0, len(snapshot))
	for _, rec := range snapshot {
		if rec.Status != cluster.NodeStatusActive {
			continue
		}
		if !rec.Capabilities.Superset(required) {
			continue
		}
		candidates = append(candidates, rec)
	}
	return candidates
}

// score orders candidates by (load, id) ascending and returns the winner.
// Callers guarantee candidates is non-empty.
func score(candidates []cluster.NodeRecord) cluster.NodeRecord {
	slices.SortFunc(candidates, func(a, b cluster.NodeRecord) int {
		switch {
		case a.Load < b.Load:
			return -1
		case a.Load > b.Load:
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return candidates[0]
}
