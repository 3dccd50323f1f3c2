package cluster

import (
	"time"
)

// NodeStatus represents the lifecycle state of a cluster member.
type NodeStatus string

const (
	// NodeStatusActive means the node is accepting new work.
	NodeStatusActive NodeStatus = "active"
	// NodeStatusDraining means the node should receive no new work while it
	// finishes existing work before removal.
	NodeStatusDraining NodeStatus = "draining"
	// NodeStatusDead means the node missed its heartbeat deadline or was
	// explicitly unregistered. A dead record only exists transiently while
	// eviction is in flight.
	NodeStatusDead NodeStatus = "dead"
)

// Valid reports whether s is one of the defined node statuses.
func (s NodeStatus) Valid() bool {
	switch s {
	case NodeStatusActive, NodeStatusDraining, NodeStatusDead:
		return true
	}
	return false
}

// NodeRecord describes one cluster member as tracked by the registry.
//
// Records are value types: every read path in the system receives a copy,
// never a pointer into the registry's map. Mutation happens only through the
// registry's own methods, which serialize writers behind its lock.
//
// Invariants:
//   - ID is unique within the registry and immutable once assigned.
//   - Addr is immutable once registered; a node that comes back after
//     eviction registers again and receives a brand-new ID and record.
//   - LastHeartbeat never decreases for a given ID while the record exists.
type NodeRecord struct {
	LastHeartbeat time.Time     `json:"last_heartbeat"` // Stamped on registration and every status report
	ID            string        `json:"id"`             // Opaque unique identifier, assigned at registration
	Addr          string        `json:"addr"`           // host:port of the node, immutable
	Capabilities  CapabilitySet `json:"capabilities"`   // Work tags the node declared at registration
	Load          float64       `json:"load"`           // Current utilization, [0, +inf), higher = busier
	Status        NodeStatus    `json:"status"`         // active, draining, or dead
}

// Clone returns a deep copy of the record, safe to hand to callers without
// exposing the registry's internal state.
func (n NodeRecord) Clone() NodeRecord {
	out := n
	out.Capabilities = n.Capabilities.Clone()
	return out
}

// Expired reports whether the record's heartbeat is older than timeout
// relative to now.
func (n NodeRecord) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(n.LastHeartbeat) > timeout
}

// RecommendationAction is the kind of capacity change the resource optimizer
// suggests to the external provisioning collaborator.
type RecommendationAction string

const (
	// ActionScaleUp suggests adding one node to the pool.
	ActionScaleUp RecommendationAction = "scale_up"
	// ActionScaleDown suggests draining one node out of the pool.
	ActionScaleDown RecommendationAction = "scale_down"
	// ActionNone means the pool is within its configured watermarks.
	ActionNone RecommendationAction = "none"
)

// Recommendation is the advisory output of one optimizer cycle. The
// coordinator emits it as an event; nothing in this module acts on it
// directly; provisioning is an external collaborator's job.
type Recommendation struct {
	Action       RecommendationAction `json:"action"`
	TargetNodeID string               `json:"target_node_id,omitempty"` // Set for scale_down: the node to drain
	Reason       string               `json:"reason,omitempty"`         // Human-readable rationale for operators
}
