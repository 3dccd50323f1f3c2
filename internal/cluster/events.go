package cluster

import "time"

// EventType identifies a lifecycle or advisory event emitted by the
// coordinator to its collaborators (dashboards, metrics collectors,
// provisioning tooling).
type EventType string

const (
	// EventNodeRegistered fires after a node joins the registry.
	EventNodeRegistered EventType = "node.registered"
	// EventNodeLost fires after a node is removed, whether by explicit
	// unregistration, heartbeat timeout, or drain completion. Reason says
	// which.
	EventNodeLost EventType = "node.lost"
	// EventNodeStatusChanged fires after a status report mutates a record.
	EventNodeStatusChanged EventType = "node.status_changed"
	// EventRecommendation fires after each optimizer cycle that produced a
	// non-trivial recommendation.
	EventRecommendation EventType = "optimizer.recommendation"
)

// Lost-node reasons carried in Event.Reason.
const (
	ReasonUnregistered   = "unregistered"
	ReasonHeartbeatLost  = "heartbeat timeout"
	ReasonDrainCompleted = "drain completed"
	ReasonDrainTimeout   = "drain timeout"
)

// Event is the single envelope for everything the coordinator tells the
// outside world. Fields beyond Type and Time are populated per event type;
// unused fields are zero.
type Event struct {
	Time           time.Time       `json:"time"`
	Type           EventType       `json:"type"`
	NodeID         string          `json:"node_id,omitempty"`
	Addr           string          `json:"addr,omitempty"`
	Capabilities   CapabilitySet   `json:"capabilities,omitempty"`
	Load           float64         `json:"load,omitempty"`
	Status         NodeStatus      `json:"status,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
}

// Listener receives coordinator events. Listeners run on the coordinator's
// dispatch goroutine, one event at a time, in emission order; a slow listener
// delays later events but never blocks the registry lock.
type Listener func(Event)
