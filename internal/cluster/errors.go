package cluster

import "errors"

// Error taxonomy for the coordination core. Every failure mode is a
// recoverable signal returned to the immediate caller; nothing in this
// module terminates the process. Callers match with errors.Is, since the
// components wrap these sentinels with context via fmt.Errorf("…: %w", …).
var (
	// ErrNotFound is returned when an operation references a node id the
	// registry does not know. Recoverable: the caller should retry against a
	// fresh snapshot or have the node re-register.
	ErrNotFound = errors.New("node not found")

	// ErrNoEligibleNode is returned by the load balancer when no active node
	// declares a superset of the required capabilities. Recoverable: back
	// off and retry, or raise capacity.
	ErrNoEligibleNode = errors.New("no eligible node")

	// ErrStaleVersion is returned when a state write carries a version at or
	// below the stored version. Recoverable: re-pull and retry with a fresh
	// version.
	ErrStaleVersion = errors.New("stale state version")

	// ErrCapacityExceeded is returned when registration would push the
	// registry past its configured maximum. Recoverable: wait for capacity.
	ErrCapacityExceeded = errors.New("registry capacity exceeded")

	// ErrConfigurationInvalid is returned from coordinator construction when
	// a configuration invariant (e.g. min_nodes <= max_nodes) is violated.
	// Fatal to startup, never seen after a coordinator is running.
	ErrConfigurationInvalid = errors.New("configuration invalid")
)
