// Package cluster defines the shared data model for Corral's coordination
// core: node records, capability sets, the error taxonomy, lifecycle events,
// configuration, and the metrics snapshot shape.
//
// # Overview
//
// Every other package in the module depends on this one and on nothing else
// inside the module, which keeps the dependency graph a clean fan-in:
//
//	registry ──┐
//	balancer ──┤
//	state    ──┼──► cluster (model only, no behavior loops)
//	optimizer──┤
//	coordinator┘
//
// The package deliberately contains no goroutines, no locks beyond what a
// value type needs, and no I/O. Behavior lives in the component packages;
// this one only pins down the vocabulary they share.
//
// # Value Semantics
//
// NodeRecord and CapabilitySet are handed across package boundaries by copy.
// The registry is the only holder of live records; everything it returns is
// cloned first. This is the module-wide rule that eliminates torn reads and
// iterator invalidation by construction: if you are outside the registry,
// what you hold is a snapshot, and it can never change under you.
//
// # Error Taxonomy
//
// All recoverable failure modes are sentinel errors declared here
// (ErrNotFound, ErrNoEligibleNode, ErrStaleVersion, ErrCapacityExceeded) and
// wrapped with context by the components; match them with errors.Is. The one
// startup-fatal signal is ErrConfigurationInvalid, produced only by
// Config.Validate.
//
// # Events
//
// The coordinator narrates cluster life through Event values
// (node.registered, node.lost, node.status_changed,
// optimizer.recommendation). Listeners are registered before startup and
// invoked serially on a dedicated dispatch goroutine, so they observe events
// in emission order without ever holding up registry writers.
package cluster
