package cluster

import (
	"fmt"
	"time"
)

// Config carries the externally supplied tuning values for the coordination
// core. All values are validated once, at coordinator construction; after
// that the configuration is immutable.
type Config struct {
	// HeartbeatInterval is how often the heartbeat monitor sweeps the
	// registry for expired nodes.
	HeartbeatInterval time.Duration

	// NodeTimeout is how long a node may go without a status report before
	// the next sweep evicts it.
	NodeTimeout time.Duration

	// OptimizeInterval is how often the resource optimizer runs a cycle.
	// Typically much longer than HeartbeatInterval.
	OptimizeInterval time.Duration

	// DrainTimeout caps how long a draining node is kept around waiting for
	// its load to reach zero before it is evicted anyway.
	DrainTimeout time.Duration

	// MinNodes and MaxNodes bound the pool. MaxNodes also caps registry
	// registrations (ErrCapacityExceeded beyond it).
	MinNodes int
	MaxNodes int

	// Resource watermarks, percentages in [0, 100]. The optimizer recommends
	// scale-up above the high marks and scale-down below the low marks.
	CPUHighThreshold    float64
	CPULowThreshold     float64
	MemoryHighThreshold float64
	MemoryLowThreshold  float64
}

// DefaultConfig returns the stock tuning: sweep every 10s, evict after 30s of
// silence, optimize every minute, CPU watermarks 80/20, memory 85/30.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:   10 * time.Second,
		NodeTimeout:         30 * time.Second,
		OptimizeInterval:    60 * time.Second,
		DrainTimeout:        5 * time.Minute,
		MinNodes:            1,
		MaxNodes:            100,
		CPUHighThreshold:    80,
		CPULowThreshold:     20,
		MemoryHighThreshold: 85,
		MemoryLowThreshold:  30,
	}
}

// Validate checks every configuration invariant and returns
// ErrConfigurationInvalid (wrapped with the offending field) on the first
// violation. The coordinator fails fast on this at construction.
func (c Config) Validate() error {
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval must be positive, got %v", ErrConfigurationInvalid, c.HeartbeatInterval)
	}
	if c.NodeTimeout <= 0 {
		return fmt.Errorf("%w: node_timeout must be positive, got %v", ErrConfigurationInvalid, c.NodeTimeout)
	}
	if c.OptimizeInterval <= 0 {
		return fmt.Errorf("%w: optimization_interval must be positive, got %v", ErrConfigurationInvalid, c.OptimizeInterval)
	}
	if c.DrainTimeout <= 0 {
		return fmt.Errorf("%w: drain_timeout must be positive, got %v", ErrConfigurationInvalid, c.DrainTimeout)
	}
	if c.MinNodes < 0 {
		return fmt.Errorf("%w: min_nodes must be non-negative, got %d", ErrConfigurationInvalid, c.MinNodes)
	}
	if c.MaxNodes <= 0 {
		return fmt.Errorf("%w: max_nodes must be positive, got %d", ErrConfigurationInvalid, c.MaxNodes)
	}
	if c.MinNodes > c.MaxNodes {
		return fmt.Errorf("%w: min_nodes (%d) exceeds max_nodes (%d)", ErrConfigurationInvalid, c.MinNodes, c.MaxNodes)
	}
	for name, pair := range map[string][2]float64{
		"cpu":    {c.CPULowThreshold, c.CPUHighThreshold},
		"memory": {c.MemoryLowThreshold, c.MemoryHighThreshold},
	} {
		low, high := pair[0], pair[1]
		if low < 0 || low > 100 || high < 0 || high > 100 {
			return fmt.Errorf("%w: %s thresholds must be within [0, 100], got low=%.1f high=%.1f", ErrConfigurationInvalid, name, low, high)
		}
		if low >= high {
			return fmt.Errorf("%w: %s low threshold (%.1f) must be below high threshold (%.1f)", ErrConfigurationInvalid, name, low, high)
		}
	}
	return nil
}
