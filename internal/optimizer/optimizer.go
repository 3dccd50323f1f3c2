// Package optimizer implements periodic resource optimization: it inspects
// aggregate load and host resource metrics and emits advisory scaling
// recommendations. See doc.go for complete package documentation.
package optimizer

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/corral/internal/cluster"
)

// historyLimit bounds the retained sample window.
const historyLimit = 100

// ClusterView supplies the membership snapshot a cycle reasons over and the
// aggregate load signal, the latter normally served by the load balancer so
// scaling decisions and placement decisions read the same number.
type ClusterView interface {
	Snapshot() []cluster.NodeRecord
	ClusterLoad() float64
}

// ResourceSample is one observation of host resource pressure, expressed as
// percentages in [0, 100].
type ResourceSample struct {
	Time          time.Time
	CPUPercent    float64
	MemoryPercent float64
}

// Sampler produces resource samples. The production implementation reads
// /proc; tests supply canned values.
type Sampler interface {
	Sample() (ResourceSample, error)
}

// Thresholds are the watermarks a cycle compares its signals against.
// Percentages in [0, 100]; low must sit below high per resource.
type Thresholds struct {
	CPUHigh    float64
	CPULow     float64
	MemoryHigh float64
	MemoryLow  float64
}

// ThresholdsFromConfig extracts the optimizer watermarks from cfg.
func ThresholdsFromConfig(cfg cluster.Config) Thresholds {
	return Thresholds{
		CPUHigh:    cfg.CPUHighThreshold,
		CPULow:     cfg.CPULowThreshold,
		MemoryHigh: cfg.MemoryHighThreshold,
		MemoryLow:  cfg.MemoryLowThreshold,
	}
}

// Optimizer produces one scaling recommendation per cycle from the cluster
// load distribution and, when a sampler is wired, host resource pressure.
//
// The optimizer is advisory only: it never adds, drains, or removes nodes
// itself. The coordinator emits its recommendation as an event and handles
// drain marking; provisioning is an external collaborator.
type Optimizer struct {
	view       ClusterView
	sampler    Sampler // nil when no host metrics source is wired
	log        *zap.Logger
	history    []ResourceSample
	thresholds Thresholds
	minNodes   int
	maxNodes   int
	mu         sync.Mutex
}

// New creates an optimizer over the given cluster view. sampler may be nil,
// in which case cycles use aggregate load alone.
func New(view ClusterView, sampler Sampler, cfg cluster.Config, log *zap.Logger) *Optimizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Optimizer{
		view:       view,
		sampler:    sampler,
		log:        log,
		thresholds: ThresholdsFromConfig(cfg),
		minNodes:   cfg.MinNodes,
		maxNodes:   cfg.MaxNodes,
	}
}

// SetThresholds replaces the watermarks at runtime. Invalid watermarks
// (outside [0, 100], or low at or above high) are rejected with
// cluster.ErrConfigurationInvalid.
func (o *Optimizer) SetThresholds(t Thresholds) error {
	for name, pair := range map[string][2]float64{
		"cpu":    {t.CPULow, t.CPUHigh},
		"memory": {t.MemoryLow, t.MemoryHigh},
	} {
		low, high := pair[0], pair[1]
		if low < 0 || high > 100 || low >= high {
			return fmt.Errorf("%w: %s thresholds low=%.1f high=%.1f", cluster.ErrConfigurationInvalid, name, low, high)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.thresholds = t
	return nil
}

// Optimize runs one cycle and returns a recommendation.
//
// Policy:
//   - Aggregate load above the CPU high watermark (or host CPU/memory above
//     their high watermarks) with node count below max: scale up one node.
//   - Aggregate load below the CPU low watermark with node count above min
//     and no host pressure: scale down by draining the least-loaded active
//     node.
//   - Otherwise: no change.
//
// A cycle never fails: a sampler error is logged, recorded in the reason,
// and the decision falls back to aggregate load alone.
func (o *Optimizer) Optimize() cluster.Recommendation {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := o.view.Snapshot()
	nodeCount := len(snapshot)
	aggregate := o.view.ClusterLoad()

	sample, sampled := o.takeSample()

	loadHigh := aggregate > o.thresholds.CPUHigh
	hostHigh := sampled &&
		(sample.CPUPercent > o.thresholds.CPUHigh || sample.MemoryPercent > o.thresholds.MemoryHigh)
	highPressure := loadHigh || hostHigh
	lowPressure := aggregate < o.thresholds.CPULow
	if sampled {
		// Host pressure vetoes scale-down even when cluster load looks idle.
		if sample.CPUPercent >= o.thresholds.CPUHigh || sample.MemoryPercent >= o.thresholds.MemoryHigh {
			lowPressure = false
		}
	}

	// Name the signal that actually fired, so operators reading the
	// recommendation know whether the fleet or the host is hot.
	highReason := fmt.Sprintf("aggregate load %.1f exceeds high watermark %.1f",
		aggregate, o.thresholds.CPUHigh)
	if !loadHigh && hostHigh {
		highReason = fmt.Sprintf("host pressure cpu=%.1f%% mem=%.1f%% exceeds high watermarks",
			sample.CPUPercent, sample.MemoryPercent)
	}

	switch {
	case highPressure && nodeCount < o.maxNodes:
		return cluster.Recommendation{
			Action: cluster.ActionScaleUp,
			Reason: fmt.Sprintf("%s with %d of %d nodes", highReason, nodeCount, o.maxNodes),
		}

	case highPressure:
		// Overloaded but already at capacity: nothing to recommend, but say why.
		return cluster.Recommendation{
			Action: cluster.ActionNone,
			Reason: fmt.Sprintf("%s but pool is at max_nodes=%d", highReason, o.maxNodes),
		}

	case lowPressure && nodeCount > o.minNodes:
		target, ok := drainTarget(snapshot)
		if !ok {
			return cluster.Recommendation{
				Action: cluster.ActionNone,
				Reason: "load below low watermark but no active node is drainable",
			}
		}
		return cluster.Recommendation{
			Action:       cluster.ActionScaleDown,
			TargetNodeID: target.ID,
			Reason: fmt.Sprintf("aggregate load %.1f below low watermark %.1f with %d nodes (min %d)",
				aggregate, o.thresholds.CPULow, nodeCount, o.minNodes),
		}
	}

	return cluster.Recommendation{Action: cluster.ActionNone, Reason: "within watermarks"}
}

// History returns a copy of the retained resource samples, oldest first.
func (o *Optimizer) History() []ResourceSample {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ResourceSample(nil), o.history...)
}

// takeSample reads the sampler (if any) and records the sample in the
// bounded history. Callers hold o.mu.
func (o *Optimizer) takeSample() (ResourceSample, bool) {
	if o.sampler == nil {
		return ResourceSample{}, false
	}
	sample, err := o.sampler.Sample()
	if err != nil {
		o.log.Warn("resource sample failed, using aggregate load only", zap.Error(err))
		return ResourceSample{}, false
	}
	o.history = append(o.history, sample)
	if len(o.history) > historyLimit {
		o.history = o.history[len(o.history)-historyLimit:]
	}
	return sample, true
}

// drainTarget picks the least-loaded active node (ties by smallest id) as
// the scale-down candidate: it has the least work to finish before leaving.
func drainTarget(snapshot []cluster.NodeRecord) (cluster.NodeRecord, bool) {
	var best cluster.NodeRecord
	found := false
	for _, rec := range snapshot {
		if rec.Status != cluster.NodeStatusActive {
			continue
		}
		if !found || rec.Load < best.Load || (rec.Load == best.Load && rec.ID < best.ID) {
			best = rec
			found = true
		}
	}
	return best, found
}
