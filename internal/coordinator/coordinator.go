package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/corral/internal/balancer"
	"github.com/dreamware/corral/internal/cluster"
	"github.com/dreamware/corral/internal/optimizer"
	"github.com/dreamware/corral/internal/registry"
	"github.com/dreamware/corral/internal/state"
)

// eventBuffer is the dispatch queue depth. Emission is non-blocking: when
// listeners fall this far behind, further events are dropped and counted
// rather than stalling registry writers.
const eventBuffer = 256

// Coordinator is the orchestrating façade over the coordination core. It
// owns the node registry exclusively, drives the heartbeat and optimization
// background loops, and is the only component that mutates registry state on
// behalf of callers.
//
// Lifecycle: New validates configuration and wires the components; Start
// launches the background loops; Stop cancels them and waits for their
// current iteration to finish. Foreground calls (RegisterNode, SelectNode,
// PushState, …) are safe from any goroutine at any point between New and
// Stop.
type Coordinator struct {
	clock     func() time.Time
	log       *zap.Logger
	registry  *registry.Registry
	balancer  *balancer.Balancer
	states    *state.Manager
	optimizer *optimizer.Optimizer
	monitor   *heartbeatMonitor
	sampler   optimizer.Sampler

	events    chan cluster.Event
	listeners []cluster.Listener

	evictions     atomic.Uint64
	sweepErrors   atomic.Uint64
	droppedEvents atomic.Uint64

	cfg     cluster.Config
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger, shared with its components.
// Defaults to zap.NewNop.
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithClock overrides the time source everywhere in the core. Tests use this
// to drive heartbeat expiry deterministically.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithSampler wires a host resource sampler into the optimizer.
func WithSampler(s optimizer.Sampler) Option {
	return func(c *Coordinator) { c.sampler = s }
}

// New validates cfg and builds a coordinator with all components wired.
//
// Returns cluster.ErrConfigurationInvalid (wrapped with the offending field)
// when any configuration invariant is violated.
func New(cfg cluster.Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:    cfg,
		clock:  time.Now,
		log:    zap.NewNop(),
		events: make(chan cluster.Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.registry = registry.New(cfg.MaxNodes,
		registry.WithClock(c.clock),
		registry.WithLogger(c.log.Named("registry")))
	c.balancer = balancer.New(c.registry, c.log.Named("balancer"))
	c.states = state.NewManager(c.registry, c.log.Named("state"), state.WithClock(c.clock))
	c.optimizer = optimizer.New(clusterView{c.registry, c.balancer}, c.sampler, cfg, c.log.Named("optimizer"))
	c.monitor = newHeartbeatMonitor(c.registry, cfg, c.clock, c.log.Named("heartbeat"))
	c.monitor.onEvict = c.evict
	c.monitor.onSweepError = func(string, any) { c.sweepErrors.Add(1) }

	return c, nil
}

// clusterView hands the optimizer the registry's membership and the
// balancer's aggregate load signal through one seam, so scaling and
// placement reason over the same numbers.
type clusterView struct {
	*registry.Registry
	*balancer.Balancer
}

// Subscribe registers a listener for coordinator events. Must be called
// before Start; listeners registered later are ignored by the running
// dispatcher.
func (c *Coordinator) Subscribe(l cluster.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Start launches the event dispatcher, the heartbeat loop, and the
// optimization loop. It returns immediately; the loops run until Stop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("coordinator already started")
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.dispatchEvents(ctx)
	}()
	go func() {
		defer c.wg.Done()
		c.optimizeLoop(ctx)
	}()
	c.monitor.start(ctx)

	c.log.Info("coordinator started",
		zap.Duration("heartbeat_interval", c.cfg.HeartbeatInterval),
		zap.Duration("optimization_interval", c.cfg.OptimizeInterval),
		zap.Int("max_nodes", c.cfg.MaxNodes))
	return nil
}

// Stop cancels the background loops and waits until their current iteration
// has finished. After Stop returns, no sweep or optimization cycle is still
// mutating state. Idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.monitor.wait()
	c.wg.Wait()
	c.log.Info("coordinator stopped")
}

// RegisterNode admits a node into the registry and returns its new id.
// Fails with cluster.ErrCapacityExceeded when the pool is full.
func (c *Coordinator) RegisterNode(addr string, caps cluster.CapabilitySet) (string, error) {
	id, err := c.registry.Register(addr, caps)
	if err != nil {
		return "", err
	}
	c.emit(cluster.Event{
		Time:         c.clock(),
		Type:         cluster.EventNodeRegistered,
		NodeID:       id,
		Addr:         addr,
		Capabilities: caps.Clone(),
	})
	return id, nil
}

// UnregisterNode removes a node explicitly. Idempotent: a second call for
// the same id does nothing and emits nothing.
func (c *Coordinator) UnregisterNode(id string) {
	if !c.registry.Unregister(id) {
		return
	}
	c.states.Invalidate(id)
	c.emit(cluster.Event{
		Time:   c.clock(),
		Type:   cluster.EventNodeLost,
		NodeID: id,
		Reason: cluster.ReasonUnregistered,
	})
}

// ReportStatus records a node's periodic status report: its current load and
// status, stamping the heartbeat.
//
// Nodes may report themselves active or draining. The dead status is never
// self-reportable; a node leaves the cluster only through unregistration or
// heartbeat eviction.
//
// Returns:
//   - cluster.ErrNotFound when the id is unknown (the node should
//     re-register)
//   - a plain validation error for an undefined or non-reportable status
func (c *Coordinator) ReportStatus(id string, load float64, status cluster.NodeStatus) error {
	if !status.Valid() || status == cluster.NodeStatusDead {
		return fmt.Errorf("invalid node status %q", status)
	}
	if load < 0 {
		return fmt.Errorf("invalid load %f: must be non-negative", load)
	}
	if err := c.registry.UpdateStatus(id, load, status); err != nil {
		return err
	}
	c.emit(cluster.Event{
		Time:   c.clock(),
		Type:   cluster.EventNodeStatusChanged,
		NodeID: id,
		Load:   load,
		Status: status,
	})
	return nil
}

// GetNode returns a point-in-time copy of a node record.
func (c *Coordinator) GetNode(id string) (cluster.NodeRecord, bool) {
	return c.registry.Get(id)
}

// Nodes returns a consistent snapshot of all node records.
func (c *Coordinator) Nodes() []cluster.NodeRecord {
	return c.registry.Snapshot()
}

// SelectNode returns the best active node for work requiring the given
// capabilities, per the balancer's least-loaded policy. Fails with
// cluster.ErrNoEligibleNode when nothing matches.
func (c *Coordinator) SelectNode(required cluster.CapabilitySet) (cluster.NodeRecord, error) {
	return c.balancer.Select(required)
}

// PushState stores a node's shared state blob at the given version. See
// state.Manager.Push for the error contract.
func (c *Coordinator) PushState(nodeID string, payload []byte, version uint64) error {
	return c.states.Push(nodeID, payload, version)
}

// PullState returns a node's current shared state blob, or false when none
// is stored.
func (c *Coordinator) PullState(nodeID string) (state.Snapshot, bool) {
	return c.states.Pull(nodeID)
}

// ReconcileState ingests a state replica observed through the external
// transport, applying last-writer-wins resolution. Reports whether the local
// view changed.
func (c *Coordinator) ReconcileState(nodeID string, payload []byte, version uint64, writtenAt time.Time) bool {
	return c.states.Reconcile(nodeID, payload, version, writtenAt)
}

// DrainNode marks a node draining: the balancer stops selecting it, and the
// heartbeat monitor evicts it once its load reaches zero or the drain
// timeout elapses. Returns cluster.ErrNotFound for an unknown id.
func (c *Coordinator) DrainNode(id string) error {
	if err := c.registry.SetStatus(id, cluster.NodeStatusDraining); err != nil {
		return err
	}
	rec, _ := c.registry.Get(id)
	c.emit(cluster.Event{
		Time:   c.clock(),
		Type:   cluster.EventNodeStatusChanged,
		NodeID: id,
		Load:   rec.Load,
		Status: cluster.NodeStatusDraining,
	})
	return nil
}

// Optimize runs one optimizer cycle immediately and returns its
// recommendation, applying the same side effects as the background loop
// (drain marking, recommendation event).
func (c *Coordinator) Optimize() cluster.Recommendation {
	return c.applyRecommendation(c.optimizer.Optimize())
}

// SetThresholds updates the optimizer watermarks at runtime.
func (c *Coordinator) SetThresholds(t optimizer.Thresholds) error {
	return c.optimizer.SetThresholds(t)
}

// evict is the monitor's eviction callback: it removes the record, flags the
// node's shared state for collection, and emits the node-lost event.
func (c *Coordinator) evict(rec cluster.NodeRecord, reason string) {
	if !c.registry.Unregister(rec.ID) {
		return // Lost a race with explicit unregistration; that path emitted.
	}
	c.states.Invalidate(rec.ID)
	c.evictions.Add(1)
	c.emit(cluster.Event{
		Time:   c.clock(),
		Type:   cluster.EventNodeLost,
		NodeID: rec.ID,
		Addr:   rec.Addr,
		Reason: reason,
	})
}

// optimizeLoop drives optimizer cycles and state consistency sweeps on the
// configured interval.
func (c *Coordinator) optimizeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.OptimizeInterval)
	defer ticker.Stop()

	c.log.Info("optimization loop started", zap.Duration("interval", c.cfg.OptimizeInterval))

	for {
		select {
		case <-ticker.C:
			c.applyRecommendation(c.optimizer.Optimize())
			for _, d := range c.states.ConsistencyCheck() {
				c.log.Warn("state divergence",
					zap.String("kind", string(d.Kind)),
					zap.String("node_id", d.NodeID),
					zap.String("detail", d.Detail))
			}
		case <-ctx.Done():
			c.log.Info("optimization loop stopping")
			return
		}
	}
}

// applyRecommendation performs the coordinator-side effects of an optimizer
// recommendation: drain marking for scale-down and event emission for
// anything non-trivial. The recommendation itself remains advisory; actual
// provisioning is the listener's job.
func (c *Coordinator) applyRecommendation(rec cluster.Recommendation) cluster.Recommendation {
	if rec.Action == cluster.ActionNone {
		return rec
	}
	if rec.Action == cluster.ActionScaleDown && rec.TargetNodeID != "" {
		if err := c.DrainNode(rec.TargetNodeID); err != nil {
			// Target vanished between snapshot and marking; drop the
			// recommendation, the next cycle re-decides.
			c.log.Info("scale-down target gone, skipping",
				zap.String("node_id", rec.TargetNodeID), zap.Error(err))
			return cluster.Recommendation{Action: cluster.ActionNone, Reason: "scale-down target vanished"}
		}
	}
	c.emit(cluster.Event{
		Time:           c.clock(),
		Type:           cluster.EventRecommendation,
		NodeID:         rec.TargetNodeID,
		Recommendation: &rec,
	})
	return rec
}

// emit queues an event for dispatch without ever blocking the caller.
func (c *Coordinator) emit(ev cluster.Event) {
	select {
	case c.events <- ev:
	default:
		c.droppedEvents.Add(1)
		c.log.Warn("event buffer full, dropping event", zap.String("type", string(ev.Type)))
	}
}

// dispatchEvents delivers queued events to listeners, one at a time, in
// emission order. It drains what it can and exits on cancellation.
func (c *Coordinator) dispatchEvents(ctx context.Context) {
	c.mu.Lock()
	listeners := append([]cluster.Listener(nil), c.listeners...)
	c.mu.Unlock()

	for {
		select {
		case ev := <-c.events:
			for _, l := range listeners {
				l(ev)
			}
		case <-ctx.Done():
			return
		}
	}
}
