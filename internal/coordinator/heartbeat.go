// Package coordinator implements the orchestration façade for the cluster
// coordination core. This file implements heartbeat-based liveness
// monitoring and drain completion.
package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/corral/internal/cluster"
	"github.com/dreamware/corral/internal/registry"
)

// drainState tracks when the monitor first observed a node draining, so the
// drain timeout is measured from drain start rather than from registration.
// Monitor-local bookkeeping only; the registry record stays the single
// source of truth for status.
type drainState struct {
	since time.Time
}

// heartbeatMonitor periodically sweeps the registry and evicts nodes whose
// last heartbeat exceeds the configured timeout. It also completes the drain
// lifecycle: a draining node leaves once its load reaches zero or its drain
// timeout elapses.
//
// The monitor never mutates the registry directly: every eviction goes
// through the onEvict callback supplied by the coordinator, which owns
// registry mutation, state invalidation, and event emission.
type heartbeatMonitor struct {
	clock        func() time.Time
	registry     *registry.Registry
	onEvict      func(rec cluster.NodeRecord, reason string)
	onSweepError func(nodeID string, recovered any)
	log          *zap.Logger
	draining     map[string]drainState
	interval     time.Duration
	nodeTimeout  time.Duration
	drainTimeout time.Duration
	wg           sync.WaitGroup
}

func newHeartbeatMonitor(reg *registry.Registry, cfg cluster.Config, clock func() time.Time, log *zap.Logger) *heartbeatMonitor {
	return &heartbeatMonitor{
		clock:        clock,
		registry:     reg,
		log:          log,
		draining:     make(map[string]drainState),
		interval:     cfg.HeartbeatInterval,
		nodeTimeout:  cfg.NodeTimeout,
		drainTimeout: cfg.DrainTimeout,
	}
}

// start launches the sweep loop. The WaitGroup is armed here, in the
// caller's goroutine, so a wait() that races the scheduler still blocks
// until the loop has run and exited.
func (h *heartbeatMonitor) start(ctx context.Context) {
	h.wg.Add(1)
	go h.run(ctx)
}

// run drives sweeps on the configured interval until ctx is canceled. An
// initial sweep runs immediately so a freshly started coordinator doesn't
// wait a full interval to notice already-dead nodes; it is skipped when ctx
// was canceled before the loop got scheduled, so no sweep mutates state
// after shutdown.
func (h *heartbeatMonitor) run(ctx context.Context) {
	defer h.wg.Done()

	if ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Info("heartbeat monitor started", zap.Duration("interval", h.interval), zap.Duration("node_timeout", h.nodeTimeout))

	h.sweep(h.clock())

	for {
		select {
		case <-ticker.C:
			h.sweep(h.clock())
		case <-ctx.Done():
			h.log.Info("heartbeat monitor stopping")
			return
		}
	}
}

// wait blocks until the monitor goroutine has finished its current
// iteration and exited.
func (h *heartbeatMonitor) wait() {
	h.wg.Wait()
}

// sweep runs one pass over a registry snapshot, evicting expired nodes and
// completing drains. Each record is handled in isolation: a failure on one
// record is surfaced through onSweepError and never aborts the rest of the
// sweep.
func (h *heartbeatMonitor) sweep(now time.Time) {
	snapshot := h.registry.Snapshot()

	present := make(map[string]bool, len(snapshot))
	for _, rec := range snapshot {
		present[rec.ID] = true
		h.checkNode(rec, now)
	}

	// Forget drain bookkeeping for nodes that left or went active again.
	for id := range h.draining {
		if !present[id] {
			delete(h.draining, id)
		}
	}
}

// checkNode evaluates one record against the timeout and drain rules.
func (h *heartbeatMonitor) checkNode(rec cluster.NodeRecord, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("heartbeat check failed for node",
				zap.String("node_id", rec.ID), zap.Any("panic", r))
			if h.onSweepError != nil {
				h.onSweepError(rec.ID, r)
			}
		}
	}()

	if rec.Expired(now, h.nodeTimeout) {
		h.log.Warn("node missed heartbeat deadline, evicting",
			zap.String("node_id", rec.ID),
			zap.Time("last_heartbeat", rec.LastHeartbeat))
		delete(h.draining, rec.ID)
		h.onEvict(rec, cluster.ReasonHeartbeatLost)
		return
	}

	switch rec.Status {
	case cluster.NodeStatusDraining:
		ds, tracked := h.draining[rec.ID]
		if !tracked {
			ds = drainState{since: now}
			h.draining[rec.ID] = ds
		}
		switch {
		case rec.Load == 0:
			h.log.Info("drain complete, evicting node", zap.String("node_id", rec.ID))
			delete(h.draining, rec.ID)
			h.onEvict(rec, cluster.ReasonDrainCompleted)
		case now.Sub(ds.since) > h.drainTimeout:
			h.log.Warn("drain timeout elapsed, evicting node",
				zap.String("node_id", rec.ID),
				zap.Float64("remaining_load", rec.Load))
			delete(h.draining, rec.ID)
			h.onEvict(rec, cluster.ReasonDrainTimeout)
		}
	default:
		// An active report after a drain mark cancels the drain clock.
		delete(h.draining, rec.ID)
	}
}
