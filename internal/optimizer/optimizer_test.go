package optimizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/corral/internal/balancer"
	"github.com/dreamware/corral/internal/cluster"
)

// staticView is a fixed cluster view for tests. Its load signal comes from a
// real balancer over the same records, exactly as the coordinator wires it.
type staticView []cluster.NodeRecord

func (v staticView) Snapshot() []cluster.NodeRecord {
	out := make([]cluster.NodeRecord, len(v))
	copy(out, v)
	return out
}

func (v staticView) ClusterLoad() float64 {
	return balancer.New(v, nil).ClusterLoad()
}

// fakeSampler returns canned samples or a canned error.
type fakeSampler struct {
	sample ResourceSample
	err    error
}

func (f *fakeSampler) Sample() (ResourceSample, error) { return f.sample, f.err }

func loaded(id string, load float64) cluster.NodeRecord {
	return cluster.NodeRecord{ID: id, Status: cluster.NodeStatusActive, Load: load}
}

func testConfig(minNodes, maxNodes int) cluster.Config {
	cfg := cluster.DefaultConfig()
	cfg.MinNodes = minNodes
	cfg.MaxNodes = maxNodes
	return cfg
}

// TestOptimizeScaleUpOnHighLoad verifies the canonical scale-up case:
// aggregate load 90 against a high watermark of 80, three nodes, max ten.
func TestOptimizeScaleUpOnHighLoad(t *testing.T) {
	view := staticView{loaded("a", 90), loaded("b", 95), loaded("c", 85)}
	o := New(view, nil, testConfig(1, 10), nil)

	rec := o.Optimize()
	assert.Equal(t, cluster.ActionScaleUp, rec.Action)
	assert.Empty(t, rec.TargetNodeID)
}

// TestOptimizeNoneAtMaxNodes verifies that high load at max_nodes yields
// none, since there is no room to recommend into.
func TestOptimizeNoneAtMaxNodes(t *testing.T) {
	view := staticView{loaded("a", 90), loaded("b", 95), loaded("c", 85)}
	o := New(view, nil, testConfig(1, 3), nil)

	rec := o.Optimize()
	assert.Equal(t, cluster.ActionNone, rec.Action)
	assert.Contains(t, rec.Reason, "max_nodes")
}

// TestOptimizeScaleDownDrainsLeastLoaded verifies scale-down below the low
// watermark targets the least-loaded active node.
func TestOptimizeScaleDownDrainsLeastLoaded(t *testing.T) {
	view := staticView{loaded("a", 15), loaded("b", 5), loaded("c", 10)}
	o := New(view, nil, testConfig(1, 10), nil)

	rec := o.Optimize()
	require.Equal(t, cluster.ActionScaleDown, rec.Action)
	assert.Equal(t, "b", rec.TargetNodeID)
}

// TestOptimizeScaleDownRespectsMinNodes verifies idle clusters at min_nodes
// are left alone.
func TestOptimizeScaleDownRespectsMinNodes(t *testing.T) {
	view := staticView{loaded("a", 5), loaded("b", 5)}
	o := New(view, nil, testConfig(2, 10), nil)

	rec := o.Optimize()
	assert.Equal(t, cluster.ActionNone, rec.Action)
}

// TestOptimizeWithinWatermarks verifies moderate load recommends nothing.
func TestOptimizeWithinWatermarks(t *testing.T) {
	view := staticView{loaded("a", 50), loaded("b", 40)}
	o := New(view, nil, testConfig(1, 10), nil)

	rec := o.Optimize()
	assert.Equal(t, cluster.ActionNone, rec.Action)
	assert.Empty(t, rec.TargetNodeID)
}

// TestOptimizeHostPressureTriggersScaleUp verifies host memory pressure can
// force a scale-up even when aggregate cluster load looks moderate, and
// that the recommendation names the host as the firing signal.
func TestOptimizeHostPressureTriggersScaleUp(t *testing.T) {
	view := staticView{loaded("a", 50)}
	sampler := &fakeSampler{sample: ResourceSample{CPUPercent: 30, MemoryPercent: 95}}
	o := New(view, sampler, testConfig(1, 10), nil)

	rec := o.Optimize()
	assert.Equal(t, cluster.ActionScaleUp, rec.Action)
	assert.Contains(t, rec.Reason, "host pressure")
	assert.NotContains(t, rec.Reason, "aggregate load")
}

// TestOptimizeScaleUpReasonNamesAggregateLoad verifies a fleet-driven
// scale-up still reports the aggregate signal.
func TestOptimizeScaleUpReasonNamesAggregateLoad(t *testing.T) {
	view := staticView{loaded("a", 90), loaded("b", 95)}
	o := New(view, nil, testConfig(1, 10), nil)

	rec := o.Optimize()
	assert.Equal(t, cluster.ActionScaleUp, rec.Action)
	assert.Contains(t, rec.Reason, "aggregate load")
}

// TestOptimizeHostPressureVetoesScaleDown verifies an idle fleet is not
// drained while the host itself is saturated.
func TestOptimizeHostPressureVetoesScaleDown(t *testing.T) {
	view := staticView{loaded("a", 5), loaded("b", 5)}
	sampler := &fakeSampler{sample: ResourceSample{CPUPercent: 99, MemoryPercent: 40}}
	o := New(view, sampler, testConfig(1, 10), nil)

	rec := o.Optimize()
	// CPU 99 is also above the high watermark, so the cycle recommends up.
	assert.NotEqual(t, cluster.ActionScaleDown, rec.Action)
}

// TestOptimizeSamplerErrorDegradesGracefully verifies a failing sampler
// never fails the cycle; the decision falls back to aggregate load.
func TestOptimizeSamplerErrorDegradesGracefully(t *testing.T) {
	view := staticView{loaded("a", 90), loaded("b", 90)}
	sampler := &fakeSampler{err: errors.New("proc unavailable")}
	o := New(view, sampler, testConfig(1, 10), nil)

	rec := o.Optimize()
	assert.Equal(t, cluster.ActionScaleUp, rec.Action)
	assert.Empty(t, o.History(), "failed samples must not enter history")
}

// TestOptimizeIgnoresNonActiveNodes verifies draining nodes are excluded
// from both the aggregate and the drain-target search.
func TestOptimizeIgnoresNonActiveNodes(t *testing.T) {
	draining := cluster.NodeRecord{ID: "d", Status: cluster.NodeStatusDraining, Load: 0}
	view := staticView{draining, loaded("a", 10), loaded("b", 12)}
	o := New(view, nil, testConfig(1, 10), nil)

	rec := o.Optimize()
	require.Equal(t, cluster.ActionScaleDown, rec.Action)
	assert.Equal(t, "a", rec.TargetNodeID, "drain target must be an active node")
}

// TestHistoryBounded verifies the sample window is capped.
func TestHistoryBounded(t *testing.T) {
	sampler := &fakeSampler{sample: ResourceSample{CPUPercent: 50, MemoryPercent: 50}}
	o := New(staticView{loaded("a", 50)}, sampler, testConfig(1, 10), nil)

	for i := 0; i < historyLimit+20; i++ {
		o.Optimize()
	}
	assert.Len(t, o.History(), historyLimit)
}

// TestSetThresholds verifies runtime threshold updates are validated and
// take effect on the next cycle.
func TestSetThresholds(t *testing.T) {
	view := staticView{loaded("a", 50), loaded("b", 50)}
	o := New(view, nil, testConfig(1, 10), nil)

	require.Equal(t, cluster.ActionNone, o.Optimize().Action)

	// Lowering the high watermark below current load flips the decision.
	require.NoError(t, o.SetThresholds(Thresholds{CPUHigh: 40, CPULow: 10, MemoryHigh: 85, MemoryLow: 30}))
	assert.Equal(t, cluster.ActionScaleUp, o.Optimize().Action)

	// Inverted watermarks are rejected.
	err := o.SetThresholds(Thresholds{CPUHigh: 10, CPULow: 40, MemoryHigh: 85, MemoryLow: 30})
	assert.ErrorIs(t, err, cluster.ErrConfigurationInvalid)
}
