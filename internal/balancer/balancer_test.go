package balancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/corral/internal/cluster"
)

// staticSource is a fixed snapshot source for tests.
type staticSource []cluster.NodeRecord

func (s staticSource) Snapshot() []cluster.NodeRecord {
	out := make([]cluster.NodeRecord, len(s))
	copy(out, s)
	return out
}

func node(id string, load float64, status cluster.NodeStatus, caps ...string) cluster.NodeRecord {
	return cluster.NodeRecord{
		ID:           id,
		Addr:         id + ":9000",
		Load:         load,
		Status:       status,
		Capabilities: cluster.NewCapabilitySet(caps...),
	}
}

// TestSelectLeastLoadedCapabilityMatch verifies the canonical selection case:
// among A(load=5,{gpu}), B(load=2,{gpu,cpu}), C(load=1,{cpu}), a request for
// {gpu} returns B: C has the lowest load but lacks the capability.
func TestSelectLeastLoadedCapabilityMatch(t *testing.T) {
	b := New(staticSource{
		node("a", 5, cluster.NodeStatusActive, "gpu"),
		node("b", 2, cluster.NodeStatusActive, "gpu", "cpu"),
		node("c", 1, cluster.NodeStatusActive, "cpu"),
	}, nil)

	rec, err := b.Select(cluster.NewCapabilitySet("gpu"))
	require.NoError(t, err)
	assert.Equal(t, "b", rec.ID)
}

// TestSelectNoEligibleNode verifies ErrNoEligibleNode when no active node
// offers the required capabilities.
func TestSelectNoEligibleNode(t *testing.T) {
	b := New(staticSource{
		node("a", 0, cluster.NodeStatusActive, "cpu"),
	}, nil)

	_, err := b.Select(cluster.NewCapabilitySet("gpu"))
	require.Error(t, err)
	assert.ErrorIs(t, err, cluster.ErrNoEligibleNode)
}

// TestSelectEmptyCluster verifies selection against an empty snapshot fails
// cleanly rather than panicking.
func TestSelectEmptyCluster(t *testing.T) {
	b := New(staticSource{}, nil)

	_, err := b.Select(nil)
	assert.ErrorIs(t, err, cluster.ErrNoEligibleNode)
}

// TestSelectSkipsDrainingAndDead verifies only active nodes receive work,
// even when a draining node is the least loaded.
func TestSelectSkipsDrainingAndDead(t *testing.T) {
	b := New(staticSource{
		node("a", 0, cluster.NodeStatusDraining, "gpu"),
		node("b", 1, cluster.NodeStatusDead, "gpu"),
		node("c", 9, cluster.NodeStatusActive, "gpu"),
	}, nil)

	rec, err := b.Select(cluster.NewCapabilitySet("gpu"))
	require.NoError(t, err)
	assert.Equal(t, "c", rec.ID)
}

// TestSelectTieBrokenBySmallestID verifies deterministic tie-breaking when
// loads are equal.
func TestSelectTieBrokenBySmallestID(t *testing.T) {
	b := New(staticSource{
		node("node-2", 3, cluster.NodeStatusActive, "cpu"),
		node("node-1", 3, cluster.NodeStatusActive, "cpu"),
		node("node-3", 3, cluster.NodeStatusActive, "cpu"),
	}, nil)

	for i := 0; i < 5; i++ {
		rec, err := b.Select(cluster.NewCapabilitySet("cpu"))
		require.NoError(t, err)
		assert.Equal(t, "node-1", rec.ID, "tie must deterministically pick the smallest id")
	}
}

// TestSelectEmptyRequirementMatchesAnyActive verifies an empty capability
// set degenerates to pure least-loaded selection.
func TestSelectEmptyRequirementMatchesAnyActive(t *testing.T) {
	b := New(staticSource{
		node("a", 4, cluster.NodeStatusActive, "gpu"),
		node("b", 2, cluster.NodeStatusActive),
	}, nil)

	rec, err := b.Select(cluster.NewCapabilitySet())
	require.NoError(t, err)
	assert.Equal(t, "b", rec.ID)
}

// TestClusterLoadAveragesActiveNodes verifies the aggregate load signal
// averages only active nodes and is zero for an empty cluster.
func TestClusterLoadAveragesActiveNodes(t *testing.T) {
	b := New(staticSource{
		node("a", 10, cluster.NodeStatusActive),
		node("b", 20, cluster.NodeStatusActive),
		node("c", 500, cluster.NodeStatusDraining),
	}, nil)
	assert.InDelta(t, 15.0, b.ClusterLoad(), 1e-9)

	empty := New(staticSource{}, nil)
	assert.Zero(t, empty.ClusterLoad())
}
