package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/corral/internal/cluster"
)

// TestRegisterAssignsUniqueIDs verifies that every registration yields a
// distinct id and an active record with zero load and a fresh heartbeat.
func TestRegisterAssignsUniqueIDs(t *testing.T) {
	reg := New(10)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, err := reg.Register(fmt.Sprintf("10.0.0.%d:9000", i), cluster.NewCapabilitySet("cpu"))
		require.NoError(t, err)
		assert.False(t, seen[id], "id %s assigned twice", id)
		seen[id] = true

		rec, ok := reg.Get(id)
		require.True(t, ok)
		assert.Equal(t, cluster.NodeStatusActive, rec.Status)
		assert.Zero(t, rec.Load)
		assert.False(t, rec.LastHeartbeat.IsZero())
	}
	assert.Equal(t, 10, reg.Len())
}

// TestRegisterCapacityExceeded verifies the registry rejects registrations
// past its configured maximum with ErrCapacityExceeded.
func TestRegisterCapacityExceeded(t *testing.T) {
	reg := New(2)

	_, err := reg.Register("a:1", nil)
	require.NoError(t, err)
	_, err = reg.Register("b:1", nil)
	require.NoError(t, err)

	_, err = reg.Register("c:1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cluster.ErrCapacityExceeded)
	assert.Equal(t, 2, reg.Len())
}

// TestUnregisterIsIdempotent verifies that removing a node twice produces no
// error and no change in registry size on the second call.
func TestUnregisterIsIdempotent(t *testing.T) {
	reg := New(4)
	id, err := reg.Register("a:1", nil)
	require.NoError(t, err)

	assert.True(t, reg.Unregister(id), "first removal should report a change")
	assert.Equal(t, 0, reg.Len())

	assert.False(t, reg.Unregister(id), "second removal should be a no-op")
	assert.Equal(t, 0, reg.Len())

	_, ok := reg.Get(id)
	assert.False(t, ok, "record should be absent after unregistration")
}

// TestUpdateStatusUnknownNode verifies a status report for an absent id
// fails with ErrNotFound and mutates nothing.
func TestUpdateStatusUnknownNode(t *testing.T) {
	reg := New(4)
	err := reg.UpdateStatus("no-such-node", 1.5, cluster.NodeStatusActive)
	assert.ErrorIs(t, err, cluster.ErrNotFound)
}

// TestUpdateStatusStampsHeartbeat verifies that status reports update load,
// status and heartbeat, and that the heartbeat never moves backwards even if
// the clock does.
func TestUpdateStatusStampsHeartbeat(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	reg := New(4, WithClock(clock))

	id, err := reg.Register("a:1", cluster.NewCapabilitySet("gpu"))
	require.NoError(t, err)

	now = now.Add(5 * time.Second)
	require.NoError(t, reg.UpdateStatus(id, 3.5, cluster.NodeStatusDraining))

	rec, ok := reg.Get(id)
	require.True(t, ok)
	assert.Equal(t, 3.5, rec.Load)
	assert.Equal(t, cluster.NodeStatusDraining, rec.Status)
	assert.Equal(t, time.Unix(1005, 0), rec.LastHeartbeat)

	// A backwards clock reading must not roll the heartbeat back.
	now = time.Unix(900, 0)
	require.NoError(t, reg.UpdateStatus(id, 1.0, cluster.NodeStatusActive))
	rec, _ = reg.Get(id)
	assert.Equal(t, time.Unix(1005, 0), rec.LastHeartbeat)
}

// TestSetStatusDoesNotRefreshHeartbeat verifies drain marking changes only
// the status, so a silent draining node still ages toward eviction.
func TestSetStatusDoesNotRefreshHeartbeat(t *testing.T) {
	now := time.Unix(1000, 0)
	reg := New(4, WithClock(func() time.Time { return now }))

	id, err := reg.Register("a:1", nil)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	require.NoError(t, reg.SetStatus(id, cluster.NodeStatusDraining))

	rec, _ := reg.Get(id)
	assert.Equal(t, cluster.NodeStatusDraining, rec.Status)
	assert.Equal(t, time.Unix(1000, 0), rec.LastHeartbeat, "heartbeat must be untouched")

	assert.ErrorIs(t, reg.SetStatus("missing", cluster.NodeStatusDraining), cluster.ErrNotFound)
}

// TestSnapshotIsACopy verifies that snapshots are deep copies: mutating a
// returned record or its capability set never leaks into the registry.
func TestSnapshotIsACopy(t *testing.T) {
	reg := New(4)
	id, err := reg.Register("a:1", cluster.NewCapabilitySet("gpu"))
	require.NoError(t, err)

	snap := reg.Snapshot()
	require.Len(t, snap, 1)

	snap[0].Load = 99
	snap[0].Capabilities["stolen"] = struct{}{}

	rec, _ := reg.Get(id)
	assert.Zero(t, rec.Load, "registry record must be unaffected by snapshot mutation")
	assert.False(t, rec.Capabilities.Has("stolen"))
}

// TestSnapshotSizeTracksMembership verifies the testable property that
// snapshot size equals registrations minus removals.
func TestSnapshotSizeTracksMembership(t *testing.T) {
	reg := New(100)

	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		id, err := reg.Register(fmt.Sprintf("n%d:1", i), nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for _, id := range ids[:3] {
		reg.Unregister(id)
	}

	assert.Len(t, reg.Snapshot(), 5)
	assert.Equal(t, 5, reg.Len())
}

// TestSnapshotOrderedByID verifies snapshots iterate deterministically.
func TestSnapshotOrderedByID(t *testing.T) {
	reg := New(16)
	for i := 0; i < 8; i++ {
		_, err := reg.Register("a:1", nil)
		require.NoError(t, err)
	}

	snap := reg.Snapshot()
	for i := 1; i < len(snap); i++ {
		assert.Less(t, snap[i-1].ID, snap[i].ID, "snapshot must be sorted by id")
	}
}

// TestConcurrentMutation exercises the registry under concurrent callers to
// catch races; run with -race.
func TestConcurrentMutation(t *testing.T) {
	reg := New(1000)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id, err := reg.Register("x:1", cluster.NewCapabilitySet("cpu"))
				if err != nil {
					continue
				}
				_ = reg.UpdateStatus(id, float64(j), cluster.NodeStatusActive)
				_ = reg.Snapshot()
				reg.Unregister(id)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, reg.Len())
}
