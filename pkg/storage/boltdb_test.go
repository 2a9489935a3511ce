package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/osd-activate/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "ledger", "activate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndListActivations(t *testing.T) {
	store := newTestStore(t)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	runs := []*types.Activation{
		{Target: "/dev/sdb1", Kind: types.VolumeKindDevice, FSType: "xfs", Cluster: "ceph", OSDID: "0", Result: types.ActivationSucceeded},
		{Target: "/srv/osd1", Kind: types.VolumeKindDirectory, Cluster: "ceph", OSDID: "1", Result: types.ActivationSucceeded},
		{Target: "/dev/sdc1", Kind: types.VolumeKindDevice, Result: types.ActivationFailed, Error: "boom"},
		{Target: "/dev/sdb1", Kind: types.VolumeKindDevice, FSType: "xfs", Cluster: "ceph", OSDID: "0", Result: types.ActivationAlreadyMounted},
	}
	for i, run := range runs {
		run.StartedAt = start.Add(time.Duration(i) * time.Minute)
		run.FinishedAt = run.StartedAt.Add(time.Second)
		require.NoError(t, store.CreateActivation(run))
		assert.NotEmpty(t, run.ID)
	}

	all, err := store.ListActivations()
	require.NoError(t, err)
	require.Len(t, all, len(runs))
	for i := range runs {
		assert.Equal(t, runs[i].ID, all[i].ID, "records must come back in recording order")
		assert.Equal(t, runs[i].Target, all[i].Target)
		assert.True(t, runs[i].StartedAt.Equal(all[i].StartedAt))
	}
	assert.Equal(t, time.Second, all[0].Duration())

	osd0, err := store.ListActivationsByOSD("ceph", "0")
	require.NoError(t, err)
	require.Len(t, osd0, 2)
	assert.Equal(t, types.ActivationSucceeded, osd0[0].Result)
	assert.Equal(t, types.ActivationAlreadyMounted, osd0[1].Result)

	none, err := store.ListActivationsByOSD("ceph", "9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateActivationKeepsID(t *testing.T) {
	store := newTestStore(t)

	run := &types.Activation{ID: "fixed", Target: "/dev/sdb1"}
	require.NoError(t, store.CreateActivation(run))

	all, err := store.ListActivations()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "fixed", all[0].ID)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activate.db")

	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.CreateActivation(&types.Activation{Target: "/dev/sdb1"}))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	all, err := store.ListActivations()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
