package activate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/osd-activate/pkg/log"
	"github.com/cuemby/osd-activate/pkg/marker"
	"github.com/cuemby/osd-activate/pkg/types"
)

const (
	testClusterFSID = "e1a0b7a2-8d8f-4a2c-9f0e-2a6d4c1f5b3e"
	testFSID        = "5a1c3d9e-0f7b-4c8e-b2a4-6d9e1f3a7c5b"
)

type fakeControlPlane struct {
	nextID     string
	monmap     []byte
	config     map[string]string
	createErr  error
	monmapErr  error
	authErr    error
	creates    int
	snapshots  int
	registered []string
	lookups    int
}

func (f *fakeControlPlane) CreateIdentity(ctx context.Context, cluster, fsid, keyring string) (string, error) {
	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.nextID + "\n", nil
}

func (f *fakeControlPlane) GetMembershipSnapshot(ctx context.Context, cluster, keyring string) ([]byte, error) {
	f.snapshots++
	if f.monmapErr != nil {
		return nil, f.monmapErr
	}
	return f.monmap, nil
}

func (f *fakeControlPlane) RegisterCredential(ctx context.Context, cluster, keyring, name, credentialPath string, caps []types.Capability) error {
	if f.authErr != nil {
		return f.authErr
	}
	f.registered = append(f.registered, name)
	return nil
}

func (f *fakeControlPlane) LookupConfigValue(ctx context.Context, cluster, key string) (string, bool, error) {
	f.lookups++
	v, ok := f.config[key]
	return v, ok, nil
}

func (f *fakeControlPlane) calls() int {
	return f.creates + f.snapshots + len(f.registered)
}

type fakeFormatter struct {
	requests []types.FormatRequest
	err      error
}

func (f *fakeFormatter) Format(ctx context.Context, req types.FormatRequest) error {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return f.err
	}
	// Formatting generates the OSD key in the data directory
	return os.WriteFile(req.KeyringPath, []byte("[osd]\n"), 0600)
}

func newVolume(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, marker.Write(dir, marker.Magic, Magic))
	require.NoError(t, marker.Write(dir, marker.ClusterFSID, testClusterFSID))
	require.NoError(t, marker.Write(dir, marker.FSID, testFSID))
	return dir
}

func newTestMachine(cp *fakeControlPlane, f *fakeFormatter) *Machine {
	m := NewMachine(cp, f, log.Nop())
	m.systemdRunning = func() bool { return false }
	return m
}

func readMarker(t *testing.T, dir, name string) string {
	t.Helper()
	v, ok, err := marker.Read(dir, name)
	require.NoError(t, err)
	require.True(t, ok, "marker %s missing", name)
	return v
}

func TestActivateFreshVolume(t *testing.T) {
	dir := newVolume(t)
	cp := &fakeControlPlane{nextID: "3", monmap: []byte("monmap")}
	f := &fakeFormatter{}
	m := newTestMachine(cp, f)

	result, err := m.Activate(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, types.Identity{Cluster: "ceph", ID: "3"}, result.Identity)
	assert.Equal(t, []string{StepAllocate, StepInitialize, StepAuthorize}, result.Steps)

	assert.Equal(t, "3", readMarker(t, dir, marker.WhoAmI))
	assert.Equal(t, "", readMarker(t, dir, marker.Ready))
	assert.Equal(t, "ok", readMarker(t, dir, marker.Active))

	monmap, err := os.ReadFile(filepath.Join(dir, MonmapFile))
	require.NoError(t, err)
	assert.Equal(t, "monmap", string(monmap))

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "3", req.ID)
	assert.Equal(t, testFSID, req.FSID)
	assert.Equal(t, dir, req.DataPath)
	assert.Equal(t, filepath.Join(dir, JournalFile), req.JournalPath)
	assert.Equal(t, filepath.Join(dir, KeyringFile), req.KeyringPath)

	assert.Equal(t, []string{"osd.3"}, cp.registered)
}

func TestActivateIsIdempotent(t *testing.T) {
	dir := newVolume(t)
	cp := &fakeControlPlane{nextID: "0", monmap: []byte("m")}
	f := &fakeFormatter{}
	m := newTestMachine(cp, f)

	first, err := m.Activate(context.Background(), dir, Options{})
	require.NoError(t, err)
	calls := cp.calls()

	second, err := m.Activate(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Identity, second.Identity)
	assert.Empty(t, second.Steps)
	assert.Equal(t, calls, cp.calls(), "second activation must not contact the cluster")
	assert.Len(t, f.requests, 1)

	// The lock file is part of the volume and does not disturb later scans
	assert.FileExists(t, filepath.Join(dir, LockFile))
	state, err := Scan(dir)
	require.NoError(t, err)
	assert.True(t, state.Active)
}

func TestActivateResumesAfterAllocation(t *testing.T) {
	dir := newVolume(t)
	require.NoError(t, marker.Write(dir, marker.WhoAmI, "7"))

	cp := &fakeControlPlane{nextID: "99", monmap: []byte("m")}
	f := &fakeFormatter{}
	m := newTestMachine(cp, f)

	result, err := m.Activate(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, "7", result.Identity.ID)
	assert.Equal(t, 0, cp.creates, "existing id must not be reallocated")
	assert.Equal(t, []string{StepInitialize, StepAuthorize}, result.Steps)
}

func TestActivateResumesAfterFormatFailure(t *testing.T) {
	dir := newVolume(t)
	cp := &fakeControlPlane{nextID: "4", monmap: []byte("m")}
	f := &fakeFormatter{err: errors.New("mkfs exploded")}
	m := newTestMachine(cp, f)

	_, err := m.Activate(context.Background(), dir, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mkfs exploded")

	// The allocation survives the failure, ready does not exist
	assert.Equal(t, "4", readMarker(t, dir, marker.WhoAmI))
	exists, err := marker.Exists(dir, marker.Ready)
	require.NoError(t, err)
	assert.False(t, exists)

	f.err = nil
	result, err := m.Activate(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, "4", result.Identity.ID)
	assert.Equal(t, 1, cp.creates)
	assert.Len(t, f.requests, 2)
}

func TestActivateAuthorizeFailureLeavesReady(t *testing.T) {
	dir := newVolume(t)
	cp := &fakeControlPlane{nextID: "1", monmap: []byte("m"), authErr: errors.New("EACCES")}
	f := &fakeFormatter{}
	m := newTestMachine(cp, f)

	_, err := m.Activate(context.Background(), dir, Options{})
	require.Error(t, err)

	var actErr *Error
	require.ErrorAs(t, err, &actErr)
	assert.Contains(t, err.Error(), "osd.1")

	ready, err := marker.Exists(dir, marker.Ready)
	require.NoError(t, err)
	assert.True(t, ready)
	active, err := marker.Exists(dir, marker.Active)
	require.NoError(t, err)
	assert.False(t, active)

	cp.authErr = nil
	result, err := m.Activate(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{StepAuthorize}, result.Steps)
	assert.Len(t, f.requests, 1)
}

func TestActivateRejectsBadMagic(t *testing.T) {
	tests := []struct {
		name  string
		magic string
	}{
		{name: "missing"},
		{name: "wrong version", magic: "ceph osd volume v025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.magic != "" {
				require.NoError(t, marker.Write(dir, marker.Magic, tt.magic))
			}
			before, err := os.ReadDir(dir)
			require.NoError(t, err)

			cp := &fakeControlPlane{nextID: "0"}
			m := newTestMachine(cp, &fakeFormatter{})

			_, err = m.Activate(context.Background(), dir, Options{Init: types.InitSysvinit})
			require.Error(t, err)

			var badMagic *BadMagicError
			require.ErrorAs(t, err, &badMagic)
			assert.Equal(t, dir, badMagic.Path)
			assert.Contains(t, err.Error(), "does not look like a Ceph OSD")

			after, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Equal(t, len(before), len(after), "nothing may be written to an unrecognised volume")
			assert.Equal(t, 0, cp.calls())
		})
	}
}

func TestActivateCorruptMarker(t *testing.T) {
	dir := newVolume(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, marker.WhoAmI), []byte("3\n4\n"), 0644))

	cp := &fakeControlPlane{nextID: "0"}
	m := newTestMachine(cp, &fakeFormatter{})

	_, err := m.Activate(context.Background(), dir, Options{})
	require.Error(t, err)

	var corrupt *marker.CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, filepath.Join(dir, marker.WhoAmI), corrupt.Path)
	assert.ErrorIs(t, err, marker.ErrTooManyLines)
	assert.Contains(t, err.Error(), "too many lines")
	assert.Equal(t, 0, cp.calls())
}

func TestActivateMissingIdentityMarkers(t *testing.T) {
	tests := []struct {
		name    string
		remove  string
		wantErr string
	}{
		{name: "no cluster fsid", remove: marker.ClusterFSID, wantErr: "no cluster uuid assigned"},
		{name: "no osd fsid", remove: marker.FSID, wantErr: "no OSD uuid assigned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newVolume(t)
			require.NoError(t, os.Remove(filepath.Join(dir, tt.remove)))

			cp := &fakeControlPlane{nextID: "0"}
			m := newTestMachine(cp, &fakeFormatter{})

			_, err := m.Activate(context.Background(), dir, Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, 0, cp.calls())
		})
	}
}

func TestActivateRejectsBadAllocatedID(t *testing.T) {
	dir := newVolume(t)
	cp := &fakeControlPlane{nextID: "not-a-number"}
	m := newTestMachine(cp, &fakeFormatter{})

	_, err := m.Activate(context.Background(), dir, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad osd id")

	exists, err := marker.Exists(dir, marker.WhoAmI)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestActivateMarksInit(t *testing.T) {
	dir := newVolume(t)
	require.NoError(t, marker.Touch(dir, string(types.InitUpstart)))

	cp := &fakeControlPlane{nextID: "2", monmap: []byte("m")}
	m := newTestMachine(cp, &fakeFormatter{})

	result, err := m.Activate(context.Background(), dir, Options{Init: types.InitSysvinit})
	require.NoError(t, err)
	assert.Contains(t, result.Steps, StepMarkInit)

	state, err := Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, []types.InitSystem{types.InitSysvinit}, state.InitTags)

	// Already tagged: nothing to do
	result, err = m.Activate(context.Background(), dir, Options{Init: types.InitSysvinit})
	require.NoError(t, err)
	assert.Empty(t, result.Steps)

	// Retagging an active volume only touches tags
	result, err = m.Activate(context.Background(), dir, Options{Init: types.InitSystemd})
	require.NoError(t, err)
	assert.Equal(t, []string{StepMarkInit}, result.Steps)

	state, err = Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, []types.InitSystem{types.InitSystemd}, state.InitTags)
}

func TestActivateResolvesAutoInit(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]string
		systemd bool
		want    types.InitSystem
		wantErr bool
	}{
		{name: "cluster config wins", config: map[string]string{"init": "upstart"}, systemd: true, want: types.InitUpstart},
		{name: "systemd running", systemd: true, want: types.InitSystemd},
		{name: "fallback", want: types.InitSysvinit},
		{name: "bad config value", config: map[string]string{"init": "launchd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newVolume(t)
			cp := &fakeControlPlane{nextID: "5", monmap: []byte("m"), config: tt.config}
			m := newTestMachine(cp, &fakeFormatter{})
			m.systemdRunning = func() bool { return tt.systemd }

			_, err := m.Activate(context.Background(), dir, Options{Init: types.InitAuto})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 0, cp.calls())
				return
			}
			require.NoError(t, err)

			state, err := Scan(dir)
			require.NoError(t, err)
			assert.Equal(t, []types.InitSystem{tt.want}, state.InitTags)
		})
	}
}

func TestKeyringPath(t *testing.T) {
	assert.Equal(t, "/var/lib/ceph/bootstrap-osd/ceph.keyring", KeyringPath("", "ceph"))
	assert.Equal(t, "/etc/ceph/prod.keyring", KeyringPath("/etc/ceph/{cluster}.keyring", "prod"))
	assert.Equal(t, "/fixed.keyring", KeyringPath("/fixed.keyring", "ceph"))
}
