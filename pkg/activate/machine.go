package activate

import (
	"context"
	"strings"

	"github.com/coreos/go-systemd/v22/util"
	"github.com/rs/zerolog"

	"github.com/cuemby/osd-activate/pkg/log"
	"github.com/cuemby/osd-activate/pkg/metrics"
	"github.com/cuemby/osd-activate/pkg/types"
)

const (
	// DefaultKeyringTemplate locates the bootstrap keyring; {cluster} is
	// replaced with the cluster name
	DefaultKeyringTemplate = "/var/lib/ceph/bootstrap-osd/{cluster}.keyring"

	// Volume-local files produced by initialization
	MonmapFile  = "activate.monmap"
	JournalFile = "journal"
	KeyringFile = "keyring"
)

// Step names, in execution order
const (
	StepAllocate   = "allocate"
	StepInitialize = "initialize"
	StepMarkInit   = "mark-init"
	StepAuthorize  = "authorize"
)

// ControlPlane is the subset of the cluster's monitor API activation needs
type ControlPlane interface {
	CreateIdentity(ctx context.Context, cluster, fsid, keyring string) (string, error)
	GetMembershipSnapshot(ctx context.Context, cluster, keyring string) ([]byte, error)
	RegisterCredential(ctx context.Context, cluster, keyring, name, credentialPath string, caps []types.Capability) error
	LookupConfigValue(ctx context.Context, cluster, key string) (string, bool, error)
}

// Formatter lays out the object store on a volume
type Formatter interface {
	Format(ctx context.Context, req types.FormatRequest) error
}

// Options tune a single activation
type Options struct {
	// KeyringTemplate locates the bootstrap keyring (DefaultKeyringTemplate if empty)
	KeyringTemplate string

	// Init tags the volume for a service supervisor; empty leaves tags alone
	Init types.InitSystem
}

// Result describes a successful activation
type Result struct {
	Identity types.Identity
	Steps    []string // Steps that ran; skipped steps are omitted
}

// Machine drives a volume from "recognised" to "active", one marker at a time
type Machine struct {
	controlPlane ControlPlane
	formatter    Formatter
	logger       zerolog.Logger

	systemdRunning func() bool
}

// NewMachine creates an activation state machine
func NewMachine(controlPlane ControlPlane, formatter Formatter, logger zerolog.Logger) *Machine {
	return &Machine{
		controlPlane:   controlPlane,
		formatter:      formatter,
		logger:         logger,
		systemdRunning: util.IsRunningSystemd,
	}
}

// run carries the state of one Activate call through the steps
type run struct {
	dir     string
	state   *State
	cluster string
	keyring string
	init    types.InitSystem
	logger  zerolog.Logger
}

func (r *run) identity() types.Identity {
	return types.Identity{Cluster: r.cluster, ID: r.state.WhoAmI.Text}
}

type step struct {
	name string
	done func(r *run) bool
	run  func(ctx context.Context, r *run) error
}

func (m *Machine) steps() []step {
	return []step{
		{
			name: StepAllocate,
			done: func(r *run) bool { return r.state.WhoAmI.Present },
			run:  m.allocate,
		},
		{
			name: StepInitialize,
			done: func(r *run) bool { return r.state.Ready },
			run:  m.initialize,
		},
		{
			name: StepMarkInit,
			done: func(r *run) bool { return r.init == "" || r.state.Tagged(r.init) },
			run:  m.markInit,
		},
		{
			name: StepAuthorize,
			done: func(r *run) bool { return r.state.Active },
			run:  m.authorize,
		},
	}
}

// Activate brings the volume at dir into the active state and returns its
// identity. Every step whose marker is already present is skipped, so a
// second call on an active volume has no side effects. An interrupted call
// leaves the markers written so far; the next call resumes from there.
func (m *Machine) Activate(ctx context.Context, dir string, opts Options) (*Result, error) {
	logger := log.WithPath(m.logger, dir)

	// Reject unrecognised directories before creating anything on them
	if err := checkMagic(dir); err != nil {
		return nil, err
	}

	fl, err := LockVolume(dir)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer fl.Unlock()

	state, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}

	cluster := clusterName(state.ClusterFSID.Text)
	logger.Debug().
		Str("cluster", cluster).
		Str("ceph_fsid", state.ClusterFSID.Text).
		Str("fsid", state.FSID.Text).
		Msg("volume recognised")

	initSys, err := m.resolveInit(ctx, cluster, opts.Init)
	if err != nil {
		return nil, err
	}

	r := &run{
		dir:     dir,
		state:   state,
		cluster: cluster,
		keyring: KeyringPath(opts.KeyringTemplate, cluster),
		init:    initSys,
		logger:  logger,
	}

	result := &Result{}
	for _, s := range m.steps() {
		if s.done(r) {
			metrics.StepsTotal.WithLabelValues(s.name, "skip").Inc()
			logger.Debug().Str("step", s.name).Msg("already done, skipping")
			continue
		}

		logger.Debug().Str("step", s.name).Msg("running step")
		timer := metrics.NewTimer()
		if err := s.run(ctx, r); err != nil {
			return nil, err
		}
		timer.ObserveDurationVec(metrics.StepDuration, s.name)
		metrics.StepsTotal.WithLabelValues(s.name, "run").Inc()
		result.Steps = append(result.Steps, s.name)
	}

	result.Identity = r.identity()
	osdLogger := log.WithOSD(logger, cluster, result.Identity.ID)
	osdLogger.Info().
		Strs("steps", result.Steps).
		Msg("volume active")

	return result, nil
}

// resolveInit turns an "auto" selection into a concrete init system: the
// cluster's configured value if set, otherwise systemd when it is the running
// init system, otherwise sysvinit
func (m *Machine) resolveInit(ctx context.Context, cluster string, requested types.InitSystem) (types.InitSystem, error) {
	if requested != types.InitAuto {
		return requested, nil
	}

	value, ok, err := m.controlPlane.LookupConfigValue(ctx, cluster, "init")
	if err != nil {
		return "", wrap(err, "cannot look up init system")
	}
	if ok {
		initSys, err := types.ParseInitSystem(value)
		if err != nil || initSys == "" || initSys == types.InitAuto {
			return "", errorf("cluster config sets unsupported init system %q", value)
		}
		return initSys, nil
	}

	if m.systemdRunning() {
		return types.InitSystemd, nil
	}
	return types.InitSysvinit, nil
}

// KeyringPath expands a keyring template for cluster
func KeyringPath(template, cluster string) string {
	if template == "" {
		template = DefaultKeyringTemplate
	}
	return strings.ReplaceAll(template, "{cluster}", cluster)
}

// clusterName maps a cluster fsid to a cluster name. Every fsid currently
// maps to the default cluster.
func clusterName(fsid string) string {
	return types.DefaultCluster
}
