package osd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/osd-activate/pkg/activate"
	"github.com/cuemby/osd-activate/pkg/canonical"
	"github.com/cuemby/osd-activate/pkg/log"
	"github.com/cuemby/osd-activate/pkg/metrics"
	"github.com/cuemby/osd-activate/pkg/mount"
	"github.com/cuemby/osd-activate/pkg/storage"
	"github.com/cuemby/osd-activate/pkg/types"
)

// Mounter probes and mounts block devices
type Mounter interface {
	DetectType(ctx context.Context, device string) (string, error)
	Mount(ctx context.Context, device, fstype, options string) (string, error)
	Move(ctx context.Context, source, target string) error
	Unmount(ctx context.Context, path string) error
	SameDevice(source, target string) (bool, error)
}

// Activator brings a mounted volume to the active state
type Activator interface {
	Activate(ctx context.Context, dir string, opts activate.Options) (*activate.Result, error)
}

// ConfigLookup reads values from the cluster configuration
type ConfigLookup interface {
	LookupConfigValue(ctx context.Context, cluster, key string) (string, bool, error)
}

// Notifier starts the daemon of an active OSD
type Notifier interface {
	Start(ctx context.Context, dir string, id types.Identity) error
}

// Options configure an Orchestrator
type Options struct {
	// OSDRoot holds the canonical data directories (canonical.DefaultRoot if empty)
	OSDRoot string

	KeyringTemplate string
	Init            types.InitSystem

	// MountOptions overrides mount options per filesystem type
	MountOptions map[string]string

	// StartDaemon starts the OSD daemon once the volume is in place
	StartDaemon bool
}

// Orchestrator turns an activation target, block device or directory, into
// a running OSD at its canonical path
type Orchestrator struct {
	mounter   Mounter
	activator Activator
	lookup    ConfigLookup
	notifier  Notifier
	ledger    storage.Store // Optional
	opts      Options
	logger    zerolog.Logger

	statFn func(path string) (os.FileInfo, error)
	lockFn func(dir string) (unlock func() error, err error)
	now    func() time.Time
}

// NewOrchestrator creates an orchestrator. ledger may be nil.
func NewOrchestrator(mounter Mounter, activator Activator, lookup ConfigLookup, notifier Notifier, ledger storage.Store, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.OSDRoot == "" {
		opts.OSDRoot = canonical.DefaultRoot
	}
	return &Orchestrator{
		mounter:   mounter,
		activator: activator,
		lookup:    lookup,
		notifier:  notifier,
		ledger:    ledger,
		opts:      opts,
		logger:    log.WithComponent(logger, "osd"),
		statFn:    os.Stat,
		lockFn:    lockVolume,
		now:       time.Now,
	}
}

func lockVolume(dir string) (func() error, error) {
	fl, err := activate.LockVolume(dir)
	if err != nil {
		return nil, err
	}
	return fl.Unlock, nil
}

// outcome accumulates what one run did, for the ledger and metrics
type outcome struct {
	kind     types.VolumeKind
	fstype   string
	id       types.Identity
	steps    []string
	lostRace bool
}

// Run activates target and returns the identity of the OSD it holds
func (o *Orchestrator) Run(ctx context.Context, target string) (types.Identity, error) {
	started := o.now()
	out := &outcome{}

	id, err := o.run(ctx, target, out)
	o.record(target, started, out, err)
	return id, err
}

func (o *Orchestrator) run(ctx context.Context, target string, out *outcome) (types.Identity, error) {
	// The canonical symlink of a directory OSD must not depend on the cwd
	abs, err := filepath.Abs(target)
	if err != nil {
		return types.Identity{}, fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	target = abs

	info, err := o.statFn(target)
	if err != nil {
		return types.Identity{}, fmt.Errorf("%s does not exist: %w", target, err)
	}

	mode := info.Mode()
	var dir string
	switch {
	case mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0:
		out.kind = types.VolumeKindDevice
		dir, err = o.activateDevice(ctx, target, out)
	case mode.IsDir():
		out.kind = types.VolumeKindDirectory
		dir, err = o.activateDirectory(ctx, target, out)
	default:
		return types.Identity{}, &activate.Error{Msg: fmt.Sprintf("%s is not a directory or block device", target)}
	}
	if err != nil {
		return types.Identity{}, err
	}

	if o.opts.StartDaemon {
		if err := o.notifier.Start(ctx, dir, out.id); err != nil {
			return types.Identity{}, err
		}
	}

	return out.id, nil
}

// activateDevice mounts dev on a scratch directory, activates it there, then
// moves the mount to the canonical path. Any failure after the mount undoes
// it. Returns the canonical path.
func (o *Orchestrator) activateDevice(ctx context.Context, dev string, out *outcome) (string, error) {
	logger := o.logger.With().Str("device", dev).Logger()

	fstype, err := o.mounter.DetectType(ctx, dev)
	if err != nil {
		return "", err
	}
	out.fstype = fstype

	options, err := o.mountOptions(ctx, fstype)
	if err != nil {
		return "", err
	}

	tmp, err := o.mounter.Mount(ctx, dev, fstype, options)
	if err != nil {
		return "", err
	}

	result, err := o.activator.Activate(ctx, tmp, o.activateOptions())
	if err != nil {
		o.cleanup(ctx, tmp, logger)
		return "", err
	}
	out.id = result.Identity
	out.steps = result.Steps

	path := canonical.Path(o.opts.OSDRoot, result.Identity)

	// Every mount of the device sees the same lock file, so only one
	// activation at a time can check the canonical path and move onto it
	unlock, err := o.lockFn(tmp)
	if err != nil {
		o.cleanup(ctx, tmp, logger)
		return "", err
	}

	moved, err := o.relocate(ctx, tmp, path)
	if unlockErr := unlock(); unlockErr != nil {
		logger.Warn().Err(unlockErr).Msg("failed to release volume lock")
	}
	if err != nil {
		o.cleanup(ctx, tmp, logger)
		return "", err
	}

	if !moved {
		// Another activation of the same device got there first
		out.lostRace = true
		logger.Info().Str("path", path).Msg("already mounted at canonical path, dropping temporary mount")
		if err := o.mounter.Unmount(ctx, tmp); err != nil {
			return "", err
		}
		return path, nil
	}

	osdLogger := log.WithOSD(logger, result.Identity.Cluster, result.Identity.ID)
	osdLogger.Info().
		Str("path", path).
		Msg("mounted at canonical path")
	return path, nil
}

// relocate moves the scratch mount to path unless the same device is already
// mounted there. moved is false in the latter case. The caller holds the
// volume lock.
func (o *Orchestrator) relocate(ctx context.Context, tmp, path string) (moved bool, err error) {
	same, err := o.mounter.SameDevice(tmp, path)
	if err != nil {
		return false, err
	}
	if same {
		return false, nil
	}

	if err := o.mounter.Move(ctx, tmp, path); err != nil {
		return false, err
	}
	return true, nil
}

// activateDirectory activates dir in place and links it into the canonical
// root. Returns the canonical path.
func (o *Orchestrator) activateDirectory(ctx context.Context, dir string, out *outcome) (string, error) {
	result, err := o.activator.Activate(ctx, dir, o.activateOptions())
	if err != nil {
		return "", err
	}
	out.id = result.Identity
	out.steps = result.Steps

	changed, err := canonical.Link(o.opts.OSDRoot, dir, result.Identity)
	if err != nil {
		return "", err
	}
	if changed {
		osdLogger := log.WithOSD(o.logger, result.Identity.Cluster, result.Identity.ID)
		osdLogger.Info().
			Str("path", dir).
			Msg("linked into canonical root")
	}

	return canonical.Path(o.opts.OSDRoot, result.Identity), nil
}

func (o *Orchestrator) activateOptions() activate.Options {
	return activate.Options{
		KeyringTemplate: o.opts.KeyringTemplate,
		Init:            o.opts.Init,
	}
}

// mountOptions resolves the options for fstype: local configuration, then the
// cluster's osd_mount_options_<fstype>, then its older
// osd_fs_mount_options_<fstype>, then the built-in defaults
func (o *Orchestrator) mountOptions(ctx context.Context, fstype string) (string, error) {
	if explicit := o.opts.MountOptions[fstype]; explicit != "" {
		return explicit, nil
	}

	for _, key := range []string{"osd_mount_options_" + fstype, "osd_fs_mount_options_" + fstype} {
		value, ok, err := o.lookup.LookupConfigValue(ctx, types.DefaultCluster, key)
		if err != nil {
			return "", fmt.Errorf("failed to look up %s: %w", key, err)
		}
		if ok {
			return mount.ResolveOptions(fstype, value), nil
		}
	}

	return mount.ResolveOptions(fstype, ""), nil
}

// cleanup undoes a temporary mount after a failure. The original failure is
// what the caller reports, so an unmount error is only logged.
func (o *Orchestrator) cleanup(ctx context.Context, tmp string, logger zerolog.Logger) {
	if err := o.mounter.Unmount(ctx, tmp); err != nil {
		logger.Error().Err(err).Str("path", tmp).Msg("failed to unmount after failed activation")
	}
}

// record writes the run to metrics and the ledger. Neither can change the
// outcome of the run.
func (o *Orchestrator) record(target string, started time.Time, out *outcome, runErr error) {
	finished := o.now()

	result := types.ActivationSucceeded
	switch {
	case runErr != nil:
		result = types.ActivationFailed
	case out.lostRace:
		result = types.ActivationAlreadyMounted
	}

	kind := string(out.kind)
	if kind == "" {
		kind = "unknown"
	}
	metrics.RunsTotal.WithLabelValues(kind, string(result)).Inc()
	if out.lostRace {
		metrics.RaceLostTotal.Inc()
	}
	if runErr == nil {
		metrics.LastSuccessTimestamp.Set(float64(finished.Unix()))
	}

	if o.ledger == nil {
		return
	}

	hostname, _ := os.Hostname()
	activation := &types.Activation{
		Target:     target,
		Kind:       out.kind,
		FSType:     out.fstype,
		Cluster:    out.id.Cluster,
		OSDID:      out.id.ID,
		Result:     result,
		Steps:      out.steps,
		Hostname:   hostname,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if runErr != nil {
		activation.Error = runErr.Error()
	}

	if err := o.ledger.CreateActivation(activation); err != nil {
		o.logger.Warn().Err(err).Msg("failed to record activation in ledger")
	}
}
