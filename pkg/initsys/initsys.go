package initsys

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/rs/zerolog"

	"github.com/cuemby/osd-activate/pkg/command"
	"github.com/cuemby/osd-activate/pkg/log"
	"github.com/cuemby/osd-activate/pkg/marker"
	"github.com/cuemby/osd-activate/pkg/types"
)

// DBusAPI is the part of the systemd manager API the notifier uses
type DBusAPI interface {
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	Close()
}

// DBusFactory opens a connection to the systemd manager
type DBusFactory func(ctx context.Context) (DBusAPI, error)

// NewDBusAPI connects to the system bus
func NewDBusAPI(ctx context.Context) (DBusAPI, error) {
	return dbus.NewWithContext(ctx)
}

// UntaggedError means the volume carries no init-system tag, so there is no
// way to know how its daemon should be started
type UntaggedError struct {
	Identity types.Identity
}

func (e *UntaggedError) Error() string {
	return fmt.Sprintf("%s %s is not tagged with an init system", e.Identity.Cluster, e.Identity.Name())
}

// Notifier starts the OSD daemon through whichever init system the volume
// is tagged for
type Notifier struct {
	runner  command.Runner
	newDBus DBusFactory
	logger  zerolog.Logger
}

// NewNotifier creates a service notifier
func NewNotifier(runner command.Runner, newDBus DBusFactory, logger zerolog.Logger) *Notifier {
	if newDBus == nil {
		newDBus = NewDBusAPI
	}
	return &Notifier{
		runner:  runner,
		newDBus: newDBus,
		logger:  logger,
	}
}

// Start asks the init system the volume at dir is tagged for to start the
// daemon for id. Tags are checked in the order upstart, sysvinit, systemd;
// the first present one is used.
func (n *Notifier) Start(ctx context.Context, dir string, id types.Identity) error {
	logger := log.WithOSD(n.logger, id.Cluster, id.ID)

	for _, initSys := range types.InitSystems {
		tagged, err := marker.Exists(dir, string(initSys))
		if err != nil {
			return err
		}
		if !tagged {
			continue
		}

		logger.Info().Str("init", string(initSys)).Msg("starting osd daemon")
		switch initSys {
		case types.InitUpstart:
			return n.startUpstart(ctx, id)
		case types.InitSysvinit:
			return n.startSysvinit(ctx, id)
		case types.InitSystemd:
			return n.startSystemd(ctx, id)
		}
	}

	return &UntaggedError{Identity: id}
}

// startUpstart emits the start event without waiting for the job
func (n *Notifier) startUpstart(ctx context.Context, id types.Identity) error {
	_, err := n.runner.Run(ctx, "initctl", "--no-wait", "emit", "ceph-osd",
		"cluster="+id.Cluster, "id="+id.ID)
	if err != nil {
		return fmt.Errorf("failed to start %s via upstart: %w", id.Name(), err)
	}
	return nil
}

func (n *Notifier) startSysvinit(ctx context.Context, id types.Identity) error {
	_, err := n.runner.Run(ctx, "service", id.Cluster, "start", id.Name())
	if err != nil {
		return fmt.Errorf("failed to start %s via sysvinit: %w", id.Name(), err)
	}
	return nil
}

// UnitName returns the systemd unit of the OSD daemon
func UnitName(id types.Identity) string {
	return fmt.Sprintf("ceph-osd@%s.service", id.ID)
}

func (n *Notifier) startSystemd(ctx context.Context, id types.Identity) error {
	conn, err := n.newDBus(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	unit := UnitName(id)
	statusCh := make(chan string, 1)
	if _, err := conn.StartUnitContext(ctx, unit, "replace", statusCh); err != nil {
		return fmt.Errorf("failed to start %s: %w", unit, err)
	}

	select {
	case status := <-statusCh:
		if status != "done" {
			return fmt.Errorf("failed to start %s (job status %q)", unit, status)
		}
	case <-ctx.Done():
		return fmt.Errorf("failed to start %s: %w", unit, ctx.Err())
	}

	return nil
}
