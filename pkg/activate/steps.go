package activate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cuemby/osd-activate/pkg/log"
	"github.com/cuemby/osd-activate/pkg/marker"
	"github.com/cuemby/osd-activate/pkg/types"
)

// allocate obtains a new OSD id from the monitors and persists it at once, so
// a later failure never wastes the allocation
func (m *Machine) allocate(ctx context.Context, r *run) error {
	out, err := m.controlPlane.CreateIdentity(ctx, r.cluster, r.state.FSID.Text, r.keyring)
	if err != nil {
		return wrap(err, "cannot allocate osd id")
	}

	id, err := marker.ParseLine([]byte(out))
	if err != nil {
		return wrap(err, "bad osd id %q", out)
	}
	if !ValidID(id) {
		return errorf("bad osd id %q", id)
	}

	if err := marker.Write(r.dir, marker.WhoAmI, id); err != nil {
		return wrap(err, "cannot record osd id %s", id)
	}
	r.state.WhoAmI = Value{Text: id, Present: true}

	osdLogger := log.WithOSD(r.logger, r.cluster, id)
	osdLogger.Info().Msg("allocated osd id")
	return nil
}

// initialize writes the monitor map to the volume and formats it. Formatting
// is re-runnable, and ready is only written once it has succeeded.
func (m *Machine) initialize(ctx context.Context, r *run) error {
	id := r.identity()

	monmap, err := m.controlPlane.GetMembershipSnapshot(ctx, r.cluster, r.keyring)
	if err != nil {
		return wrap(err, "cannot fetch monmap")
	}

	monmapPath := filepath.Join(r.dir, MonmapFile)
	if err := os.WriteFile(monmapPath, monmap, 0644); err != nil {
		return wrap(err, "cannot write monmap")
	}

	err = m.formatter.Format(ctx, types.FormatRequest{
		Cluster:     r.cluster,
		ID:          id.ID,
		FSID:        r.state.FSID.Text,
		DataPath:    r.dir,
		MonmapPath:  monmapPath,
		JournalPath: filepath.Join(r.dir, JournalFile),
		KeyringPath: filepath.Join(r.dir, KeyringFile),
	})
	if err != nil {
		return wrap(err, "cannot format %s", id.Name())
	}

	if err := marker.Write(r.dir, marker.Ready, ""); err != nil {
		return wrap(err, "cannot mark %s ready", id.Name())
	}
	r.state.Ready = true

	osdLogger := log.WithOSD(r.logger, r.cluster, id.ID)
	osdLogger.Info().Msg("formatted osd data")
	return nil
}

// markInit tags the volume for the selected init system and drops any other
// tag. It gates nothing and may run any number of times.
func (m *Machine) markInit(ctx context.Context, r *run) error {
	if err := marker.Touch(r.dir, string(r.init)); err != nil {
		return wrap(err, "cannot tag volume for %s", r.init)
	}

	for _, other := range types.InitSystems {
		if other == r.init {
			continue
		}
		if err := marker.Remove(r.dir, string(other)); err != nil {
			return wrap(err, "cannot remove %s tag", other)
		}
	}
	r.state.InitTags = []types.InitSystem{r.init}

	r.logger.Debug().Str("init", string(r.init)).Msg("tagged volume")
	return nil
}

// authorize registers the key generated by initialize with the monitors
func (m *Machine) authorize(ctx context.Context, r *run) error {
	id := r.identity()
	keyring := filepath.Join(r.dir, KeyringFile)

	err := m.controlPlane.RegisterCredential(ctx, r.cluster, r.keyring, id.Name(), keyring, types.OSDCapabilities)
	if err != nil {
		return wrap(err, "cannot register key for %s", id.Name())
	}

	if err := marker.Write(r.dir, marker.Active, "ok"); err != nil {
		return wrap(err, "cannot mark %s active", id.Name())
	}
	r.state.Active = true

	osdLogger := log.WithOSD(r.logger, r.cluster, id.ID)
	osdLogger.Info().Msg("registered osd key")
	return nil
}
