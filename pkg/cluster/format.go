package cluster

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuemby/osd-activate/pkg/command"
	"github.com/cuemby/osd-activate/pkg/types"
)

// Formatter lays out an OSD data directory with ceph-osd --mkfs
type Formatter struct {
	runner command.Runner
	logger zerolog.Logger
}

// NewFormatter creates a formatter
func NewFormatter(runner command.Runner, logger zerolog.Logger) *Formatter {
	return &Formatter{
		runner: runner,
		logger: logger,
	}
}

// Format creates the object store, journal and a fresh OSD key. Re-running it
// on a partially formatted directory produces the same end state.
func (f *Formatter) Format(ctx context.Context, req types.FormatRequest) error {
	f.logger.Info().
		Str("cluster", req.Cluster).
		Str("osd_id", req.ID).
		Str("path", req.DataPath).
		Msg("formatting osd data")

	_, err := f.runner.Run(ctx, "ceph-osd",
		"--cluster", req.Cluster,
		"--mkfs",
		"--mkkey",
		"-i", req.ID,
		"--monmap", req.MonmapPath,
		"--osd-data", req.DataPath,
		"--osd-journal", req.JournalPath,
		"--osd-uuid", req.FSID,
		"--keyring", req.KeyringPath,
	)
	if err != nil {
		return fmt.Errorf("failed to format osd.%s: %w", req.ID, err)
	}
	return nil
}
