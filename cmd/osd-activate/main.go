package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cuemby/osd-activate/pkg/activate"
	"github.com/cuemby/osd-activate/pkg/cluster"
	"github.com/cuemby/osd-activate/pkg/command"
	"github.com/cuemby/osd-activate/pkg/config"
	"github.com/cuemby/osd-activate/pkg/initsys"
	"github.com/cuemby/osd-activate/pkg/log"
	"github.com/cuemby/osd-activate/pkg/metrics"
	"github.com/cuemby/osd-activate/pkg/mount"
	"github.com/cuemby/osd-activate/pkg/osd"
	"github.com/cuemby/osd-activate/pkg/storage"
	"github.com/cuemby/osd-activate/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(os.Args[0]), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "osd-activate [flags] PATH",
		Short: "Activate a prepared Ceph OSD volume",
		Long: `Activate a prepared Ceph OSD data volume and start its daemon.

PATH is either a block device holding a prepared OSD filesystem, which is
mounted and moved to /var/lib/ceph/osd/{cluster}-{id}, or a directory, which
is activated in place and symlinked there. Activation is idempotent: running
it again on an active volume only (re)starts the daemon.`,
		Version:       Version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runActivate,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"osd-activate version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultPath, "Configuration file")
	flags.BoolP("verbose", "v", false, "Log debug detail")
	flags.Bool("log-json", false, "Log as JSON instead of console text")
	flags.String("ledger", "", "Activation ledger database (overrides ledger_path)")

	rootCmd.Flags().String("activate-key", "", "Bootstrap keyring path; {cluster} is replaced by the cluster name")
	rootCmd.Flags().String("mark-init", "", "Tag the volume for an init system (upstart, sysvinit, systemd, auto)")
	rootCmd.Flags().String("metrics-textfile", "", "Write metrics to this node-exporter textfile after the run")
	rootCmd.Flags().Bool("no-start-daemon", false, "Do not start the OSD daemon after activation")

	rootCmd.AddCommand(newHistoryCmd())
	return rootCmd
}

// loadConfig reads the configuration file and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"ledger", &cfg.LedgerPath},
		{"activate-key", &cfg.ActivateKey},
		{"mark-init", &cfg.Init},
		{"metrics-textfile", &cfg.MetricsTextfile},
	}
	for _, o := range overrides {
		if f := cmd.Flags().Lookup(o.flag); f != nil && f.Changed {
			*o.dst = f.Value.String()
		}
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = string(log.DebugLevel)
	}
	if jsonOut, _ := cmd.Flags().GetBool("log-json"); jsonOut {
		cfg.Log.JSON = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runActivate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logger := log.New(logCfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	noStart, _ := cmd.Flags().GetBool("no-start-daemon")

	runner := command.NewExecRunner(log.WithComponent(logger, "command"))
	client := cluster.NewClient(runner, log.WithComponent(logger, "cluster"))
	machine := activate.NewMachine(
		client,
		cluster.NewFormatter(runner, log.WithComponent(logger, "format")),
		log.WithComponent(logger, "activate"),
	)
	mounter := mount.NewManager(cfg.TmpRoot, runner, log.WithComponent(logger, "mount"))
	notifier := initsys.NewNotifier(runner, initsys.NewDBusAPI, log.WithComponent(logger, "initsys"))

	var ledger storage.Store
	if cfg.LedgerPath != "" {
		store, err := storage.NewBoltStore(cfg.LedgerPath)
		if err != nil {
			// History is optional; activation goes ahead without it
			logger.Warn().Err(err).Str("path", cfg.LedgerPath).Msg("ledger unavailable, not recording this run")
		} else {
			defer store.Close()
			ledger = store
		}
	}

	orch := osd.NewOrchestrator(mounter, machine, client, notifier, ledger, osd.Options{
		OSDRoot:         cfg.OSDRoot,
		KeyringTemplate: cfg.ActivateKey,
		Init:            cfg.InitSystem(),
		MountOptions:    cfg.MountOptions,
		StartDaemon:     !noStart,
	}, logger)

	id, runErr := orch.Run(ctx, args[0])

	writeMetrics(cfg.MetricsTextfile, logger)

	if runErr != nil {
		return runErr
	}
	logger.Info().Str("cluster", id.Cluster).Str("osd_id", id.ID).Msg("activation complete")
	return nil
}

func writeMetrics(path string, logger zerolog.Logger) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		logger.Warn().Err(err).Msg("failed to export metrics")
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded activation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.LedgerPath == "" {
				return fmt.Errorf("no ledger configured")
			}

			store, err := storage.NewBoltStore(cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer store.Close()

			clusterName, _ := cmd.Flags().GetString("cluster")
			id, _ := cmd.Flags().GetString("id")

			var records []*types.Activation
			if id != "" {
				records, err = store.ListActivationsByOSD(clusterName, id)
			} else {
				records, err = store.ListActivations()
			}
			if err != nil {
				return fmt.Errorf("failed to read ledger: %w", err)
			}

			return printHistory(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().String("cluster", types.DefaultCluster, "Cluster name (with --id)")
	cmd.Flags().String("id", "", "Only show runs that produced this OSD id")
	return cmd
}

func printHistory(w io.Writer, records []*types.Activation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTARGET\tKIND\tOSD\tRESULT\tDURATION\tERROR")
	for _, r := range records {
		osdName := "-"
		if r.OSDID != "" {
			osdName = types.Identity{Cluster: r.Cluster, ID: r.OSDID}.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Format(time.RFC3339),
			r.Target,
			r.Kind,
			osdName,
			r.Result,
			r.Duration().Round(time.Millisecond),
			r.Error,
		)
	}
	return tw.Flush()
}
