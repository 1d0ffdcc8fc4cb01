package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cgast/depsentry/internal/server"
	"github.com/cgast/depsentry/internal/telemetry"
	"github.com/cgast/depsentry/pkg/events"
	"github.com/cgast/depsentry/pkg/scan"
)

func newServeCmd(s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API, event history and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(s, cfg)
			policies, err := cfg.BuildPolicies()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bus := events.NewMemoryBus(0)
			b, err := openBackends(ctx, cfg, bus, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			metrics := telemetry.NewMetrics()
			scanner := scan.New(b.db, b.pypi,
				scan.WithPolicies(policies...),
				scan.WithIgnore(cfg.Ignore...),
				scan.WithWorkers(cfg.Workers),
				scan.WithEvents(bus),
				scan.WithMetrics(metrics),
				scan.WithLogger(logger),
			)

			srv := server.New(bus, scanner, metrics,
				server.WithLogger(logger),
				server.WithDatabaseVersion(b.db.Version),
			)
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().StringSlice("ignore", nil, "CVE ids or package names to ignore")
	cmd.Flags().Int("workers", scan.DefaultWorkers, "inputs analysed concurrently")
	cmd.Flags().String("github-token", "", "GitHub token for downloading the vulnerability database")
	return cmd
}
