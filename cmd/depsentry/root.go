package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cgast/depsentry/internal/cache"
	"github.com/cgast/depsentry/internal/config"
	"github.com/cgast/depsentry/internal/telemetry"
	"github.com/cgast/depsentry/pkg/events"
	"github.com/cgast/depsentry/pkg/registry"
	"github.com/cgast/depsentry/pkg/vulndb"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	s := streams{in: in, out: out, err: errOut}
	root := &cobra.Command{
		Use:   "depsentry",
		Short: "Dependency vulnerability and policy scanner for Python projects",
		Long: `depsentry finds the Python dependency files of a project, checks every
dependency against the vulnerability database and enforces the compliance
policies configured in .depsentry.yml.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().String("config", config.DefaultFile, "config file")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")
	root.PersistentFlags().Bool("silent", false, "suppress log output")

	root.AddCommand(
		newScanCmd(s),
		newValidateCmd(s),
		newDBCmd(s),
		newServeCmd(s),
		newInitCmd(s),
	)
	return root
}

// loadConfig merges the config file, DEPSENTRY_* environment and the
// command's flags, then validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return cfg, fmt.Errorf("bind flags: %w", err)
	}
	config.ApplyOverrides(&cfg, v)

	if result := config.Validate(cfg); !result.Valid() {
		return cfg, result
	}
	return cfg, nil
}

func newLogger(s streams, cfg config.Config) *slog.Logger {
	return telemetry.NewLogger(s.err, cfg.Debug, cfg.Silent)
}

// backends are the network collaborators of a scan.
type backends struct {
	store *cache.BoltCache
	pypi  *registry.PyPI
	db    *vulndb.DB
}

func (b *backends) Close() error {
	return b.store.Close()
}

func openBackends(ctx context.Context, cfg config.Config, bus events.EventBus, logger *slog.Logger) (*backends, error) {
	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(filepath.Join(dir, "cache.db"), cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}

	source := vulndb.NewGitHubSource(cfg.VulnDB.Token, cfg.VulnDB.Owner, cfg.VulnDB.Repo)
	db, err := vulndb.Open(ctx, filepath.Join(dir, "db"), source, vulndb.WithCache(store), vulndb.WithEvents(bus), vulndb.WithLogger(logger))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open vulnerability database: %w", err)
	}
	logger.Debug("vulnerability database ready", "version", db.Version())

	return &backends{
		store: store,
		pypi:  registry.NewPyPI(store, logger),
		db:    db,
	}, nil
}
