package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cgast/depsentry/pkg/events"
)

func newDBCmd(s streams) *cobra.Command {
	db := &cobra.Command{
		Use:   "db",
		Short: "Manage the local vulnerability database",
	}

	update := &cobra.Command{
		Use:   "update",
		Short: "Download the latest vulnerability database release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")

			logger := newLogger(s, cfg)
			bus := events.NewMemoryBus(0)
			b, err := openBackends(cmd.Context(), cfg, bus, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			if _, err := b.db.Update(cmd.Context(), force); err != nil {
				return fmt.Errorf("update database: %w", err)
			}
			// Open may already have installed a newer release.
			if len(bus.History(time.Time{})) > 0 {
				fmt.Fprintf(s.out, "database updated to %s\n", b.db.Version())
			} else {
				fmt.Fprintf(s.out, "database %s is up to date\n", b.db.Version())
			}

			removed, err := b.store.Purge()
			if err != nil {
				return fmt.Errorf("purge cache: %w", err)
			}
			logger.Info("purged expired cache entries", "removed", removed)
			return nil
		},
	}
	update.Flags().Bool("force", false, "download even if the local release is current")
	update.Flags().String("github-token", "", "GitHub token for the release API")

	db.AddCommand(update)
	return db
}
