package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/payment-orchestrator/internal/config"
	"github.com/rcarvalho-pb/payment-orchestrator/internal/infrastructure/persistence/sqlite"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the SQLite schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Store.Driver != "sqlite" {
				return fmt.Errorf("migrate needs the sqlite store, configured driver is %q", cfg.Store.Driver)
			}

			db, err := sqlite.Open(cmd.Context(), cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqlite.RunMigrations(db); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date at %s\n", cfg.Store.Path)
			return nil
		},
	}
}
