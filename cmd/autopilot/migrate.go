package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soypete/autopilot/pkg/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Database.Driver == "memory" {
				return fmt.Errorf("the memory driver has no schema to migrate")
			}
			db, err := database.New(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			version, err := db.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s, version %d)\n", db.Driver(), version)
			return nil
		},
	}
}
