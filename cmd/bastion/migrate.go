package main

import (
	"fmt"

	"github.com/nebari-dev/bastion/internal/config"
	"github.com/nebari-dev/bastion/internal/logger"
	"github.com/nebari-dev/bastion/internal/server"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the database and seed the catalog",
	Long: `Create or update the database schema, then seed the system permissions,
the administrator role, any configured catalog files and the bootstrap admin.
Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger.Init(cfg.Log)

		if _, err := server.OpenDatabase(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Println("Database is up to date")
		return nil
	},
}
