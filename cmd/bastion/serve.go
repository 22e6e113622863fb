package main

import (
	"fmt"
	"os"

	"github.com/nebari-dev/bastion/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

// @title Bastion API
// @version 1.0
// @description Admin-area access control and entity lifecycle API
// @host localhost:8470
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Bastion server",
	Long: `Start the Bastion HTTP server. The database is migrated and the system
catalog seeded before the server starts listening.

Examples:
  bastion serve                 # Use configured port
  bastion serve --port 8080     # Override port

Environment variables:
  BASTION_SERVER_PORT              Server port (default: 8470)
  BASTION_DATABASE_DRIVER          Database driver: sqlite, postgres
  BASTION_DATABASE_DSN             Database connection string
  BASTION_AUTH_JWT_SECRET          Session signing secret (at least 32 bytes)
  BASTION_AUTH_REVOCATION_TYPE     Revocation list: memory, valkey
  BASTION_BOOTSTRAP_ADMIN_USERNAME Bootstrap admin username
  BASTION_BOOTSTRAP_ADMIN_PASSWORD Bootstrap admin password`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := server.Config{
		Port:    servePort,
		Version: Version,
	}

	if err := server.RunWithSignalHandling(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
