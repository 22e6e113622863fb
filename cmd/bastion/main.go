package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/nebari-dev/bastion/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "bastion",
	Short: "Bastion - access control for administrative areas",
	Long:  `Bastion guards an admin area with role-based permissions and keeps users, roles and permissions in a recoverable recycle bin.`,
	Example: `  # Prepare the database and start the server
  bastion migrate
  bastion serve --port 8080

  # Create an administrator from the command line
  bastion user create alice --email alice@example.com --admin`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
