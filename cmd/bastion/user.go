package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/config"
	"github.com/nebari-dev/bastion/internal/logger"
	"github.com/nebari-dev/bastion/internal/models"
	"github.com/nebari-dev/bastion/internal/rbac"
	"github.com/nebari-dev/bastion/internal/server"
	"github.com/nebari-dev/bastion/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	userEmail       string
	userDisplayName string
	userAdmin       bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a user",
	Long: `Create a local user. The password is read from the terminal, or from
BASTION_USER_PASSWORD when stdin is not a terminal.`,
	Example: `  bastion user create alice --email alice@example.com
  bastion user create ops --email ops@example.com --admin`,
	Args: cobra.ExactArgs(1),
	RunE: runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address (required)")
	userCreateCmd.Flags().StringVar(&userDisplayName, "name", "", "Display name")
	userCreateCmd.Flags().BoolVar(&userAdmin, "admin", false, "Assign the administrator role")
	_ = userCreateCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	password, err := readPassword()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.Init(cfg.Log)

	database, err := server.OpenDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	users := service.NewUserService(database, log)
	roles := service.NewRoleService(database, log)
	graph := rbac.NewGraph(database, log)

	ctx := cmd.Context()
	var created *models.User
	err = service.RunInTx(ctx, database, func(txCtx context.Context) error {
		user, err := users.Create(txCtx, service.CreateUserRequest{
			Username:    args[0],
			Email:       userEmail,
			DisplayName: userDisplayName,
			Password:    password,
		}, uuid.Nil)
		if err != nil {
			return err
		}
		if userAdmin {
			admin, err := roles.GetByName(txCtx, models.AdministratorRole)
			if err != nil {
				return fmt.Errorf("administrator role: %w", err)
			}
			if err := graph.AssignRole(txCtx, user.ID, admin.ID, "", false, uuid.Nil); err != nil {
				return err
			}
		}
		created = user
		return nil
	})
	if err != nil {
		var conflict *service.ConflictError
		var invalid *service.ValidationError
		if errors.As(err, &conflict) || errors.As(err, &invalid) {
			return fmt.Errorf("cannot create user: %w", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created user %s (%s)\n", created.Username, created.ID)
	return nil
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if p := os.Getenv("BASTION_USER_PASSWORD"); p != "" {
			return p, nil
		}
		return "", errors.New("no terminal: set BASTION_USER_PASSWORD")
	}

	fmt.Print("Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
