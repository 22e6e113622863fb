// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nebari-dev/bastion/internal/api"
	"github.com/nebari-dev/bastion/internal/api/handlers"
	"github.com/nebari-dev/bastion/internal/auth"
	"github.com/nebari-dev/bastion/internal/config"
	"github.com/nebari-dev/bastion/internal/db"
	"github.com/nebari-dev/bastion/internal/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	// Set version in handlers
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	// Load configuration
	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override port from CLI flag if provided
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	log := logger.Init(appCfg.Log)
	log.Info("Starting Bastion server", "version", cfg.Version, "mode", appCfg.Server.Mode)

	database, err := OpenDatabase(ctx, appCfg)
	if err != nil {
		return err
	}

	// Session tokens are issued for this instance only
	instanceID, err := db.GetOrCreateInstanceID(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to initialize instance ID: %w", err)
	}

	revocations, closeRevocations, err := createRevocations(appCfg.Auth.Revocation)
	if err != nil {
		return fmt.Errorf("failed to initialize revocation list: %w", err)
	}
	defer closeRevocations()

	sessions, err := auth.NewSessions(auth.SessionConfig{
		Secret:   appCfg.Auth.JWTSecret,
		Issuer:   appCfg.Auth.Issuer,
		Audience: instanceID,
		TTL:      appCfg.Auth.SessionTTL,
	}, revocations)
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}

	deps := api.Dependencies{DB: database, Sessions: sessions}
	if appCfg.Auth.OIDC.Enabled {
		provider, err := auth.NewOIDCProvider(ctx, auth.OIDCConfig{
			IssuerURL:    appCfg.Auth.OIDC.IssuerURL,
			ClientID:     appCfg.Auth.OIDC.ClientID,
			ClientSecret: appCfg.Auth.OIDC.ClientSecret,
			RedirectURL:  appCfg.Auth.OIDC.RedirectURL,
			Scopes:       appCfg.Auth.OIDC.Scopes,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize OIDC: %w", err)
		}
		deps.External = provider
		log.Info("OIDC login enabled", "issuer", appCfg.Auth.OIDC.IssuerURL)
	}

	router := api.NewRouter(appCfg, deps, log)
	addr := fmt.Sprintf(":%d", appCfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		log.Info("Server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Bastion exited")
	return nil
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg)
}

// OpenDatabase connects, migrates and seeds the database.
func OpenDatabase(ctx context.Context, appCfg *config.Config) (*gorm.DB, error) {
	database, err := db.New(appCfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", appCfg.Database.Driver)

	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	err = db.Bootstrap(ctx, database, db.BootstrapOptions{
		CatalogFiles:  appCfg.Bootstrap.CatalogFiles,
		AdminUsername: appCfg.Bootstrap.AdminUsername,
		AdminEmail:    appCfg.Bootstrap.AdminEmail,
		AdminPassword: appCfg.Bootstrap.AdminPassword,
	}, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap catalog: %w", err)
	}
	return database, nil
}

// createRevocations creates the revocation list based on configuration.
func createRevocations(cfg config.RevocationConfig) (auth.Revocations, func(), error) {
	switch cfg.Type {
	case "", "memory":
		return auth.NewMemoryRevocations(), func() {}, nil
	case "valkey":
		if cfg.ValkeyAddr == "" {
			return nil, nil, fmt.Errorf("valkey address is required when revocation type is valkey")
		}
		v, err := auth.NewValkeyRevocations(cfg.ValkeyAddr)
		if err != nil {
			return nil, nil, err
		}
		return v, v.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported revocation type: %s (supported: memory, valkey)", cfg.Type)
	}
}
