package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chdir moves into an empty directory so no config.yaml or .env is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8470 {
		t.Errorf("expected default port 8470, got %d", cfg.Server.Port)
	}
	if cfg.Auth.SessionTTL != 2*time.Hour {
		t.Errorf("expected 2h session TTL, got %v", cfg.Auth.SessionTTL)
	}
	if cfg.Guard.AreaPrefix != "/admin" || cfg.Guard.DefaultPermission != "access_admin_panel" {
		t.Errorf("unexpected guard defaults: %+v", cfg.Guard)
	}
	if cfg.Auth.Revocation.Type != "memory" {
		t.Errorf("expected memory revocations, got %s", cfg.Auth.Revocation.Type)
	}
	// Development mode fills in a random secret
	if len(cfg.Auth.JWTSecret) < 32 {
		t.Errorf("expected generated secret, got %q", cfg.Auth.JWTSecret)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("BASTION_SERVER_PORT", "9000")
	t.Setenv("BASTION_AUTH_SESSION_TTL", "30m")
	t.Setenv("BASTION_AUTH_JWT_SECRET", strings.Repeat("k", 40))
	t.Setenv("BASTION_GUARD_DEFAULT_PERMISSION", "enter_backoffice")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Auth.SessionTTL != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %v", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.JWTSecret != strings.Repeat("k", 40) {
		t.Errorf("secret not taken from env")
	}
	if cfg.Guard.DefaultPermission != "enter_backoffice" {
		t.Errorf("expected overridden default permission, got %s", cfg.Guard.DefaultPermission)
	}
}

func TestLoad_ConfigFileAndDotEnv(t *testing.T) {
	dir := chdir(t)
	yaml := `
server:
  mode: production
database:
  driver: postgres
  dsn: postgres://bastion@localhost/bastion
guard:
  exempt_paths:
    - /admin/public/*
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	secret := strings.Repeat("d", 48)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BASTION_AUTH_JWT_SECRET="+secret+"\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("BASTION_AUTH_JWT_SECRET") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Mode != "production" || cfg.Database.Driver != "postgres" {
		t.Errorf("config file not applied: %+v %+v", cfg.Server, cfg.Database)
	}
	if len(cfg.Guard.ExemptPaths) != 1 || cfg.Guard.ExemptPaths[0] != "/admin/public/*" {
		t.Errorf("unexpected exempt paths: %v", cfg.Guard.ExemptPaths)
	}
	if cfg.Auth.JWTSecret != secret {
		t.Errorf("secret not loaded from .env")
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	chdir(t)
	t.Setenv("BASTION_SERVER_MODE", "production")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWTSecret") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8470, Mode: "development"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "bastion.db"},
		Auth: AuthConfig{
			JWTSecret:  strings.Repeat("s", 32),
			CookieName: "bastion_session",
			Revocation: RevocationConfig{Type: "memory"},
		},
		Guard: GuardConfig{AreaPrefix: "/admin", DefaultPermission: "access_admin_panel", LandingPath: "/admin"},
		Log:   LogConfig{Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: "JWTSecret"},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "Driver"},
		{name: "valkey without addr", mutate: func(c *Config) { c.Auth.Revocation = RevocationConfig{Type: "valkey"} }, wantErr: "ValkeyAddr"},
		{name: "valkey with addr", mutate: func(c *Config) {
			c.Auth.Revocation = RevocationConfig{Type: "valkey", ValkeyAddr: "localhost:6379"}
		}},
		{name: "oidc without client", mutate: func(c *Config) {
			c.Auth.OIDC = OIDCConfig{Enabled: true, IssuerURL: "https://idp.example.com", RedirectURL: "https://bastion.example.com/cb"}
		}, wantErr: "ClientID"},
		{name: "empty default permission", mutate: func(c *Config) { c.Guard.DefaultPermission = "" }, wantErr: "DefaultPermission"},
		{name: "relative area prefix", mutate: func(c *Config) { c.Guard.AreaPrefix = "admin" }, wantErr: "AreaPrefix"},
		{name: "admin without password", mutate: func(c *Config) { c.Bootstrap.AdminUsername = "root" }, wantErr: "admin_password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_RejectsEmptyDefaultPermission(t *testing.T) {
	dir := chdir(t)
	yaml := "guard:\n  default_permission: \"\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DefaultPermission") {
		t.Fatalf("expected default permission error, got %v", err)
	}
}
