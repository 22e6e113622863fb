package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Log       LogConfig       `mapstructure:"log"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	Mode            string        `mapstructure:"mode" validate:"oneof=development production"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver" validate:"oneof=sqlite postgres postgresql"` // "sqlite" or "postgres"
	DSN             string `mapstructure:"dsn" validate:"required"`                             // Connection string
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`                                      // Maximum idle connections (Postgres)
	MaxOpenConns    int    `mapstructure:"max_open_conns"`                                      // Maximum open connections (Postgres)
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`                                   // Connection max lifetime in minutes (Postgres)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret    string           `mapstructure:"jwt_secret" validate:"required,min=32"` // Secret for JWT signing
	Issuer       string           `mapstructure:"issuer"`
	SessionTTL   time.Duration    `mapstructure:"session_ttl" validate:"min=0"`
	CookieName   string           `mapstructure:"cookie_name" validate:"required"`
	CookieSecure bool             `mapstructure:"cookie_secure"`
	CookieDomain string           `mapstructure:"cookie_domain"`
	Revocation   RevocationConfig `mapstructure:"revocation"`
	OIDC         OIDCConfig       `mapstructure:"oidc"`
}

// RevocationConfig selects where logged-out session ids are kept.
type RevocationConfig struct {
	Type       string `mapstructure:"type" validate:"oneof=memory valkey"` // "memory" or "valkey"
	ValkeyAddr string `mapstructure:"valkey_addr" validate:"required_if=Type valkey"`
}

// OIDCConfig configures the optional external identity provider.
type OIDCConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	IssuerURL    string   `mapstructure:"issuer_url" validate:"required_if=Enabled true"`
	ClientID     string   `mapstructure:"client_id" validate:"required_if=Enabled true"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url" validate:"required_if=Enabled true"`
	Scopes       []string `mapstructure:"scopes"`
}

// GuardConfig describes the protected admin area.
type GuardConfig struct {
	AreaPrefix        string   `mapstructure:"area_prefix" validate:"required,startswith=/"`
	DefaultPermission string   `mapstructure:"default_permission" validate:"required"`
	LoginPath         string   `mapstructure:"login_path"`
	LandingPath       string   `mapstructure:"landing_path" validate:"required,startswith=/"`
	ExemptPaths       []string `mapstructure:"exempt_paths"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format     string `mapstructure:"format" validate:"oneof=json text console"` // "json" or "text"
	Level      string `mapstructure:"level"`                                     // "debug", "info", "warn", "error"
	File       string `mapstructure:"file"`                                      // Optional rotating log file
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// BootstrapConfig controls seeding at startup.
type BootstrapConfig struct {
	CatalogFiles  string `mapstructure:"catalog_files"` // Glob of YAML catalog files, e.g. "catalog/**/*.yaml"
	AdminUsername string `mapstructure:"admin_username"`
	AdminEmail    string `mapstructure:"admin_email" validate:"omitempty,email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// Load reads configuration from .env, file and environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/bastion/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults
	}

	// Environment variables override
	v.SetEnvPrefix("BASTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" && cfg.Server.Mode == "development" {
		cfg.Auth.JWTSecret = randomSecret()
		slog.Warn("No auth.jwt_secret configured; using a random secret, sessions will not survive a restart")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8470)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./bastion.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60) // 60 minutes
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "bastion")
	v.SetDefault("auth.session_ttl", 2*time.Hour)
	v.SetDefault("auth.cookie_name", "bastion_session")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.cookie_domain", "")
	v.SetDefault("auth.revocation.type", "memory")
	v.SetDefault("auth.revocation.valkey_addr", "localhost:6379")
	v.SetDefault("auth.oidc.enabled", false)
	v.SetDefault("auth.oidc.issuer_url", "")
	v.SetDefault("auth.oidc.client_id", "")
	v.SetDefault("auth.oidc.client_secret", "")
	v.SetDefault("auth.oidc.redirect_url", "")
	v.SetDefault("auth.oidc.scopes", []string{})
	v.SetDefault("guard.area_prefix", "/admin")
	v.SetDefault("guard.default_permission", "access_admin_panel")
	v.SetDefault("guard.login_path", "/admin/login")
	v.SetDefault("guard.landing_path", "/admin")
	v.SetDefault("guard.exempt_paths", []string{})
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", false)
	v.SetDefault("bootstrap.catalog_files", "")
	v.SetDefault("bootstrap.admin_username", "")
	v.SetDefault("bootstrap.admin_email", "")
	v.SetDefault("bootstrap.admin_password", "")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Bootstrap.AdminUsername != "" && c.Bootstrap.AdminPassword == "" {
		return errors.New("invalid configuration: bootstrap.admin_password is required with bootstrap.admin_username")
	}
	return nil
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return hex.EncodeToString(buf)
}
