package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment prefix for every setting, e.g. TASKBOARD_LOG_LEVEL.
const Prefix = "TASKBOARD"

// Credential store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds all client configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Remote API
	APIBaseURL     string        `envconfig:"API_BASE_URL" default:"http://localhost:4000/api"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	// Credential persistence
	CredentialStore string        `envconfig:"CREDENTIAL_STORE" default:"sqlite"` // "memory" or "sqlite"
	DBPath          string        `envconfig:"DB_PATH" default:"taskboard.db"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`
	ProfileTTL      time.Duration `envconfig:"PROFILE_TTL" default:"24h"`

	// Local view API
	ViewListenAddr  string `envconfig:"VIEW_LISTEN_ADDR" default:"127.0.0.1:8085"`
	ViewCORSOrigins string `envconfig:"CORS_ORIGINS"`
}

// IsDevelopment reports whether human-friendly console logging should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// UsesSQLite returns true if credentials are persisted to disk.
func (c *Config) UsesSQLite() bool {
	return strings.EqualFold(c.CredentialStore, StoreSQLite)
}

// Validate checks values envconfig cannot check on its own.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid API base URL %q", c.APIBaseURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout))
	}
	switch strings.ToLower(c.CredentialStore) {
	case StoreMemory:
	case StoreSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB path is required for the sqlite credential store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown credential store %q", c.CredentialStore))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ProfileTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.ProfileTTL > c.RefreshTokenTTL {
		errs = append(errs, fmt.Errorf("profile TTL %v outlives refresh token TTL %v", c.ProfileTTL, c.RefreshTokenTTL))
	}
	return errors.Join(errs...)
}

// Load reads a .env file if present, then configuration from the environment.
func Load(envFiles ...string) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(envFiles...)
	return LoadWithPrefix(Prefix)
}

// LoadWithPrefix reads configuration with a prefix and validates it.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	cfg.APIBaseURL = strings.TrimSuffix(cfg.APIBaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
