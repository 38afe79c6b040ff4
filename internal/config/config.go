package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"

	minCSRFKeyLength = 32
	sealKeyLength    = 32
)

type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`

	// Server config
	Server ServerConfig

	// analyzer + API surface
	API APIConfig

	// CSRF config
	Security SecurityConfig

	// journal storage + retention
	Journal JournalConfig

	// rate limiting and body limits
	Limits LimitsConfig

	Log LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `env:"SERVER_ADDRESS" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// APIConfig holds the route prefix and the version stamped into results.
type APIConfig struct {
	Prefix  string `env:"API_PREFIX" envDefault:"/api/node-gate"`
	Version string `env:"ANALYZER_VERSION" envDefault:"1.0.0"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	CSRFKey            string   `env:"CSRF_KEY"`
	SecureCookies      bool     `env:"CSRF_SECURE"`
	CSRFTrustedOrigins []string `env:"CSRF_TRUSTED_ORIGINS" envSeparator:","`

	// set by Load when CSRF_KEY was empty in development
	CSRFKeyGenerated bool
}

// JournalConfig selects the journal backend.
type JournalConfig struct {
	Driver        string        `env:"JOURNAL_DRIVER" envDefault:"memory"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"agp.db"`
	MaxEntries    int           `env:"JOURNAL_MAX_ENTRIES" envDefault:"1024"`
	Retention     time.Duration `env:"JOURNAL_RETENTION" envDefault:"720h"`
	PruneSchedule string        `env:"JOURNAL_PRUNE_SCHEDULE" envDefault:"@hourly"`
	SealKey       string        `env:"JOURNAL_SEAL_KEY"`
}

// LimitsConfig holds rate limiting and request size settings.
type LimitsConfig struct {
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	MaxBodyBytes   int64   `env:"MAX_BODY_BYTES" envDefault:"65536"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
	File   string `env:"LOG_FILE"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// a missing .env is fine, production sets real env vars
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Security.CSRFKey == "" && cfg.IsDevelopment() {
		key, err := randomKey(minCSRFKeyLength)
		if err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		cfg.Security.CSRFKey = key
		cfg.Security.CSRFKeyGenerated = true
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present and valid.
func (c *Config) validate() error {
	var errs []error

	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Environment))
	}

	if c.Security.CSRFKey == "" {
		errs = append(errs, errors.New("CSRF_KEY is required"))
	} else if len(c.Security.CSRFKey) < minCSRFKeyLength {
		errs = append(errs, fmt.Errorf("CSRF_KEY must be at least %d characters", minCSRFKeyLength))
	}

	switch c.Journal.Driver {
	case "none", "memory":
	case "sqlite":
		if c.Journal.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite journal"))
		}
	case "postgres":
		if c.Journal.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres journal"))
		}
	default:
		errs = append(errs, fmt.Errorf("JOURNAL_DRIVER must be one of: none, memory, sqlite, postgres (got: %s)", c.Journal.Driver))
	}

	if c.Journal.SealKey != "" {
		raw, err := base64.StdEncoding.DecodeString(c.Journal.SealKey)
		if err != nil || len(raw) != sealKeyLength {
			errs = append(errs, fmt.Errorf("JOURNAL_SEAL_KEY must be %d bytes, base64 encoded", sealKeyLength))
		}
	}
	if c.Journal.Retention < 0 {
		errs = append(errs, errors.New("JOURNAL_RETENTION cannot be negative"))
	}

	if c.Limits.RateLimitRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS cannot be negative"))
	}
	if c.Limits.RateLimitBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST cannot be negative"))
	}
	if c.Limits.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json (got: %s)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	return nil
}

func randomKey(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// raw URL base64 of n bytes is always longer than n characters
	return base64.RawURLEncoding.EncodeToString(b), nil
}
