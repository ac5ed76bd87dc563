package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	DirectoryDriver string        `env:"DIRECTORY_DRIVER" envDefault:"postgres"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	SQLitePath      string        `env:"SQLITE_PATH"`
	QueryServiceURL string        `env:"QUERY_SERVICE_URL"`
	AssertionSecret string        `env:"ASSERTION_SECRET"`
	AssertionIssuer string        `env:"ASSERTION_ISSUER" envDefault:"dealer-gateway"`
	AssertionTTL    time.Duration `env:"ASSERTION_TTL" envDefault:"1m"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDirectory reads only the settings needed to open the users directory.
func LoadDirectory() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.validateDirectory(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c *Config) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.DirectoryDriver = strings.ToLower(strings.TrimSpace(c.DirectoryDriver))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.SQLitePath = strings.TrimSpace(c.SQLitePath)
	c.QueryServiceURL = strings.TrimSpace(c.QueryServiceURL)
	c.AssertionSecret = strings.TrimSpace(c.AssertionSecret)
	c.CORSOrigins = trimAll(c.CORSOrigins)
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

func (c Config) validateDirectory() error {
	switch c.DirectoryDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unsupported DIRECTORY_DRIVER %q", c.DirectoryDriver)
	}
	return nil
}

func (c Config) validate() error {
	if err := c.validateDirectory(); err != nil {
		return err
	}
	if c.QueryServiceURL == "" {
		return errors.New("QUERY_SERVICE_URL is required")
	}
	if c.AssertionSecret == "" {
		return errors.New("ASSERTION_SECRET is required")
	}
	if c.AssertionTTL <= 0 {
		return errors.New("ASSERTION_TTL must be positive")
	}
	return nil
}

func trimAll(parts []string) []string {
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
