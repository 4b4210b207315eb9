// Package config loads the scribe service configuration from TOML files
// and SCRIBE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/scribe/pkg/database"
	"github.com/JaimeStill/scribe/pkg/docservice"
	"github.com/JaimeStill/scribe/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvScribeEnv             = "SCRIBE_ENV"
	EnvScribeShutdownTimeout = "SCRIBE_SHUTDOWN_TIMEOUT"
	EnvScribeVersion         = "SCRIBE_VERSION"
)

// DatabaseEnv maps database settings to SCRIBE_DB_* variables. Exported so
// cmd/migrate resolves the same connection as the server.
var DatabaseEnv = &database.Env{
	Host:            "SCRIBE_DB_HOST",
	Port:            "SCRIBE_DB_PORT",
	Name:            "SCRIBE_DB_NAME",
	User:            "SCRIBE_DB_USER",
	Password:        "SCRIBE_DB_PASSWORD",
	SSLMode:         "SCRIBE_DB_SSL_MODE",
	MaxOpenConns:    "SCRIBE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "SCRIBE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "SCRIBE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "SCRIBE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "SCRIBE_STORAGE_CONTAINER_NAME",
	ConnectionString: "SCRIBE_STORAGE_CONNECTION_STRING",
}

var docServiceEnv = &docservice.Env{
	PublicKey:       "SCRIBE_DOCSERVICE_PUBLIC_KEY",
	BaseURL:         "SCRIBE_DOCSERVICE_BASE_URL",
	WorkerScheme:    "SCRIBE_DOCSERVICE_WORKER_SCHEME",
	Timeout:         "SCRIBE_DOCSERVICE_TIMEOUT",
	MaxDownloadSize: "SCRIBE_DOCSERVICE_MAX_DOWNLOAD_SIZE",
}

// Config is the root configuration for the scribe service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	API             APIConfig         `toml:"api"`
	DocService      docservice.Config `toml:"docservice"`
	Pipeline        PipelineConfig    `toml:"pipeline"`
	Jobs            JobsConfig        `toml:"jobs"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the SCRIBE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvScribeEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFrom(BaseConfigFile)
}

// LoadFrom is Load with an explicit base file path. The overlay is resolved
// relative to the same directory.
func LoadFrom(base string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(base); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.DocService.Merge(&overlay.DocService)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Jobs.Merge(&overlay.Jobs)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
}

// Finalize applies defaults, environment overrides, and validation to every
// section. Database and storage are only finalized when jobs are enabled.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.DocService.Finalize(docServiceEnv); err != nil {
		return fmt.Errorf("docservice: %w", err)
	}
	if err := c.Pipeline.Finalize(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Jobs.Finalize(); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}

	if !c.Jobs.Enabled {
		return nil
	}

	if err := c.Database.Finalize(DatabaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvScribeShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvScribeVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(base string) string {
	env := os.Getenv(EnvScribeEnv)
	if env == "" {
		return ""
	}

	path := filepath.Join(filepath.Dir(base), fmt.Sprintf(OverlayConfigPattern, env))
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
