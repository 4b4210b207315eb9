package docservice

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/JaimeStill/scribe/pkg/formatting"
)

// Config holds the remote document service connection parameters.
// PublicKey is the long-lived credential exchanged for bearer tokens.
type Config struct {
	PublicKey       string `toml:"public_key"`
	BaseURL         string `toml:"base_url"`
	WorkerScheme    string `toml:"worker_scheme"`
	Timeout         string `toml:"timeout"`
	MaxDownloadSize string `toml:"max_download_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	PublicKey       string
	BaseURL         string
	WorkerScheme    string
	Timeout         string
	MaxDownloadSize string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// MaxDownloadBytes returns MaxDownloadSize as a byte count.
func (c *Config) MaxDownloadBytes() int64 {
	n, err := formatting.ParseBytes(c.MaxDownloadSize)
	if err != nil {
		return 100 * 1024 * 1024
	}
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
// An empty PublicKey is allowed here and reported as ErrAuth on first use.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.PublicKey != "" {
		c.PublicKey = overlay.PublicKey
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.WorkerScheme != "" {
		c.WorkerScheme = overlay.WorkerScheme
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxDownloadSize != "" {
		c.MaxDownloadSize = overlay.MaxDownloadSize
	}
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.ilovepdf.com/v1"
	}
	if c.WorkerScheme == "" {
		c.WorkerScheme = "https"
	}
	if c.Timeout == "" {
		c.Timeout = "5m"
	}
	if c.MaxDownloadSize == "" {
		c.MaxDownloadSize = "100MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.PublicKey != "" {
		if v := os.Getenv(env.PublicKey); v != "" {
			c.PublicKey = v
		}
	}
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.WorkerScheme != "" {
		if v := os.Getenv(env.WorkerScheme); v != "" {
			c.WorkerScheme = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.MaxDownloadSize != "" {
		if v := os.Getenv(env.MaxDownloadSize); v != "" {
			c.MaxDownloadSize = v
		}
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url: %q", c.BaseURL)
	}
	if c.WorkerScheme != "http" && c.WorkerScheme != "https" {
		return fmt.Errorf("invalid worker_scheme: %q", c.WorkerScheme)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	n, err := formatting.ParseBytes(c.MaxDownloadSize)
	if err != nil {
		return fmt.Errorf("invalid max_download_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("max_download_size must be positive")
	}
	return nil
}
