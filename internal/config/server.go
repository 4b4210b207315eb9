package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "SCRIBE_SERVER_HOST"
	EnvServerPort              = "SCRIBE_SERVER_PORT"
	EnvServerReadHeaderTimeout = "SCRIBE_SERVER_READ_HEADER_TIMEOUT"
	EnvServerReadTimeout       = "SCRIBE_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout      = "SCRIBE_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "SCRIBE_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "SCRIBE_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener parameters. WriteTimeout bounds a whole
// synchronous extraction, so it defaults well above the remote call timeout.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	ReadTimeout       string `toml:"read_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ReadHeaderTimeoutDuration returns ReadHeaderTimeout as a time.Duration.
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return mustDuration(c.ReadHeaderTimeout)
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return mustDuration(c.ReadTimeout)
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return mustDuration(c.WriteTimeout)
}

// IdleTimeoutDuration returns IdleTimeout as a time.Duration.
func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	return mustDuration(c.IdleTimeout)
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for _, f := range c.durations(overlay) {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
}

type durationField struct {
	name string
	env  string
	dst  *string
	src  *string
	def  string
}

// durations pairs each timeout field with its overlay counterpart, env var,
// and default. other may be nil when no overlay is involved.
func (c *ServerConfig) durations(other *ServerConfig) []durationField {
	if other == nil {
		other = &ServerConfig{}
	}
	return []durationField{
		{"read_header_timeout", EnvServerReadHeaderTimeout, &c.ReadHeaderTimeout, &other.ReadHeaderTimeout, "10s"},
		{"read_timeout", EnvServerReadTimeout, &c.ReadTimeout, &other.ReadTimeout, "2m"},
		{"write_timeout", EnvServerWriteTimeout, &c.WriteTimeout, &other.WriteTimeout, "20m"},
		{"idle_timeout", EnvServerIdleTimeout, &c.IdleTimeout, &other.IdleTimeout, "2m"},
		{"shutdown_timeout", EnvServerShutdownTimeout, &c.ShutdownTimeout, &other.ShutdownTimeout, "30s"},
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	for _, f := range c.durations(nil) {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	for _, f := range c.durations(nil) {
		if v := os.Getenv(f.env); v != "" {
			*f.dst = v
		}
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, f := range c.durations(nil) {
		d, err := time.ParseDuration(*f.dst)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", f.name)
		}
	}
	return nil
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
