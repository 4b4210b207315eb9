package storage

import (
	"fmt"
	"os"
	"regexp"
)

// Azure container names: 3-63 chars of lowercase letters, digits, and
// single hyphens, starting and ending with a letter or digit.
var containerPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9]|-[a-z0-9]){2,62}$`)

// Config holds the Azure Blob Storage account and container used for job inputs.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
}

// Env names the environment variables that override each Config field.
type Env struct {
	ContainerName    string
	ConnectionString string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.ContainerName == "" {
		c.ContainerName = "scribe"
	}
	if env != nil {
		override(&c.ContainerName, env.ContainerName)
		override(&c.ConnectionString, env.ConnectionString)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
}

func (c *Config) validate() error {
	if !containerPattern.MatchString(c.ContainerName) {
		return fmt.Errorf("invalid container_name: %q", c.ContainerName)
	}
	if c.ConnectionString == "" {
		return fmt.Errorf("connection_string required")
	}
	return nil
}

func override(dst *string, name string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}
