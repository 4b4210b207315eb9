package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvJobsEnabled   = "SCRIBE_JOBS_ENABLED"
	EnvJobsWorkers   = "SCRIBE_JOBS_WORKERS"
	EnvJobsQueueSize = "SCRIBE_JOBS_QUEUE_SIZE"
	EnvJobsListLimit = "SCRIBE_JOBS_LIST_LIMIT"
)

// JobsConfig controls asynchronous extraction. Database and storage
// settings are only required when Enabled is true.
type JobsConfig struct {
	Enabled   bool `toml:"enabled"`
	Workers   int  `toml:"workers"`
	QueueSize int  `toml:"queue_size"`
	ListLimit int  `toml:"list_limit"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *JobsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Enabled only switches on.
func (c *JobsConfig) Merge(overlay *JobsConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.QueueSize != 0 {
		c.QueueSize = overlay.QueueSize
	}
	if overlay.ListLimit != 0 {
		c.ListLimit = overlay.ListLimit
	}
}

func (c *JobsConfig) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
	if c.ListLimit == 0 {
		c.ListLimit = 50
	}
}

func (c *JobsConfig) loadEnv() {
	if v := os.Getenv(EnvJobsEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvJobsWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvJobsQueueSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.QueueSize = n
		}
	}
	if v := os.Getenv(EnvJobsListLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ListLimit = n
		}
	}
}

func (c *JobsConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1: %d", c.Workers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1: %d", c.QueueSize)
	}
	if c.ListLimit < 1 {
		return fmt.Errorf("list_limit must be at least 1: %d", c.ListLimit)
	}
	return nil
}
