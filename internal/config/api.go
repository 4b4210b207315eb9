package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/scribe/pkg/formatting"
	"github.com/JaimeStill/scribe/pkg/middleware"
)

const (
	EnvAPIBasePath      = "SCRIBE_API_BASE_PATH"
	EnvAPIMaxUploadSize = "SCRIBE_API_MAX_UPLOAD_SIZE"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "SCRIBE_CORS_ENABLED",
	Origins:          "SCRIBE_CORS_ORIGINS",
	AllowedMethods:   "SCRIBE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "SCRIBE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "SCRIBE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "SCRIBE_CORS_MAX_AGE",
}

// APIConfig holds API routing, request size, and CORS settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
}

// MaxUploadSizeBytes returns MaxUploadSize as a byte count.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 50 * 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS config.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
}

func (c *APIConfig) validate() error {
	n, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	return nil
}
