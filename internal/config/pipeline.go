package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/JaimeStill/scribe/internal/pipeline"
)

const (
	EnvPipelineCompressionLevel = "SCRIBE_PIPELINE_COMPRESSION_LEVEL"
	EnvPipelineOCRLanguages     = "SCRIBE_PIPELINE_OCR_LANGUAGES"
)

var compressionLevels = []string{"low", "recommended", "extreme"}

// PipelineConfig holds the tool parameters of the processing stages.
type PipelineConfig struct {
	CompressionLevel string   `toml:"compression_level"`
	OCRLanguages     []string `toml:"ocr_languages"`
}

// Options converts the config into stage table options.
func (c *PipelineConfig) Options() pipeline.Options {
	return pipeline.Options{
		CompressionLevel: c.CompressionLevel,
		OCRLanguages:     slices.Clone(c.OCRLanguages),
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.CompressionLevel != "" {
		c.CompressionLevel = overlay.CompressionLevel
	}
	if overlay.OCRLanguages != nil {
		c.OCRLanguages = overlay.OCRLanguages
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.CompressionLevel == "" {
		c.CompressionLevel = "recommended"
	}
	if len(c.OCRLanguages) == 0 {
		c.OCRLanguages = []string{"ita"}
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineCompressionLevel); v != "" {
		c.CompressionLevel = v
	}
	if v := os.Getenv(EnvPipelineOCRLanguages); v != "" {
		var langs []string
		for lang := range strings.SplitSeq(v, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				langs = append(langs, lang)
			}
		}
		if len(langs) > 0 {
			c.OCRLanguages = langs
		}
	}
}

func (c *PipelineConfig) validate() error {
	if !slices.Contains(compressionLevels, c.CompressionLevel) {
		return fmt.Errorf("invalid compression_level: %q", c.CompressionLevel)
	}
	return nil
}
