package api

import (
	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/infrastructure"
	"github.com/JaimeStill/scribe/internal/pipeline"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Stages        []pipeline.Stage
	MaxUploadSize int64
	Jobs          *config.JobsConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle:  infra.Lifecycle,
			Logger:     infra.Logger.With("module", "api"),
			DocService: infra.DocService,
			Database:   infra.Database,
			Storage:    infra.Storage,
		},
		Stages:        pipeline.DefaultStages(cfg.Pipeline.Options()),
		MaxUploadSize: cfg.API.MaxUploadSizeBytes(),
		Jobs:          &cfg.Jobs,
	}
}
