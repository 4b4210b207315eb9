package api

import (
	"github.com/JaimeStill/scribe/internal/jobs"
	"github.com/JaimeStill/scribe/internal/pipeline"
)

// Domain holds all domain systems that comprise the API.
// Jobs is nil when asynchronous extraction is disabled.
type Domain struct {
	Pipeline *pipeline.Pipeline
	Jobs     jobs.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	p := pipeline.New(runtime.DocService, runtime.Stages, runtime.Logger)

	domain := &Domain{Pipeline: p}

	if runtime.Jobs.Enabled {
		domain.Jobs = jobs.New(
			jobs.NewStore(runtime.Database.Connection()),
			runtime.Storage,
			p,
			jobs.Config{
				Workers:   runtime.Jobs.Workers,
				QueueSize: runtime.Jobs.QueueSize,
				ListLimit: runtime.Jobs.ListLimit,
			},
			runtime.Logger,
		)
	}

	return domain
}
