// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/infrastructure"
	"github.com/JaimeStill/scribe/pkg/middleware"
	"github.com/JaimeStill/scribe/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// Domain systems with background work are registered with the lifecycle here.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	if domain.Jobs != nil {
		if err := domain.Jobs.Start(runtime.Lifecycle); err != nil {
			return nil, fmt.Errorf("jobs start failed: %w", err)
		}
	}

	mux := http.NewServeMux()
	patterns := registerRoutes(mux, domain, runtime)
	runtime.Logger.Info("routes registered", "base_path", cfg.API.BasePath, "routes", patterns)

	m, err := module.New(cfg.API.BasePath, mux)
	if err != nil {
		return nil, err
	}
	m.Use(middleware.RequestID())
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
