package main

import (
	"time"

	"github.com/JaimeStill/scribe/internal/api"
	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/infrastructure"
	"github.com/JaimeStill/scribe/pkg/module"
)

// Server owns the infrastructure, the routed handler tree, and the listener.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	router, err := buildRouter(cfg, infra)
	if err != nil {
		return nil, err
	}

	infra.Logger.Info(
		"scribe initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"jobs", cfg.Jobs.Enabled,
	)

	if cfg.DocService.PublicKey == "" {
		infra.Logger.Warn("docservice public key not configured; extraction requests will fail")
	}

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

func buildRouter(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Router, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	router := module.NewRouter()
	mountProbes(router, infra.Lifecycle, cfg.Version, infra.Lifecycle.Err)
	router.Mount(apiModule)
	return router, nil
}

// Start registers infrastructure hooks and begins listening. Readiness is
// reported asynchronously once every startup hook has returned.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.infra.Logger.Error("startup failed, service not ready", "error", err)
			return
		}
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown", "timeout", timeout)
	if err := s.infra.Lifecycle.Shutdown(timeout); err != nil {
		return err
	}
	s.infra.Logger.Info("scribe stopped")
	return nil
}
