package api

import (
	"net/http"

	"github.com/JaimeStill/scribe/internal/extraction"
	"github.com/JaimeStill/scribe/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) []string {
	groups := []routes.Group{
		extraction.NewHandler(domain.Pipeline, runtime.Logger, runtime.MaxUploadSize).Routes(),
	}

	if domain.Jobs != nil {
		groups = append(groups, domain.Jobs.Handler(runtime.MaxUploadSize).Routes())
	}

	return routes.Register(mux, groups...)
}
