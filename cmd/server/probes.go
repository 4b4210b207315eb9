package main

import (
	"net/http"

	"github.com/JaimeStill/scribe/pkg/handlers"
	"github.com/JaimeStill/scribe/pkg/lifecycle"
	"github.com/JaimeStill/scribe/pkg/module"
)

type probeStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// mountProbes registers the liveness and readiness endpoints outside the
// /api module so they bypass request logging.
func mountProbes(router *module.Router, lc lifecycle.ReadinessChecker, version string, startupErr func() error) {
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, probeStatus{Status: "ok", Version: version})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if lc.Ready() {
			handlers.RespondJSON(w, http.StatusOK, probeStatus{Status: "ready"})
			return
		}

		status := probeStatus{Status: "not ready"}
		if err := startupErr(); err != nil {
			status.Error = err.Error()
		}
		handlers.RespondJSON(w, http.StatusServiceUnavailable, status)
	})
}
