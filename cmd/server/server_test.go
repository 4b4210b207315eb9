package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/infrastructure"
	"github.com/JaimeStill/scribe/pkg/module"
)

type fakeReadiness bool

func (f fakeReadiness) Ready() bool { return bool(f) }

func probe(t *testing.T, h http.Handler, path string) (int, probeStatus) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body probeStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, body
}

func TestProbes(t *testing.T) {
	t.Run("healthz reports version", func(t *testing.T) {
		router := module.NewRouter()
		mountProbes(router, fakeReadiness(false), "1.2.3", func() error { return nil })

		code, body := probe(t, router, "/healthz")
		if code != http.StatusOK || body.Version != "1.2.3" {
			t.Errorf("got %d %+v", code, body)
		}
	})

	t.Run("readyz surfaces startup error", func(t *testing.T) {
		router := module.NewRouter()
		mountProbes(router, fakeReadiness(false), "", func() error {
			return errors.New("database: not ready")
		})

		code, body := probe(t, router, "/readyz")
		if code != http.StatusServiceUnavailable {
			t.Errorf("status: got %d, want 503", code)
		}
		if body.Error != "database: not ready" {
			t.Errorf("error: got %q", body.Error)
		}
	})

	t.Run("readyz ok", func(t *testing.T) {
		router := module.NewRouter()
		mountProbes(router, fakeReadiness(true), "", func() error { return nil })

		if code, body := probe(t, router, "/readyz"); code != http.StatusOK || body.Status != "ready" {
			t.Errorf("got %d %+v", code, body)
		}
	})
}

func TestBuildRouter(t *testing.T) {
	cfg := &config.Config{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure: %v", err)
	}

	router, err := buildRouter(cfg, infra)
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	if code, _ := probe(t, router, "/readyz"); code != http.StatusServiceUnavailable {
		t.Errorf("readyz before startup: got %d, want 503", code)
	}

	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		t.Fatalf("startup: %v", err)
	}
	if code, _ := probe(t, router, "/readyz"); code != http.StatusOK {
		t.Errorf("readyz after startup: got %d, want 200", code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/extract", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty extract: got %d, want 400", rec.Code)
	}
}
