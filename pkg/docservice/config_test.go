package docservice_test

import (
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/scribe/pkg/docservice"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := docservice.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.BaseURL != "https://api.ilovepdf.com/v1" {
		t.Errorf("base_url: got %s", cfg.BaseURL)
	}
	if cfg.WorkerScheme != "https" {
		t.Errorf("worker_scheme: got %s, want https", cfg.WorkerScheme)
	}
	if cfg.TimeoutDuration() != 5*time.Minute {
		t.Errorf("timeout: got %v, want 5m", cfg.TimeoutDuration())
	}
	if cfg.MaxDownloadBytes() != 100*1024*1024 {
		t.Errorf("max_download_size: got %d", cfg.MaxDownloadBytes())
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PUBLIC_KEY", "project_public_abc")
	t.Setenv("TEST_TIMEOUT", "90s")

	env := &docservice.Env{
		PublicKey: "TEST_PUBLIC_KEY",
		Timeout:   "TEST_TIMEOUT",
	}

	cfg := docservice.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.PublicKey != "project_public_abc" {
		t.Errorf("public_key: got %s", cfg.PublicKey)
	}
	if cfg.TimeoutDuration() != 90*time.Second {
		t.Errorf("timeout: got %v, want 90s", cfg.TimeoutDuration())
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     docservice.Config
		wantErr string
	}{
		{"relative base_url", docservice.Config{BaseURL: "api/v1"}, "invalid base_url"},
		{"bad scheme", docservice.Config{WorkerScheme: "ftp"}, "invalid worker_scheme"},
		{"bad timeout", docservice.Config{Timeout: "soon"}, "invalid timeout"},
		{"bad size", docservice.Config{MaxDownloadSize: "lots"}, "invalid max_download_size"},
		{"zero size", docservice.Config{MaxDownloadSize: "0"}, "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := docservice.Config{PublicKey: "base", Timeout: "1m"}
	base.Merge(&docservice.Config{PublicKey: "overlay"})

	if base.PublicKey != "overlay" {
		t.Errorf("public_key: got %s, want overlay", base.PublicKey)
	}
	if base.Timeout != "1m" {
		t.Errorf("timeout: got %s, want 1m", base.Timeout)
	}
}
