package database_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/scribe/pkg/database"
	"github.com/JaimeStill/scribe/pkg/lifecycle"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{Name: "scribe", User: "scribe"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"host", cfg.Host, "localhost"},
		{"port", cfg.Port, 5432},
		{"ssl_mode", cfg.SSLMode, "disable"},
		{"max_open_conns", cfg.MaxOpenConns, 10},
		{"max_idle_conns", cfg.MaxIdleConns, 2},
		{"conn_max_lifetime", cfg.ConnMaxLifetimeDuration(), 15 * time.Minute},
		{"conn_timeout", cfg.ConnTimeoutDuration(), 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "5433")
	t.Setenv("TEST_DB_NAME", "envdb")
	t.Setenv("TEST_DB_USER", "envuser")

	env := &database.Env{
		Host: "TEST_DB_HOST",
		Port: "TEST_DB_PORT",
		Name: "TEST_DB_NAME",
		User: "TEST_DB_USER",
	}

	cfg := database.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	want := "host=db.internal port=5433 dbname=envdb user=envuser sslmode=disable"
	if dsn := cfg.Dsn(); dsn != want {
		t.Errorf("dsn: got %q, want %q", dsn, want)
	}
}

func TestDsnQuotesValues(t *testing.T) {
	cfg := database.Config{Name: "scribe", User: "scribe", Password: `it's a secret`}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	want := `host=localhost port=5432 dbname=scribe user=scribe password='it\'s a secret' sslmode=disable`
	if dsn := cfg.Dsn(); dsn != want {
		t.Errorf("dsn: got %q, want %q", dsn, want)
	}
}

func TestURL(t *testing.T) {
	cfg := database.Config{Host: "db", Name: "scribe", User: "scribe", Password: "p@ss word"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	want := "postgres://scribe:p%40ss%20word@db:5432/scribe?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Errorf("url: got %q, want %q", got, want)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	if got := database.MapHTTPStatus(fmt.Errorf("%w: refused", database.ErrNotReady)); got != http.StatusServiceUnavailable {
		t.Errorf("not ready: got %d", got)
	}
	if got := database.MapHTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("other: got %d", got)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{"missing name", database.Config{User: "u"}, "name required"},
		{"missing user", database.Config{Name: "n"}, "user required"},
		{"bad lifetime", database.Config{Name: "n", User: "u", ConnMaxLifetime: "forever"}, "invalid conn_max_lifetime"},
		{"bad ssl mode", database.Config{Name: "n", User: "u", SSLMode: "sometimes"}, "invalid ssl_mode"},
		{"bad port", database.Config{Name: "n", User: "u", Port: 70000}, "invalid port"},
		{"idle over open", database.Config{Name: "n", User: "u", MaxOpenConns: 2, MaxIdleConns: 4}, "exceeds max_open_conns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error: got %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{Host: "localhost", Name: "scribe", Port: 5432}
	base.Merge(&database.Config{Host: "prodhost"})

	if base.Host != "prodhost" || base.Name != "scribe" || base.Port != 5432 {
		t.Errorf("merge: got %+v", base)
	}
}

func TestStartFailsReadinessWhenUnreachable(t *testing.T) {
	cfg := database.Config{
		Host:        "127.0.0.1",
		Port:        1,
		Name:        "scribe",
		User:        "scribe",
		ConnTimeout: "200ms",
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	sys, err := database.New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err = lc.WaitForStartup()
	if !errors.Is(err, database.ErrNotReady) {
		t.Errorf("startup error: got %v, want ErrNotReady", err)
	}
	if lc.Ready() {
		t.Error("coordinator should not be ready")
	}

	if err := lc.Shutdown(time.Second); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
