// Command server runs the scribe document extraction service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/scribe/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("scribe exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	srv, err := NewServer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	return srv.Shutdown(cfg.ShutdownTimeoutDuration())
}
