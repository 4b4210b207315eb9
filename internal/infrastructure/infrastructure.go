// Package infrastructure assembles the shared systems every module depends on:
// lifecycle coordination, logging, the remote document service client, and,
// when asynchronous jobs are enabled, the database and blob storage.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/pkg/database"
	"github.com/JaimeStill/scribe/pkg/docservice"
	"github.com/JaimeStill/scribe/pkg/lifecycle"
	"github.com/JaimeStill/scribe/pkg/storage"
)

// Infrastructure holds the core systems required by the domain modules.
// Database and Storage are nil unless jobs are enabled.
type Infrastructure struct {
	Lifecycle  *lifecycle.Coordinator
	Logger     *slog.Logger
	DocService *docservice.Client
	Database   database.System
	Storage    storage.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{
		Lifecycle:  lifecycle.New(),
		Logger:     logger,
		DocService: docservice.New(&cfg.DocService, logger),
	}

	if !cfg.Jobs.Enabled {
		return infra, nil
	}

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	infra.Database = db
	infra.Storage = store
	return infra, nil
}

// Start registers the configured systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	return nil
}
