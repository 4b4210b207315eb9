// Package database opens the PostgreSQL pool backing job records and ties
// its connectivity check to the lifecycle coordinator.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/scribe/pkg/lifecycle"
)

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers a connectivity check at startup and pool close at shutdown.
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
}

// New configures a pgx-backed pool. No connection is made until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

// pingInterval spaces connectivity attempts while the startup window is open.
const pingInterval = 500 * time.Millisecond

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection", "timeout", d.connTimeout)

	lc.OnStartup("database", func() error {
		ctx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.awaitPing(ctx); err != nil {
			d.logger.Error("database unreachable", "error", err)
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}

		d.logger.Info("database connection established")
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		stats := d.conn.Stats()
		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed", "open", stats.OpenConnections, "in_use", stats.InUse)
	})

	return nil
}

// awaitPing retries until a ping succeeds or ctx ends, returning the last
// ping error. A database container started alongside the service usually
// needs a few seconds before it accepts connections.
func (d *database) awaitPing(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := d.conn.PingContext(ctx)
		if err == nil {
			return nil
		}
		d.logger.Debug("database ping failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return err
		case <-ticker.C:
		}
	}
}
