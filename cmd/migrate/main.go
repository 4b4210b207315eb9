// Command migrate applies the embedded jobs schema migrations.
//
// The connection comes from -dsn, then SCRIBE_DB_DSN, then the [database]
// section of config.toml with SCRIBE_DB_* overrides.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/scribe/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "SCRIBE_DB_DSN"

type options struct {
	dsn      string
	up       bool
	down     bool
	steps    int
	version  bool
	force    int
	forceSet bool
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	opts := parseFlags()
	if err := run(opts, logger); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.dsn, "dsn", "", "database URL (postgres://...)")
	flag.BoolVar(&opts.up, "up", false, "apply all pending migrations")
	flag.BoolVar(&opts.down, "down", false, "revert all migrations")
	flag.IntVar(&opts.steps, "steps", 0, "apply N migrations (negative reverts)")
	flag.BoolVar(&opts.version, "version", false, "print the current schema version")
	flag.IntVar(&opts.force, "force", -1, "force the schema version without migrating")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			opts.forceSet = true
		}
	})
	return opts
}

func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if err := cfg.Database.Finalize(config.DatabaseEnv); err != nil {
		return "", fmt.Errorf("database config: %w", err)
	}
	return cfg.Database.URL(), nil
}

func run(opts options, logger *slog.Logger) error {
	if !opts.up && !opts.down && !opts.version && !opts.forceSet && opts.steps == 0 {
		fmt.Fprintln(os.Stderr, "usage: migrate [-dsn URL] -up|-down|-steps N|-version|-force N")
		flag.PrintDefaults()
		return nil
	}

	dsn, err := resolveDSN(opts.dsn)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch {
	case opts.version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		logger.Info("schema version", "version", v, "dirty", dirty)
		return nil
	case opts.forceSet:
		if err := m.Force(opts.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		logger.Info("version forced", "version", opts.force)
		return nil
	case opts.up:
		return report(logger, "up", m.Up())
	case opts.down:
		return report(logger, "down", m.Down())
	default:
		return report(logger, fmt.Sprintf("steps %d", opts.steps), m.Steps(opts.steps))
	}
}

func report(logger *slog.Logger, op string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("schema already current", "op", op)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("migrations applied", "op", op)
	return nil
}
