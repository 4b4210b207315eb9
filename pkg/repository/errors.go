package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// Errors names the domain errors a repository reports for database failures.
type Errors struct {
	NotFound  error
	Duplicate error
	Invalid   error
}

// Map translates err into the matching domain error: sql.ErrNoRows becomes
// NotFound, a unique violation becomes Duplicate, and a check constraint
// violation becomes Invalid. Unset targets and other errors pass through.
func (e Errors) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && e.NotFound != nil {
		return e.NotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation && e.Duplicate != nil:
			return e.Duplicate
		case pgErr.Code == pgCheckViolation && e.Invalid != nil:
			return e.Invalid
		}
	}

	return err
}
