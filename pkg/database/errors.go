package database

import (
	"errors"
	"net/http"
)

// ErrNotReady indicates the connection pool could not reach PostgreSQL.
var ErrNotReady = errors.New("database not ready")

// MapHTTPStatus maps database errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotReady) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
