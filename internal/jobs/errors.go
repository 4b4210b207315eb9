package jobs

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/scribe/internal/extraction"
	"github.com/JaimeStill/scribe/pkg/database"
	"github.com/JaimeStill/scribe/pkg/storage"
)

// Domain errors for job operations.
var (
	ErrNotFound      = errors.New("job not found")
	ErrDuplicate     = errors.New("job already exists")
	ErrInvalidID     = errors.New("invalid job id")
	ErrInvalidStatus = errors.New("invalid job status")
	ErrInvalidLimit  = errors.New("limit must be a positive integer")
	ErrQueueFull     = errors.New("job queue is full")
)

// MapHTTPStatus maps job, backing-store, and request errors to HTTP status
// codes. Anything unrecognized falls through to the extraction mapping.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, database.ErrNotReady):
		return database.MapHTTPStatus(err)
	case errors.Is(err, storage.ErrNotReady), errors.Is(err, storage.ErrInvalidKey):
		return storage.MapHTTPStatus(err)
	}
	return extraction.MapHTTPStatus(err)
}
