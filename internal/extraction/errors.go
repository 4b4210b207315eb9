package extraction

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/scribe/internal/pipeline"
)

// Request errors for the extraction boundary.
var (
	ErrEmptyBody = errors.New("request body is empty")
	ErrTooLarge  = errors.New("document exceeds maximum upload size")
	ErrReadBody  = errors.New("failed to read request body")
)

// MapHTTPStatus maps boundary and pipeline errors to HTTP status codes.
// Every remote or pipeline failure is a 500.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrEmptyBody) || errors.Is(err, pipeline.ErrEmptyDocument) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ErrReadBody) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
