package extraction

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ReadDocument reads the whole request body as the document, limited to
// maxSize bytes.
func ReadDocument(w http.ResponseWriter, r *http.Request, maxSize int64) ([]byte, error) {
	body := http.MaxBytesReader(w, r.Body, maxSize)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, maxErr.Limit)
		}
		return nil, fmt.Errorf("%w: %v", ErrReadBody, err)
	}

	if len(data) == 0 {
		return nil, ErrEmptyBody
	}

	return data, nil
}

// PageCount returns the number of pages when data is a PDF. Anything that
// pdfcpu cannot read yields nil.
func PageCount(logger *slog.Logger, data []byte) *int {
	if http.DetectContentType(data) != "application/pdf" {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}

	return &count
}
