// Package extraction exposes the synchronous text extraction endpoint.
package extraction

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/scribe/internal/pipeline"
	"github.com/JaimeStill/scribe/pkg/formatting"
	"github.com/JaimeStill/scribe/pkg/handlers"
	"github.com/JaimeStill/scribe/pkg/middleware"
	"github.com/JaimeStill/scribe/pkg/routes"
)

// Runner executes the processing pipeline over a document.
type Runner interface {
	Run(ctx context.Context, data []byte) (*pipeline.Result, error)
}

// Response is the success body of the extract endpoint.
type Response struct {
	Text string `json:"text"`
}

// Handler provides the HTTP endpoint for synchronous extraction.
type Handler struct {
	runner        Runner
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given runner, logger, and upload size limit.
func NewHandler(runner Runner, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		runner:        runner,
		logger:        logger.With("handler", "extraction"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for extraction endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/extract",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Extract},
		},
	}
}

// Extract reads the raw document body, runs the pipeline, and responds
// with the extracted text.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", middleware.RequestIDFrom(r.Context()))

	data, err := ReadDocument(w, r, h.maxUploadSize)
	if err != nil {
		handlers.RespondError(w, logger, MapHTTPStatus(err), err)
		return
	}

	attrs := []any{"size", formatting.FormatBytes(int64(len(data)))}
	if pages := PageCount(logger, data); pages != nil {
		attrs = append(attrs, "pages", *pages)
	}
	logger.Info("document received", attrs...)

	result, err := h.runner.Run(r.Context(), data)
	if err != nil {
		handlers.RespondError(w, logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, Response{Text: result.Text})
}
