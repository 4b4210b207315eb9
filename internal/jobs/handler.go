package jobs

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/extraction"
	"github.com/JaimeStill/scribe/pkg/handlers"
	"github.com/JaimeStill/scribe/pkg/routes"
)

// Handler provides HTTP endpoints for asynchronous extraction.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "jobs"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for job endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/jobs",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Submit},
		},
	}
}

// Submit accepts a raw document body and responds 202 with the pending job.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	data, err := extraction.ReadDocument(w, r, h.maxUploadSize)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	job, err := h.sys.Submit(r.Context(), data, extraction.PageCount(h.logger, data))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, job)
}

// Find returns a single job by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	job, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, job)
}

// List returns the most recent jobs, optionally filtered by status. A limit
// must be a positive integer; values above the configured maximum are clamped.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filters Filters
	query := r.URL.Query()

	if s := query.Get("status"); s != "" {
		status, err := ParseStatus(s)
		if err != nil {
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
		filters.Status = &status
	}

	if l := query.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			err = fmt.Errorf("%w: %q", ErrInvalidLimit, l)
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
		filters.Limit = n
	}

	jobs, err := h.sys.List(r.Context(), filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, jobs)
}
