package jobs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/jobs"
	"github.com/JaimeStill/scribe/pkg/database"
	"github.com/JaimeStill/scribe/pkg/lifecycle"
	"github.com/JaimeStill/scribe/pkg/routes"
)

type mockSystem struct {
	submitFn func(ctx context.Context, data []byte, pageCount *int) (*jobs.Job, error)
	findFn   func(ctx context.Context, id uuid.UUID) (*jobs.Job, error)
	listFn   func(ctx context.Context, filters jobs.Filters) ([]jobs.Job, error)
}

func (m *mockSystem) Handler(maxUploadSize int64) *jobs.Handler {
	return jobs.NewHandler(m, discardLogger(), maxUploadSize)
}

func (m *mockSystem) Start(*lifecycle.Coordinator) error { return nil }

func (m *mockSystem) Submit(ctx context.Context, data []byte, pageCount *int) (*jobs.Job, error) {
	return m.submitFn(ctx, data, pageCount)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) List(ctx context.Context, filters jobs.Filters) ([]jobs.Job, error) {
	return m.listFn(ctx, filters)
}

func setupMux(sys *mockSystem) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler(1024).Routes())
	return mux
}

func sampleJob() jobs.Job {
	return jobs.Job{
		ID:        uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Status:    jobs.StatusPending,
		SizeBytes: 3,
		CreatedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestHandlerSubmit(t *testing.T) {
	job := sampleJob()

	t.Run("accepts document", func(t *testing.T) {
		var got []byte
		sys := &mockSystem{
			submitFn: func(_ context.Context, data []byte, _ *int) (*jobs.Job, error) {
				got = data
				return &job, nil
			},
		}

		rec := httptest.NewRecorder()
		setupMux(sys).ServeHTTP(rec, httptest.NewRequest("POST", "/jobs", bytes.NewReader([]byte("doc"))))

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}
		if string(got) != "doc" {
			t.Errorf("submitted data = %q", got)
		}

		var resp jobs.Job
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.ID != job.ID || resp.Status != jobs.StatusPending {
			t.Errorf("response = %+v", resp)
		}
	})

	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
	}{
		{"empty body", nil, nil, http.StatusBadRequest},
		{"too large", bytes.Repeat([]byte("x"), 2048), nil, http.StatusRequestEntityTooLarge},
		{"queue full", []byte("doc"), jobs.ErrQueueFull, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			sys := &mockSystem{
				submitFn: func(context.Context, []byte, *int) (*jobs.Job, error) {
					called = true
					return nil, tt.err
				},
			}

			rec := httptest.NewRecorder()
			setupMux(sys).ServeHTTP(rec, httptest.NewRequest("POST", "/jobs", bytes.NewReader(tt.body)))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.err == nil && called {
				t.Error("system should not be called for a rejected request")
			}
		})
	}
}

func TestHandlerFind(t *testing.T) {
	job := sampleJob()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*jobs.Job, error) {
			if id == job.ID {
				return &job, nil
			}
			return nil, jobs.ErrNotFound
		},
	}
	mux := setupMux(sys)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"found", "/jobs/" + job.ID.String(), http.StatusOK},
		{"not found", "/jobs/" + uuid.NewString(), http.StatusNotFound},
		{"invalid id", "/jobs/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestHandlerList(t *testing.T) {
	var (
		captured jobs.Filters
		calls    int
	)
	sys := &mockSystem{
		listFn: func(_ context.Context, f jobs.Filters) ([]jobs.Job, error) {
			calls++
			captured = f
			return []jobs.Job{sampleJob()}, nil
		},
	}
	mux := setupMux(sys)

	t.Run("passes filters", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/jobs?status=failed&limit=5", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.Status == nil || *captured.Status != jobs.StatusFailed {
			t.Errorf("status filter = %v, want failed", captured.Status)
		}
		if captured.Limit != 5 {
			t.Errorf("limit = %d, want 5", captured.Limit)
		}

		var result []jobs.Job
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(result) != 1 {
			t.Errorf("jobs = %d, want 1", len(result))
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/jobs?status=done", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	for _, limit := range []string{"ten", "0", "-3"} {
		t.Run("rejects limit "+limit, func(t *testing.T) {
			before := calls
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", "/jobs?limit="+limit, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if calls != before {
				t.Error("system should not be called for an invalid limit")
			}
		})
	}
}

func TestHandlerListStoreUnavailable(t *testing.T) {
	sys := &mockSystem{
		listFn: func(context.Context, jobs.Filters) ([]jobs.Job, error) {
			return nil, fmt.Errorf("query jobs: %w", database.ErrNotReady)
		},
	}

	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, httptest.NewRequest("GET", "/jobs", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
