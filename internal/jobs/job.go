// Package jobs runs extractions asynchronously. A submitted document is
// stored as a blob, recorded as a pending job, and processed by a bounded
// worker pool; callers poll the job until it completes or fails.
package jobs

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/pipeline"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Job is the persisted record of one asynchronous extraction.
type Job struct {
	ID          uuid.UUID         `json:"id"`
	Status      Status            `json:"status"`
	SizeBytes   int64             `json:"size_bytes"`
	PageCount   *int              `json:"page_count"`
	Text        *string           `json:"text,omitempty"`
	Error       *string           `json:"error,omitempty"`
	FailedStage *string           `json:"failed_stage,omitempty"`
	Reports     []pipeline.Report `json:"reports,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Filters narrows List results. A nil Status matches every job.
type Filters struct {
	Status *Status
	Limit  int
}

// InputKey is the blob key holding a job's input document.
func InputKey(id uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/input.pdf", id)
}
