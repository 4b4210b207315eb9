package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/pipeline"
	"github.com/JaimeStill/scribe/pkg/repository"
)

var jobErrors = repository.Errors{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrInvalidStatus,
}

type repo struct {
	db *sql.DB
}

// NewStore creates a PostgreSQL-backed Store.
func NewStore(db *sql.DB) Store {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, job Job) (*Job, error) {
	q := `
		INSERT INTO jobs(id, status, size_bytes, page_count)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + columns

	args := []any{job.ID, StatusPending, job.SizeBytes, job.PageCount}

	j, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Job, error) {
		return repository.QueryOne(ctx, tx, q, args, scanJob)
	})
	if err != nil {
		return nil, jobErrors.Map(err)
	}
	return &j, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Job, error) {
	q := `SELECT ` + columns + ` FROM jobs WHERE id = $1`

	j, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanJob)
	if err != nil {
		return nil, jobErrors.Map(err)
	}
	return &j, nil
}

func (r *repo) List(ctx context.Context, filters Filters) ([]Job, error) {
	q := `SELECT ` + columns + ` FROM jobs`
	var args []any

	if filters.Status != nil {
		args = append(args, *filters.Status)
		q += fmt.Sprintf(" WHERE status = $%d", len(args))
	}

	args = append(args, filters.Limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	jobs, err := repository.QueryMany(ctx, r.db, q, args, scanJob)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	return jobs, nil
}

func (r *repo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE jobs SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, StatusRunning, StatusPending,
	)
	return jobErrors.Map(err)
}

func (r *repo) Complete(ctx context.Context, id uuid.UUID, text string, reports []pipeline.Report) error {
	data, err := encodeReports(reports)
	if err != nil {
		return err
	}

	err = repository.ExecExpectOne(ctx, r.db, `
		UPDATE jobs
		SET status = $2, text = $3, reports = $4, updated_at = now(), completed_at = now()
		WHERE id = $1`,
		id, StatusCompleted, text, data,
	)
	return jobErrors.Map(err)
}

func (r *repo) Fail(ctx context.Context, id uuid.UUID, stage string, cause error, reports []pipeline.Report) error {
	var failedStage *string
	if stage != "" {
		failedStage = &stage
	}

	data, err := encodeReports(reports)
	if err != nil {
		return err
	}

	err = repository.ExecExpectOne(ctx, r.db, `
		UPDATE jobs
		SET status = $2, error = $3, failed_stage = $4, reports = $5, updated_at = now(), completed_at = now()
		WHERE id = $1`,
		id, StatusFailed, cause.Error(), failedStage, data,
	)
	return jobErrors.Map(err)
}

func (r *repo) Requeue(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, updated_at = now()
		WHERE status = $2`,
		StatusPending, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue running jobs: %w", err)
	}
	return res.RowsAffected()
}

func (r *repo) Pending(ctx context.Context) ([]uuid.UUID, error) {
	q := `SELECT id FROM jobs WHERE status = $1 ORDER BY created_at`

	ids, err := repository.QueryMany(ctx, r.db, q, []any{StatusPending}, repository.ScanValue[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	return ids, nil
}

// encodeReports returns nil for no reports so the column stays NULL.
func encodeReports(reports []pipeline.Report) ([]byte, error) {
	if len(reports) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(reports)
	if err != nil {
		return nil, fmt.Errorf("encode reports: %w", err)
	}
	return data, nil
}
