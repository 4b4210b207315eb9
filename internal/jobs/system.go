package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/scribe/internal/pipeline"
	"github.com/JaimeStill/scribe/pkg/formatting"
	"github.com/JaimeStill/scribe/pkg/lifecycle"
	"github.com/JaimeStill/scribe/pkg/storage"
)

// Runner executes the processing pipeline over a document.
type Runner interface {
	Run(ctx context.Context, data []byte) (*pipeline.Result, error)
}

// System defines the public contract for asynchronous extraction.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Start recovers unfinished jobs and launches the worker pool.
	Start(lc *lifecycle.Coordinator) error

	Submit(ctx context.Context, data []byte, pageCount *int) (*Job, error)
	Find(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context, filters Filters) ([]Job, error)
}

// Config sizes the worker pool and queue.
type Config struct {
	Workers   int
	QueueSize int
	ListLimit int
}

type system struct {
	store     Store
	blobs     storage.System
	runner    Runner
	queue     chan uuid.UUID
	workers   int
	listLimit int
	logger    *slog.Logger
	done      chan struct{}
}

// New creates a job System. Nothing is processed until Start.
func New(store Store, blobs storage.System, runner Runner, cfg Config, logger *slog.Logger) System {
	return &system{
		store:     store,
		blobs:     blobs,
		runner:    runner,
		queue:     make(chan uuid.UUID, cfg.QueueSize),
		workers:   cfg.Workers,
		listLimit: cfg.ListLimit,
		logger:    logger.With("system", "jobs"),
		done:      make(chan struct{}),
	}
}

func (s *system) Handler(maxUploadSize int64) *Handler {
	return NewHandler(s, s.logger, maxUploadSize)
}

// Start recovers unfinished jobs, then launches the dispatcher. Workers
// only start after recovery has returned, so requeueing running jobs never
// touches a job this process has claimed.
func (s *system) Start(lc *lifecycle.Coordinator) error {
	ctx := lc.Context()
	backlog := make(chan []uuid.UUID, 1)

	lc.OnStartup("jobs", func() error {
		ids, err := s.recover(ctx)
		backlog <- ids
		if err != nil {
			return fmt.Errorf("recover jobs: %w", err)
		}
		return nil
	})

	go func() {
		defer close(s.done)
		select {
		case ids := <-backlog:
			s.dispatch(ctx, ids)
		case <-ctx.Done():
		}
	}()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-s.done
		s.logger.Info("job workers stopped")
	})

	return nil
}

// recover returns jobs interrupted by a previous process to pending and
// lists every pending job for the dispatcher.
func (s *system) recover(ctx context.Context) ([]uuid.UUID, error) {
	requeued, err := s.store.Requeue(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := s.store.Pending(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("job recovery complete", "requeued", requeued, "pending", len(ids))
	return ids, nil
}

func (s *system) Submit(ctx context.Context, data []byte, pageCount *int) (*Job, error) {
	if len(data) == 0 {
		return nil, pipeline.ErrEmptyDocument
	}

	id := uuid.New()
	key := InputKey(id)

	if err := s.blobs.Upload(ctx, key, bytes.NewReader(data), "application/pdf"); err != nil {
		return nil, fmt.Errorf("store job input: %w", err)
	}

	job, err := s.store.Create(ctx, Job{ID: id, SizeBytes: int64(len(data)), PageCount: pageCount})
	if err != nil {
		s.discardInput(ctx, id)
		return nil, err
	}

	if !s.offer(ctx, id) {
		return nil, ErrQueueFull
	}

	s.logger.Info(
		"job submitted",
		"job", id,
		"size", formatting.FormatBytes(job.SizeBytes),
	)
	return job, nil
}

func (s *system) Find(ctx context.Context, id uuid.UUID) (*Job, error) {
	return s.store.Find(ctx, id)
}

func (s *system) List(ctx context.Context, filters Filters) ([]Job, error) {
	if filters.Limit <= 0 || filters.Limit > s.listLimit {
		filters.Limit = s.listLimit
	}
	return s.store.List(ctx, filters)
}

// offer hands a newly submitted job to the workers without blocking.
// A full queue fails the job and discards its input.
func (s *system) offer(ctx context.Context, id uuid.UUID) bool {
	select {
	case s.queue <- id:
		return true
	default:
	}

	s.logger.Warn("job queue full", "job", id, "capacity", cap(s.queue))
	if err := s.store.Fail(ctx, id, "", ErrQueueFull, nil); err != nil {
		s.logger.Error("failed to record rejected job", "job", id, "error", err)
	}
	s.discardInput(ctx, id)
	return false
}

// dispatch runs the recovered backlog, then queued jobs, with at most
// s.workers in flight. It returns once ctx is cancelled and in-flight jobs
// have returned; backlog jobs not yet started stay pending for the next run.
func (s *system) dispatch(ctx context.Context, backlog []uuid.UUID) {
	var g errgroup.Group
	g.SetLimit(s.workers)

	run := func(id uuid.UUID) {
		g.Go(func() error {
			s.process(ctx, id)
			return nil
		})
	}

	for _, id := range backlog {
		if ctx.Err() != nil {
			break
		}
		run(id)
	}

	for {
		select {
		case <-ctx.Done():
			g.Wait()
			return
		case id := <-s.queue:
			run(id)
		}
	}
}

func (s *system) process(ctx context.Context, id uuid.UUID) {
	logger := s.logger.With("job", id)

	if err := s.store.MarkRunning(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Debug("job already claimed or finished")
			return
		}
		logger.Error("failed to mark job running", "error", err)
		return
	}

	data, err := s.readInput(ctx, id)
	if err != nil {
		s.fail(ctx, logger, id, "", err, nil)
		return
	}

	start := time.Now()
	result, err := s.runner.Run(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("job interrupted by shutdown, left for recovery")
			return
		}
		s.fail(ctx, logger, id, string(pipeline.FailedStage(err)), err, pipeline.FailedReports(err))
		return
	}

	if err := s.store.Complete(ctx, id, result.Text, result.Reports); err != nil {
		logger.Error("failed to record job result", "error", err)
		return
	}

	s.discardInput(ctx, id)
	logger.Info("job completed", "duration", time.Since(start), "chars", len(result.Text))
}

func (s *system) readInput(ctx context.Context, id uuid.UUID) ([]byte, error) {
	rc, err := s.blobs.Download(ctx, InputKey(id))
	if err != nil {
		return nil, fmt.Errorf("load job input: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read job input: %w", err)
	}
	return data, nil
}

func (s *system) fail(ctx context.Context, logger *slog.Logger, id uuid.UUID, stage string, cause error, reports []pipeline.Report) {
	logger.Error("job failed", "stage", stage, "error", cause)

	if err := s.store.Fail(ctx, id, stage, cause, reports); err != nil {
		logger.Error("failed to record job failure", "error", err)
		return
	}
	s.discardInput(ctx, id)
}

func (s *system) discardInput(ctx context.Context, id uuid.UUID) {
	if err := s.blobs.Delete(ctx, InputKey(id)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("job input delete failed", "job", id, "error", err)
	}
}
