package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cadence/internal/models"
)

// Handler processes one claimed job. On success it returns the follow-up
// work to enqueue plus any item-level failures collected along the way.
// Classified errors (TransientError, ValidationError, QuotaExhaustedError)
// drive the retry bookkeeping; anything else is treated as transient.
type Handler func(ctx context.Context, job *Job) (*Result, error)

// JobStore abstracts the queue operations the runner needs
type JobStore interface {
	ClaimBatch(ctx context.Context, limit int, workerID string) ([]Job, error)
	Complete(ctx context.Context, jobID string, followUps []Request) error
	Retry(ctx context.Context, jobID string, lastErr string, minBackoff time.Duration) (bool, error)
	Kill(ctx context.Context, jobID string, lastErr string) error
}

// ErrorSink records validation failures to the side error log
type ErrorSink interface {
	RecordIngestError(ctx context.Context, e *models.IngestError) error
}

// Alerter surfaces operator-facing failures (unknown kinds, dead jobs)
type Alerter interface {
	OperatorAlert(subject, body string) error
}

// Runner polls the queue, claims bounded batches, and dispatches each job by
// kind through a fixed handler table chosen at startup.
type Runner struct {
	store     JobStore
	errors    ErrorSink
	alerter   Alerter
	handlers  map[Kind]Handler
	workerID  string
	batchSize int
	poll      time.Duration
	budget    time.Duration
	logger    zerolog.Logger
}

// NewRunner creates a runner. Handlers are registered with Register before
// Run is called; registration after startup is not supported.
func NewRunner(store JobStore, errSink ErrorSink, alerter Alerter, workerID string, batchSize int, poll, budget time.Duration, logger zerolog.Logger) *Runner {
	if batchSize <= 0 {
		batchSize = 10
	}
	if poll <= 0 {
		poll = 5 * time.Second
	}
	if budget <= 0 {
		budget = 5 * time.Minute
	}
	return &Runner{
		store:     store,
		errors:    errSink,
		alerter:   alerter,
		handlers:  make(map[Kind]Handler),
		workerID:  workerID,
		batchSize: batchSize,
		poll:      poll,
		budget:    budget,
		logger:    logger,
	}
}

// Register binds a handler to a job kind
func (r *Runner) Register(kind Kind, handler Handler) {
	r.handlers[kind] = handler
}

// Run polls for jobs until ctx is cancelled
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info().Str("worker", r.workerID).Int("batch_size", r.batchSize).Msg("Job runner starting")

	for {
		if ctx.Err() != nil {
			r.logger.Info().Str("worker", r.workerID).Msg("Job runner stopping")
			return
		}

		processed, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.Error().Err(err).Str("worker", r.workerID).Msg("Worker iteration failed")
		}
		if processed > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.poll):
		}
	}
}

// RunOnce claims one batch and processes it sequentially. Returns the number
// of jobs processed.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	claimed, err := r.store.ClaimBatch(ctx, r.batchSize, r.workerID)
	if err != nil {
		return 0, fmt.Errorf("claiming batch: %w", err)
	}

	for i := range claimed {
		r.processJob(ctx, &claimed[i])
	}
	return len(claimed), nil
}

// processJob dispatches a single job and records its outcome. Stage-local
// errors never propagate: only the job row reflects them.
func (r *Runner) processJob(ctx context.Context, job *Job) {
	handler, ok := r.handlers[job.Kind]
	if !ok {
		r.killUnknownKind(ctx, job)
		return
	}

	// The budget is advisory: handlers check ctx between sub-steps and
	// voluntarily stop. There is no preemptive cancellation mid-step.
	jobCtx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	start := time.Now()
	result, err := handler(jobCtx, job)
	elapsed := time.Since(start)

	if err != nil {
		r.recordFailure(ctx, job, err)
		return
	}

	var followUps []Request
	var failures []ItemFailure
	if result != nil {
		followUps = result.FollowUps
		failures = result.ItemFailures
	}

	for _, f := range failures {
		r.recordItemFailure(ctx, job, f)
	}

	if err := r.store.Complete(ctx, job.ID, followUps); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Str("kind", string(job.Kind)).
			Msg("Failed to complete job")
		return
	}

	r.logger.Info().
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Int("follow_ups", len(followUps)).
		Int("item_failures", len(failures)).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("Job completed")
}

func (r *Runner) killUnknownKind(ctx context.Context, job *Job) {
	msg := fmt.Sprintf("%v: %s", ErrUnknownJobKind, job.Kind)
	if err := r.store.Kill(ctx, job.ID, msg); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to kill unknown-kind job")
		return
	}

	r.logger.Error().Str("job_id", job.ID).Str("kind", string(job.Kind)).
		Msg("Unknown job kind, job dead")

	// A missing handler means a deployment/versioning mismatch. Operators
	// must see it, not just the log.
	if r.alerter != nil {
		body := fmt.Sprintf("Job %s (user %s) has kind %q with no registered handler. "+
			"This usually means a deployment or versioning mismatch.", job.ID, job.UserID, job.Kind)
		if err := r.alerter.OperatorAlert("Unknown job kind: "+string(job.Kind), body); err != nil {
			r.logger.Error().Err(err).Msg("Failed to send operator alert")
		}
	}
}

func (r *Runner) recordFailure(ctx context.Context, job *Job, handlerErr error) {
	// Validation failures go straight to dead; the payload lands in the side
	// error log for inspection.
	if ve, ok := IsValidation(handlerErr); ok {
		if err := r.store.Kill(ctx, job.ID, handlerErr.Error()); err != nil {
			r.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to kill invalid job")
			return
		}
		if r.errors != nil {
			ingestErr := &models.IngestError{
				UserID:   job.UserID,
				Provider: ve.Provider,
				Stage:    ve.Stage,
				Payload:  ve.Payload,
				Error:    ve.Err.Error(),
			}
			if err := r.errors.RecordIngestError(ctx, ingestErr); err != nil {
				r.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record ingest error")
			}
		}
		r.logger.Warn().Str("job_id", job.ID).Str("kind", string(job.Kind)).
			Err(handlerErr).Msg("Job failed validation, dead")
		return
	}

	minBackoff := time.Duration(0)
	if IsQuotaExhausted(handlerErr) {
		minBackoff = QuotaBackoffMin
	}

	dead, err := r.store.Retry(ctx, job.ID, handlerErr.Error(), minBackoff)
	if err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to reschedule job")
		return
	}

	if dead {
		r.logger.Error().Str("job_id", job.ID).Str("kind", string(job.Kind)).
			Err(handlerErr).Msg("Job exhausted retries, dead")
		if r.alerter != nil {
			body := fmt.Sprintf("Job %s (kind %s, user %s) exhausted its retries.\nLast error: %v",
				job.ID, job.Kind, job.UserID, handlerErr)
			if err := r.alerter.OperatorAlert("Job dead after retries: "+string(job.Kind), body); err != nil {
				r.logger.Error().Err(err).Msg("Failed to send operator alert")
			}
		}
		return
	}

	r.logger.Warn().Str("job_id", job.ID).Str("kind", string(job.Kind)).
		Int("attempts", job.Attempts+1).Err(handlerErr).Msg("Job failed, rescheduled")
}

func (r *Runner) recordItemFailure(ctx context.Context, job *Job, f ItemFailure) {
	if r.errors == nil {
		return
	}
	ingestErr := &models.IngestError{
		UserID:   job.UserID,
		Provider: f.Provider,
		Stage:    f.Stage,
		Payload:  f.Payload,
		Error:    fmt.Sprintf("item %s: %s", f.ItemID, f.Err),
	}
	if err := r.errors.RecordIngestError(ctx, ingestErr); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record item failure")
	}
}
