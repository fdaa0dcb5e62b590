package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Queue is the durable job store. Claiming is the single point of mutual
// exclusion in the whole pipeline: it is one conditional UPDATE, never a
// read-then-write pair, so concurrent claimers can never receive the same job.
type Queue struct {
	db          *sqlx.DB
	maxAttempts int
	staleAfter  time.Duration
}

// NewQueue creates a queue over the given database connection
func NewQueue(db *sqlx.DB, maxAttempts int, staleAfter time.Duration) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &Queue{db: db, maxAttempts: maxAttempts, staleAfter: staleAfter}
}

// MaxAttempts returns the configured retry limit
func (q *Queue) MaxAttempts() int {
	return q.maxAttempts
}

// Enqueue inserts a job in queued state and returns its ID
func (q *Queue) Enqueue(ctx context.Context, req Request) (string, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO jobs (id, kind, payload, user_id, batch_id, status)
		VALUES ($1, $2, $3, $4, $5, 'queued')
	`
	if _, err := q.db.ExecContext(ctx, query, id, req.Kind, req.Payload, req.UserID, req.BatchID); err != nil {
		return "", fmt.Errorf("failed to enqueue %s job: %w", req.Kind, err)
	}
	return id, nil
}

// ClaimBatch atomically transitions up to limit claimable jobs to processing
// and returns them, oldest first. A job is claimable when it is queued with
// run_after in the past, or when it has sat in processing longer than the
// staleness window (its worker crashed). The whole claim is a single
// statement backed by FOR UPDATE SKIP LOCKED.
func (q *Queue) ClaimBatch(ctx context.Context, limit int, workerID string) ([]Job, error) {
	query := `
		UPDATE jobs
		SET status = 'processing', claimed_by = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id IN (
			SELECT id FROM jobs
			WHERE (status = 'queued' AND run_after <= CURRENT_TIMESTAMP)
			   OR (status = 'processing' AND updated_at < CURRENT_TIMESTAMP - ($2 * INTERVAL '1 second'))
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, user_id, batch_id, status, attempts,
		          last_error, claimed_by, run_after, created_at, updated_at
	`

	var claimed []Job
	err := q.db.SelectContext(ctx, &claimed, query, workerID, int(q.staleAfter.Seconds()), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	return claimed, nil
}

// Complete marks a job completed and enqueues its follow-up jobs in the same
// transaction, so a crash between "mark complete" and "enqueue next" cannot
// silently drop a pipeline stage.
func (q *Queue) Complete(ctx context.Context, jobID string, followUps []Request) error {
	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin completion transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = 'completed', updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND status = 'processing'`, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// The job was reclaimed by another worker after a staleness timeout.
		// Its follow-ups will be enqueued by whoever finishes it.
		return fmt.Errorf("job %s no longer processing, completion skipped", jobID)
	}

	for _, req := range followUps {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (id, kind, payload, user_id, batch_id, status)
			 VALUES ($1, $2, $3, $4, $5, 'queued')`,
			uuid.NewString(), req.Kind, req.Payload, req.UserID, req.BatchID)
		if err != nil {
			return fmt.Errorf("failed to enqueue follow-up %s job: %w", req.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}
	return nil
}

// Retry increments attempts and either reschedules the job after backoff or,
// when attempts reach the limit, marks it dead. Returns true when the job
// went dead.
func (q *Queue) Retry(ctx context.Context, jobID string, lastErr string, minBackoff time.Duration) (bool, error) {
	var attempts int
	err := q.db.GetContext(ctx, &attempts,
		`SELECT attempts FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to read job attempts: %w", err)
	}

	delay := Backoff(attempts+1, minBackoff)

	var status string
	query := `
		UPDATE jobs
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= $2 THEN 'dead' ELSE 'queued' END,
		    last_error = $3,
		    run_after = CURRENT_TIMESTAMP + ($4 * INTERVAL '1 second'),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING status
	`
	err = q.db.QueryRowContext(ctx, query, jobID, q.maxAttempts, lastErr, int(delay.Seconds())).Scan(&status)
	if err != nil {
		return false, fmt.Errorf("failed to reschedule job: %w", err)
	}
	return status == StatusDead, nil
}

// Kill marks a job dead immediately without consuming additional attempts.
// Used for validation failures and unknown kinds.
func (q *Queue) Kill(ctx context.Context, jobID string, lastErr string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'dead', last_error = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`, jobID, lastErr)
	if err != nil {
		return fmt.Errorf("failed to kill job: %w", err)
	}
	return nil
}

// BatchStatus returns the per-status job counts for a batch
func (q *Queue) BatchStatus(ctx context.Context, batchID string) (map[string]int, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM jobs WHERE batch_id = $1 GROUP BY status`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch status: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: Error closing rows: %v\n", err)
		}
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan batch status: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batch status: %w", err)
	}
	return counts, nil
}
