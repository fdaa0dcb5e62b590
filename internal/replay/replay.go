// Package replay implements the administrative backfill controller: it
// re-drives the pipeline over a historical window of raw events without
// ever re-inserting them.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cadence/internal/jobs"
	"cadence/internal/models"
)

// Bounds on the replay request parameters
const (
	MinDays      = 1
	MaxDays      = 365
	MinBatchSize = 1
	MaxBatchSize = 500
)

// Request describes a backfill run
type Request struct {
	Providers []string `json:"providers"`
	Days      int      `json:"days"`
	BatchSize int      `json:"batch_size"`
	DryRun    bool     `json:"dry_run"`
}

// Preview is the dry-run result: counts only, zero writes
type Preview struct {
	DryRun         bool           `json:"dry_run"`
	Since          time.Time      `json:"since"`
	TotalEvents    int            `json:"total_events"`
	ByProvider     map[string]int `json:"by_provider"`
	EstimatedJobs  int            `json:"estimated_jobs"`
	BatchesPlanned int            `json:"batches_planned"`
}

// Run is the live result: a batch identifier plus what was enqueued
type Run struct {
	BatchID      string    `json:"batch_id"`
	Since        time.Time `json:"since"`
	EventsFound  int       `json:"events_found"`
	JobsEnqueued int       `json:"jobs_enqueued"`
}

// EventStore is the raw-event surface the controller reads
type EventStore interface {
	CountRawEventsSince(ctx context.Context, providers []string, since time.Time) (int, error)
	ListRawEventsPage(ctx context.Context, providers []string, since, afterTime time.Time, afterID string, limit int) ([]models.RawEvent, error)
}

// JobQueue is the enqueue surface the controller writes through
type JobQueue interface {
	Enqueue(ctx context.Context, req jobs.Request) (string, error)
	BatchStatus(ctx context.Context, batchID string) (map[string]int, error)
}

// Controller re-drives normalization over stored raw events
type Controller struct {
	store EventStore
	queue JobQueue
}

func NewController(store EventStore, queue JobQueue) *Controller {
	return &Controller{store: store, queue: queue}
}

// Validate checks the request bounds
func (r *Request) Validate() error {
	if r.Days < MinDays || r.Days > MaxDays {
		return fmt.Errorf("days must be between %d and %d, got %d", MinDays, MaxDays, r.Days)
	}
	if r.BatchSize < MinBatchSize || r.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch_size must be between %d and %d, got %d", MinBatchSize, MaxBatchSize, r.BatchSize)
	}
	return nil
}

// Preview reports what a replay would do without writing anything
func (c *Controller) Preview(ctx context.Context, req Request) (*Preview, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -req.Days)

	total, err := c.store.CountRawEventsSince(ctx, req.Providers, since)
	if err != nil {
		return nil, err
	}

	byProvider := make(map[string]int)
	if len(req.Providers) > 0 {
		for _, p := range req.Providers {
			count, err := c.store.CountRawEventsSince(ctx, []string{p}, since)
			if err != nil {
				return nil, err
			}
			byProvider[p] = count
		}
	}

	batches := 0
	if total > 0 {
		batches = (total + req.BatchSize - 1) / req.BatchSize
	}

	fmt.Printf("[REPLAY] Dry run: %d events since %s, %d batches planned\n",
		total, since.Format("2006-01-02"), batches)

	return &Preview{
		DryRun:         true,
		Since:          since,
		TotalEvents:    total,
		ByProvider:     byProvider,
		EstimatedJobs:  total,
		BatchesPlanned: batches,
	}, nil
}

// Start enqueues one normalize job per raw event in the window, tagged with
// a fresh batch ID. Raw events are never re-inserted; downstream uniqueness
// constraints absorb the duplicate writes.
func (c *Controller) Start(ctx context.Context, req Request) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -req.Days)
	batchID := uuid.NewString()

	fmt.Printf("[REPLAY] Starting batch %s: providers=%v days=%d\n", batchID, req.Providers, req.Days)

	found := 0
	enqueued := 0
	cursorTime := time.Time{}
	cursorID := ""

	for {
		page, err := c.store.ListRawEventsPage(ctx, req.Providers, since, cursorTime, cursorID, req.BatchSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			ev := &page[i]
			found++

			jobReq, err := jobs.NewRequest(jobs.KindNormalize,
				jobs.NormalizePayload{RawEventID: ev.ID}, ev.UserID, &batchID)
			if err != nil {
				return nil, fmt.Errorf("failed to build normalize request: %w", err)
			}
			if _, err := c.queue.Enqueue(ctx, jobReq); err != nil {
				return nil, fmt.Errorf("failed to enqueue replay job for event %s: %w", ev.ID, err)
			}
			enqueued++
		}

		last := page[len(page)-1]
		cursorTime = last.OccurredAt
		cursorID = last.ID
	}

	fmt.Printf("[REPLAY] Batch %s: %d events found, %d jobs enqueued\n", batchID, found, enqueued)

	return &Run{
		BatchID:      batchID,
		Since:        since,
		EventsFound:  found,
		JobsEnqueued: enqueued,
	}, nil
}

// Status returns per-status job counts for a replay batch
func (c *Controller) Status(ctx context.Context, batchID string) (map[string]int, error) {
	counts, err := c.queue.BatchStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("batch %s not found", batchID)
	}
	return counts, nil
}
