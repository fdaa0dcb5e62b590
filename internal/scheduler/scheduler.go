// Package scheduler enqueues periodic provider sync jobs on a cron schedule.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"cadence/internal/jobs"
)

// Enqueuer is the queue surface the scheduler writes through
type Enqueuer interface {
	Enqueue(ctx context.Context, req jobs.Request) (string, error)
}

// Scheduler fires provider_sync jobs for every enabled provider and user on
// the configured schedule. Duplicate syncs are harmless: the watermark makes
// re-fetching cheap and raw event inserts are idempotent.
type Scheduler struct {
	queue     Enqueuer
	cron      *cron.Cron
	schedule  string
	providers []string
	users     []string
	logger    zerolog.Logger
}

func New(queue Enqueuer, schedule string, providers, users []string, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		queue:     queue,
		cron:      cron.New(),
		schedule:  schedule,
		providers: providers,
		users:     users,
		logger:    logger,
	}
}

// Start registers the sync entry and starts the cron loop
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.EnqueueSyncs(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Strs("providers", s.providers).
		Int("users", len(s.users)).Msg("Sync scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running entry to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// EnqueueSyncs enqueues one provider_sync job per (user, provider) pair.
// Returns how many jobs were enqueued.
func (s *Scheduler) EnqueueSyncs(ctx context.Context) int {
	enqueued := 0
	for _, userID := range s.users {
		for _, provider := range s.providers {
			req, err := jobs.NewRequest(jobs.KindProviderSync,
				jobs.SyncPayload{Provider: provider}, userID, nil)
			if err != nil {
				s.logger.Error().Err(err).Str("provider", provider).Msg("Failed to build sync request")
				continue
			}
			if _, err := s.queue.Enqueue(ctx, req); err != nil {
				s.logger.Error().Err(err).Str("provider", provider).Str("user_id", userID).
					Msg("Failed to enqueue sync job")
				continue
			}
			enqueued++
		}
	}

	s.logger.Info().Int("enqueued", enqueued).Msg("Scheduled sync jobs enqueued")
	return enqueued
}
