package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"cadence/internal/models"
)

// InsertRawEvent appends a raw event. Returns false when an event with the
// same (user_id, provider, source_id) already exists; raw events are never
// updated after the first write.
func (s *Store) InsertRawEvent(ctx context.Context, ev *models.RawEvent) (bool, error) {
	query := `
		INSERT INTO raw_events (id, user_id, provider, source_id, payload, occurred_at, batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider, source_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		ev.ID, ev.UserID, ev.Provider, ev.SourceID, ev.Payload, ev.OccurredAt, ev.BatchID)
	if err != nil {
		return false, fmt.Errorf("failed to insert raw event: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// GetRawEvent fetches a single raw event by ID
func (s *Store) GetRawEvent(ctx context.Context, id string) (*models.RawEvent, error) {
	var ev models.RawEvent
	err := s.db.GetContext(ctx, &ev, `SELECT * FROM raw_events WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("raw event %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch raw event: %w", err)
	}
	return &ev, nil
}

// ListRawEventsPage returns the next page of raw events after the given
// cursor, ordered by (occurred_at, id) so paging is stable even when many
// events share a timestamp. Pass the zero time and empty id for the first
// page.
func (s *Store) ListRawEventsPage(ctx context.Context, providers []string, since, afterTime time.Time, afterID string, limit int) ([]models.RawEvent, error) {
	base := `
		SELECT * FROM raw_events
		WHERE occurred_at >= ? AND (occurred_at, id) > (?, ?)
	`
	args := []interface{}{since, afterTime, afterID}

	if len(providers) > 0 {
		base += ` AND provider IN (?)`
		args = append(args, providers)
	}
	base += ` ORDER BY occurred_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	query, inArgs, err := sqlx.In(base, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build raw event page query: %w", err)
	}

	var events []models.RawEvent
	query = s.db.Rebind(query)
	if err := s.db.SelectContext(ctx, &events, query, inArgs...); err != nil {
		return nil, fmt.Errorf("failed to page raw events: %w", err)
	}
	return events, nil
}

// CountRawEventsSince counts raw events for the given providers after the cutoff
func (s *Store) CountRawEventsSince(ctx context.Context, providers []string, since time.Time) (int, error) {
	var count int

	if len(providers) == 0 {
		err := s.db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM raw_events WHERE occurred_at >= $1`, since)
		if err != nil {
			return 0, fmt.Errorf("failed to count raw events: %w", err)
		}
		return count, nil
	}

	query, args, err := sqlx.In(
		`SELECT COUNT(*) FROM raw_events WHERE occurred_at >= ? AND provider IN (?)`,
		since, providers)
	if err != nil {
		return 0, fmt.Errorf("failed to build raw event count query: %w", err)
	}

	query = s.db.Rebind(query)
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count raw events: %w", err)
	}
	return count, nil
}

// LatestRawEventTime returns the high-water mark for a user/provider pair.
// The zero time means no events have been ingested yet.
func (s *Store) LatestRawEventTime(ctx context.Context, userID, provider string) (time.Time, error) {
	var latest sql.NullTime
	err := s.db.GetContext(ctx, &latest,
		`SELECT MAX(occurred_at) FROM raw_events WHERE user_id = $1 AND provider = $2`,
		userID, provider)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync watermark: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time, nil
}
