package store

import (
	"context"
	"fmt"

	"cadence/internal/models"
)

// InsertTimelineEvent projects one interaction onto a contact's timeline.
// Insert-or-skip on (contact_id, interaction_id) makes replay a no-op.
// Returns false when the event was already present.
func (s *Store) InsertTimelineEvent(ctx context.Context, ev *models.ContactTimelineEvent) (bool, error) {
	query := `
		INSERT INTO contact_timeline_events (user_id, contact_id, interaction_id, occurred_at, summary)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contact_id, interaction_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		ev.UserID, ev.ContactID, ev.InteractionID, ev.OccurredAt, ev.Summary)
	if err != nil {
		return false, fmt.Errorf("failed to insert timeline event: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ListTimeline returns a contact's timeline in chronological order
func (s *Store) ListTimeline(ctx context.Context, contactID string) ([]models.ContactTimelineEvent, error) {
	var events []models.ContactTimelineEvent
	query := `
		SELECT * FROM contact_timeline_events
		WHERE contact_id = $1
		ORDER BY occurred_at ASC
	`
	if err := s.db.SelectContext(ctx, &events, query, contactID); err != nil {
		return nil, fmt.Errorf("failed to list timeline: %w", err)
	}
	return events, nil
}
