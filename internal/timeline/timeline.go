// Package timeline projects linked interactions onto per-contact
// chronological timelines.
package timeline

import (
	"context"
	"fmt"

	"cadence/internal/models"
)

// maxSummaryLen bounds the stored one-line summary
const maxSummaryLen = 140

// TimelineStore is the persistence surface the writer needs
type TimelineStore interface {
	ListLinkedInteractions(ctx context.Context, contactID string) ([]models.Interaction, error)
	InsertTimelineEvent(ctx context.Context, ev *models.ContactTimelineEvent) (bool, error)
}

// Writer materializes timeline events for a contact
type Writer struct {
	store TimelineStore
}

func NewWriter(store TimelineStore) *Writer {
	return &Writer{store: store}
}

// Project writes one timeline event per linked interaction not already
// represented. Keyed by (contact_id, interaction_id), so re-projecting the
// same contact is a no-op for existing rows. Returns how many events were
// newly created.
func (w *Writer) Project(ctx context.Context, userID, contactID string) (int, error) {
	interactions, err := w.store.ListLinkedInteractions(ctx, contactID)
	if err != nil {
		return 0, fmt.Errorf("failed to list interactions for contact %s: %w", contactID, err)
	}

	created := 0
	for i := range interactions {
		in := &interactions[i]
		inserted, err := w.store.InsertTimelineEvent(ctx, &models.ContactTimelineEvent{
			UserID:        userID,
			ContactID:     contactID,
			InteractionID: in.ID,
			OccurredAt:    in.OccurredAt,
			Summary:       Summarize(in),
		})
		if err != nil {
			return created, fmt.Errorf("failed to insert timeline event for interaction %s: %w", in.ID, err)
		}
		if inserted {
			created++
		}
	}

	fmt.Printf("[TIMELINE] Contact %s: %d interactions, %d new timeline events\n",
		contactID, len(interactions), created)
	return created, nil
}

// Summarize builds the one-line timeline summary for an interaction
func Summarize(in *models.Interaction) string {
	summary := in.Type
	if in.Subject != nil && *in.Subject != "" {
		summary = fmt.Sprintf("%s: %s", in.Type, *in.Subject)
	} else if in.BodyText != nil && *in.BodyText != "" {
		summary = fmt.Sprintf("%s: %s", in.Type, *in.BodyText)
	}

	runes := []rune(summary)
	if len(runes) > maxSummaryLen {
		summary = string(runes[:maxSummaryLen-3]) + "..."
	}
	return summary
}
