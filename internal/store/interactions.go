package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cadence/internal/models"
)

// UpsertInteraction inserts an interaction or refreshes its derived fields
// when the (user_id, source, source_id) key already exists. contact_id is
// deliberately left untouched on conflict so re-normalizing never unlinks a
// resolved contact. Returns the row's ID.
func (s *Store) UpsertInteraction(ctx context.Context, in *models.Interaction) (string, error) {
	// Normalizers leave the ID unset; the conflict arbiter is
	// (user_id, source, source_id) and RETURNING yields the existing row's
	// ID on a re-normalize.
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	query := `
		INSERT INTO interactions
			(id, user_id, contact_id, type, subject, body_text, source_meta,
			 source, source_id, counterpart_kind, counterpart_value, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, source, source_id) DO UPDATE SET
			type = EXCLUDED.type,
			subject = EXCLUDED.subject,
			body_text = EXCLUDED.body_text,
			source_meta = EXCLUDED.source_meta,
			counterpart_kind = EXCLUDED.counterpart_kind,
			counterpart_value = EXCLUDED.counterpart_value,
			occurred_at = EXCLUDED.occurred_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id string
	err := s.db.QueryRowContext(ctx, query,
		in.ID, in.UserID, in.ContactID, in.Type, in.Subject, in.BodyText, in.SourceMeta,
		in.Source, in.SourceID, in.CounterpartKind, in.CounterpartVal, in.OccurredAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert interaction: %w", err)
	}
	return id, nil
}

// GetInteraction fetches a single interaction by ID
func (s *Store) GetInteraction(ctx context.Context, id string) (*models.Interaction, error) {
	var in models.Interaction
	if err := s.db.GetContext(ctx, &in, `SELECT * FROM interactions WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to fetch interaction %s: %w", id, err)
	}
	return &in, nil
}

// ListInteractionsByIDs fetches interactions by ID, preserving no particular order
func (s *Store) ListInteractionsByIDs(ctx context.Context, ids []string) ([]models.Interaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM interactions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build interaction query: %w", err)
	}

	var interactions []models.Interaction
	query = s.db.Rebind(query)
	if err := s.db.SelectContext(ctx, &interactions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return interactions, nil
}

// LinkInteractions bulk-updates all of a user's unlinked interactions that
// carry the given counterpart identity. Returns the number of rows linked.
func (s *Store) LinkInteractions(ctx context.Context, userID, kind, value, contactID string) (int64, error) {
	query := `
		UPDATE interactions
		SET contact_id = $1, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $2
		  AND counterpart_kind = $3
		  AND counterpart_value = $4
		  AND contact_id IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, contactID, userID, kind, value)
	if err != nil {
		return 0, fmt.Errorf("failed to link interactions: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// ListLinkedInteractions returns all interactions linked to a contact,
// ordered by occurrence time
func (s *Store) ListLinkedInteractions(ctx context.Context, contactID string) ([]models.Interaction, error) {
	var interactions []models.Interaction
	query := `
		SELECT * FROM interactions
		WHERE contact_id = $1
		ORDER BY occurred_at ASC
	`
	if err := s.db.SelectContext(ctx, &interactions, query, contactID); err != nil {
		return nil, fmt.Errorf("failed to list linked interactions: %w", err)
	}
	return interactions, nil
}
