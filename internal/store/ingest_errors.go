package store

import (
	"context"
	"encoding/json"
	"fmt"

	"cadence/internal/models"
)

// RecordIngestError writes one row to the side error log. Failed payloads
// are kept for later inspection, never silently dropped: bodies that are not
// valid JSON (an upstream HTML error page, truncated bytes) are wrapped as a
// JSON string so the JSONB column accepts them.
func (s *Store) RecordIngestError(ctx context.Context, e *models.IngestError) error {
	payload := e.Payload
	if len(payload) == 0 {
		payload = nil
	} else if !json.Valid(payload) {
		wrapped, err := json.Marshal(string(payload))
		if err != nil {
			return fmt.Errorf("failed to wrap ingest error payload: %w", err)
		}
		payload = wrapped
	}

	query := `
		INSERT INTO ingest_errors (user_id, provider, stage, payload, error)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, e.UserID, e.Provider, e.Stage, payload, e.Error)
	if err != nil {
		return fmt.Errorf("failed to record ingest error: %w", err)
	}
	return nil
}

// ListIngestErrors returns the most recent side-log entries, newest first
func (s *Store) ListIngestErrors(ctx context.Context, limit int) ([]models.IngestError, error) {
	var errors []models.IngestError
	query := `SELECT * FROM ingest_errors ORDER BY created_at DESC LIMIT $1`
	if err := s.db.SelectContext(ctx, &errors, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list ingest errors: %w", err)
	}
	return errors, nil
}
