package store

import (
	"context"
	"fmt"

	"cadence/internal/models"
)

// InsertInsight stores an insight unless one with the same fingerprint
// already exists. A duplicate is not an error: it means the work was already
// done, and the caller should treat it as such. Returns false for duplicates.
func (s *Store) InsertInsight(ctx context.Context, insight *models.Insight) (bool, error) {
	query := `
		INSERT INTO insights (user_id, kind, subject_type, subject_id, model, title, fingerprint, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fingerprint) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		insight.UserID, insight.Kind, insight.SubjectType, insight.SubjectID,
		insight.Model, insight.Title, insight.Fingerprint, insight.Body)
	if err != nil {
		return false, fmt.Errorf("failed to insert insight: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ListInsightsForSubject returns all insights stored for a subject
func (s *Store) ListInsightsForSubject(ctx context.Context, subjectType, subjectID string) ([]models.Insight, error) {
	var insights []models.Insight
	query := `
		SELECT * FROM insights
		WHERE subject_type = $1 AND subject_id = $2
		ORDER BY created_at DESC
	`
	if err := s.db.SelectContext(ctx, &insights, query, subjectType, subjectID); err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	return insights, nil
}
