package store

import (
	"context"
	"database/sql"
	"fmt"

	"cadence/internal/models"
)

// FindIdentity looks up an exact (kind, value) match for a user across all
// providers. Returns nil when no identity is known.
func (s *Store) FindIdentity(ctx context.Context, userID, kind, value string) (*models.ContactIdentity, error) {
	var identity models.ContactIdentity
	query := `
		SELECT * FROM contact_identities
		WHERE user_id = $1 AND kind = $2 AND value = $3
		ORDER BY created_at ASC
		LIMIT 1
	`
	err := s.db.GetContext(ctx, &identity, query, userID, kind, value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	return &identity, nil
}

// InsertIdentity records a provider-tagged identity for a contact.
// Insert-or-skip on (user_id, kind, value, provider) so replay is safe.
func (s *Store) InsertIdentity(ctx context.Context, identity *models.ContactIdentity) error {
	query := `
		INSERT INTO contact_identities (user_id, contact_id, kind, value, provider)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, kind, value, provider) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		identity.UserID, identity.ContactID, identity.Kind, identity.Value, identity.Provider)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// GetContact fetches a contact by ID
func (s *Store) GetContact(ctx context.Context, id string) (*models.Contact, error) {
	var contact models.Contact
	if err := s.db.GetContext(ctx, &contact, `SELECT * FROM contacts WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to fetch contact %s: %w", id, err)
	}
	return &contact, nil
}

// ListContacts returns all of a user's contacts (used by the fuzzy matcher)
func (s *Store) ListContacts(ctx context.Context, userID string) ([]models.Contact, error) {
	var contacts []models.Contact
	query := `SELECT * FROM contacts WHERE user_id = $1 ORDER BY created_at ASC`
	if err := s.db.SelectContext(ctx, &contacts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}
