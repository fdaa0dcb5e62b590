package models

import (
	"encoding/json"
	"time"
)

// RawEvent is an immutable, verbatim copy of one item fetched from a provider.
// It is the sole source of truth for replay: every downstream row must be
// reconstructible by re-running the pipeline over it.
type RawEvent struct {
	ID         string          `db:"id" json:"id"`
	UserID     string          `db:"user_id" json:"user_id"`
	Provider   string          `db:"provider" json:"provider"`
	SourceID   string          `db:"source_id" json:"source_id"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	OccurredAt time.Time       `db:"occurred_at" json:"occurred_at"`
	BatchID    *string         `db:"batch_id" json:"batch_id,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Interaction is a canonical activity record normalized from a RawEvent.
// Unique on (user_id, source, source_id) so re-normalizing is an upsert.
type Interaction struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	ContactID       *string         `db:"contact_id" json:"contact_id,omitempty"`
	Type            string          `db:"type" json:"type"`
	Subject         *string         `db:"subject" json:"subject,omitempty"`
	BodyText        *string         `db:"body_text" json:"body_text,omitempty"`
	SourceMeta      json.RawMessage `db:"source_meta" json:"source_meta,omitempty"`
	Source          string          `db:"source" json:"source"`
	SourceID        string          `db:"source_id" json:"source_id"`
	CounterpartKind *string         `db:"counterpart_kind" json:"counterpart_kind,omitempty"`
	CounterpartVal  *string         `db:"counterpart_value" json:"counterpart_value,omitempty"`
	OccurredAt      time.Time       `db:"occurred_at" json:"occurred_at"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// ContactIdentity is a provider-tagged contact point (email, phone) linking
// activity to a contact. Unique on (user_id, kind, value, provider).
type ContactIdentity struct {
	ID        int       `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ContactID string    `db:"contact_id" json:"contact_id"`
	Kind      string    `db:"kind" json:"kind"`
	Value     string    `db:"value" json:"value"`
	Provider  string    `db:"provider" json:"provider"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Contact is owned by the surrounding CRM; the pipeline only links to it.
type Contact struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// EmbeddingChunk is one stored vector for a bounded, word-boundary slice of
// an interaction's text. Unique on (user_id, owner_type, owner_id,
// content_hash, chunk_index).
type EmbeddingChunk struct {
	ID          int       `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	OwnerType   string    `db:"owner_type" json:"owner_type"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	ChunkIndex  int       `db:"chunk_index" json:"chunk_index"`
	Text        string    `db:"chunk_text" json:"text"`
	Embedding   string    `db:"embedding" json:"-"` // pgvector text format
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Insight is an AI-derived summary or score for a contact or interaction.
// The fingerprint is a deterministic hash of its defining fields and carries
// a unique constraint so duplicate generation is rejected as already-done.
type Insight struct {
	ID          int       `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Kind        string    `db:"kind" json:"kind"`
	SubjectType string    `db:"subject_type" json:"subject_type"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	Model       string    `db:"model" json:"model"`
	Title       string    `db:"title" json:"title"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	Body        string    `db:"body" json:"body"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ContactTimelineEvent projects one linked interaction onto a contact's
// chronological timeline. Created idempotently per (contact_id, interaction_id).
type ContactTimelineEvent struct {
	ID            int       `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	ContactID     string    `db:"contact_id" json:"contact_id"`
	InteractionID string    `db:"interaction_id" json:"interaction_id"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
	Summary       string    `db:"summary" json:"summary"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// IngestError is one row of the side error log for payloads that failed
// validation. Never silently dropped; inspected through the admin surface.
type IngestError struct {
	ID        int             `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Provider  string          `db:"provider" json:"provider"`
	Stage     string          `db:"stage" json:"stage"`
	Payload   json.RawMessage `db:"payload" json:"payload,omitempty"`
	Error     string          `db:"error" json:"error"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// IdentityCandidate is an identity extracted from a provider payload before
// it has been resolved to a contact.
type IdentityCandidate struct {
	Kind        string `json:"kind"`
	Value       string `json:"value"`
	DisplayName string `json:"display_name,omitempty"`
	Provider    string `json:"provider"`
}
