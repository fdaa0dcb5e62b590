// Package jobs implements the durable job queue, the polling runner, and the
// dispatch table that routes work to pipeline stage handlers.
package jobs

import (
	"encoding/json"
	"time"
)

// Kind identifies a pipeline stage. The set is closed: the runner's handler
// table is built at startup and a kind without a handler sends the job dead
// immediately instead of silently doing nothing.
type Kind string

const (
	KindProviderSync Kind = "provider_sync"
	KindNormalize    Kind = "normalize_raw_event"
	KindResolve      Kind = "resolve_contact"
	KindEmbed        Kind = "generate_embeddings"
	KindInsight      Kind = "generate_insight"
	KindTimeline     Kind = "project_timeline"
)

// KnownKinds lists every kind the runner can dispatch
func KnownKinds() []Kind {
	return []Kind{KindProviderSync, KindNormalize, KindResolve, KindEmbed, KindInsight, KindTimeline}
}

// Job statuses. A job moves queued → processing → {completed | queued | dead};
// processing is never terminal: stale processing rows are reclaimed.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusDead       = "dead"
)

// Job is a durable unit of asynchronous work
type Job struct {
	ID        string          `db:"id" json:"id"`
	Kind      Kind            `db:"kind" json:"kind"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	UserID    string          `db:"user_id" json:"user_id"`
	BatchID   *string         `db:"batch_id" json:"batch_id,omitempty"`
	Status    string          `db:"status" json:"status"`
	Attempts  int             `db:"attempts" json:"attempts"`
	LastError *string         `db:"last_error" json:"last_error,omitempty"`
	ClaimedBy *string         `db:"claimed_by" json:"claimed_by,omitempty"`
	RunAfter  time.Time       `db:"run_after" json:"run_after"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Request describes a job to enqueue. Stage handlers return requests as
// follow-up work; only the runner turns them into rows.
type Request struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	UserID  string          `json:"user_id"`
	BatchID *string         `json:"batch_id,omitempty"`
}

// NewRequest builds a Request, marshaling the payload
func NewRequest(kind Kind, payload interface{}, userID string, batchID *string) (Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Request{}, err
	}
	return Request{Kind: kind, Payload: raw, UserID: userID, BatchID: batchID}, nil
}

// ItemFailure records one failed item inside an otherwise successful batch
// job. The job itself completes; the failures land in the side error log.
type ItemFailure struct {
	Provider string          `json:"provider"`
	Stage    string          `json:"stage"`
	ItemID   string          `json:"item_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Err      string          `json:"error"`
}

// Result is what a stage handler reports on success
type Result struct {
	FollowUps    []Request     `json:"follow_ups,omitempty"`
	ItemFailures []ItemFailure `json:"item_failures,omitempty"`
}

// Payload envelopes for each stage.

// SyncPayload drives a provider_sync job
type SyncPayload struct {
	Provider string `json:"provider"`
}

// NormalizePayload drives a normalize_raw_event job
type NormalizePayload struct {
	RawEventID string `json:"raw_event_id"`
}

// ResolvePayload drives a resolve_contact job
type ResolvePayload struct {
	Identities []IdentityRef `json:"identities"`
}

// IdentityRef is one extracted identity awaiting resolution
type IdentityRef struct {
	Kind        string `json:"kind"`
	Value       string `json:"value"`
	DisplayName string `json:"display_name,omitempty"`
	Provider    string `json:"provider"`
}

// EmbedPayload drives a generate_embeddings job
type EmbedPayload struct {
	InteractionIDs []string `json:"interaction_ids"`
}

// InsightPayload drives a generate_insight job
type InsightPayload struct {
	Kind        string `json:"kind"`
	SubjectType string `json:"subject_type"`
	SubjectID   string `json:"subject_id"`
}

// TimelinePayload drives a project_timeline job
type TimelinePayload struct {
	ContactID string `json:"contact_id"`
}
