package store

import (
	"fmt"
)

// CreateTables creates the pipeline tables (PostgreSQL-compatible with pgvector)
func (s *Store) CreateTables() error {
	// Enable pgvector extension first
	if _, err := s.db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		fmt.Printf("Warning: Failed to create vector extension (may already exist): %v\n", err)
	}

	queries := []string{
		// Raw events: append-only provider payload buffer
		`CREATE TABLE IF NOT EXISTS raw_events (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			provider VARCHAR(32) NOT NULL,
			source_id VARCHAR(255) NOT NULL,
			payload JSONB NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			batch_id VARCHAR(64),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, provider, source_id)
		)`,

		// Durable job queue
		`CREATE TABLE IF NOT EXISTS jobs (
			id VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(48) NOT NULL,
			payload JSONB NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			batch_id VARCHAR(64),
			status VARCHAR(16) NOT NULL DEFAULT 'queued',
			attempts INT NOT NULL DEFAULT 0,
			last_error TEXT,
			claimed_by VARCHAR(64),
			run_after TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Canonical interactions
		`CREATE TABLE IF NOT EXISTS interactions (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			contact_id VARCHAR(64),
			type VARCHAR(32) NOT NULL,
			subject TEXT,
			body_text TEXT,
			source_meta JSONB,
			source VARCHAR(32) NOT NULL,
			source_id VARCHAR(255) NOT NULL,
			counterpart_kind VARCHAR(16),
			counterpart_value VARCHAR(255),
			occurred_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, source, source_id)
		)`,

		// Contacts (owned by the surrounding CRM; linked, never deleted here)
		`CREATE TABLE IF NOT EXISTS contacts (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			display_name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Provider-tagged contact points
		`CREATE TABLE IF NOT EXISTS contact_identities (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			contact_id VARCHAR(64) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			value VARCHAR(255) NOT NULL,
			provider VARCHAR(32) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, kind, value, provider)
		)`,

		// Embedding chunks: exactly one vector per distinct chunk content per owner
		`CREATE TABLE IF NOT EXISTS interaction_embeddings (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			owner_type VARCHAR(32) NOT NULL,
			owner_id VARCHAR(64) NOT NULL,
			content_hash VARCHAR(64) NOT NULL,
			chunk_index INT NOT NULL,
			chunk_text TEXT NOT NULL,
			embedding vector(1536) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, owner_type, owner_id, content_hash, chunk_index)
		)`,

		// AI-derived insights, deduplicated by fingerprint
		`CREATE TABLE IF NOT EXISTS insights (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			subject_type VARCHAR(32) NOT NULL,
			subject_id VARCHAR(64) NOT NULL,
			model VARCHAR(64) NOT NULL,
			title TEXT NOT NULL,
			fingerprint VARCHAR(64) NOT NULL UNIQUE,
			body TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Per-contact chronological timeline projection
		`CREATE TABLE IF NOT EXISTS contact_timeline_events (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			contact_id VARCHAR(64) NOT NULL,
			interaction_id VARCHAR(64) NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			summary TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (contact_id, interaction_id)
		)`,

		// Side error log for payloads that failed validation
		`CREATE TABLE IF NOT EXISTS ingest_errors (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			provider VARCHAR(32) NOT NULL,
			stage VARCHAR(32) NOT NULL,
			payload JSONB,
			error TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Create indexes separately
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_raw_events_user_provider ON raw_events(user_id, provider, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_claim ON jobs(status, run_after, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_batch ON jobs(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_contact ON interactions(contact_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_counterpart ON interactions(user_id, counterpart_kind, counterpart_value)`,
		`CREATE INDEX IF NOT EXISTS idx_identities_lookup ON contact_identities(user_id, kind, value)`,
		`CREATE INDEX IF NOT EXISTS idx_timeline_contact ON contact_timeline_events(contact_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_errors_scope ON ingest_errors(user_id, provider, stage)`,
		// HNSW index for fast cosine similarity search with pgvector
		`CREATE INDEX IF NOT EXISTS idx_interaction_embeddings_hnsw ON interaction_embeddings USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, query := range indexes {
		if _, err := s.db.Exec(query); err != nil {
			// Ignore errors for index creation (they might already exist)
			fmt.Printf("Warning: Failed to create index: %v\n", err)
		}
	}

	return nil
}
