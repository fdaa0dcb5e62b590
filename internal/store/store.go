// Package store provides persistence for every pipeline entity. All shared
// state is protected through unique constraints plus upsert/insert-or-skip
// semantics; no table here requires additional locking because every write
// is idempotent by construction.
package store

import (
	"github.com/jmoiron/sqlx"
)

// Store wraps the database connection with entity-level operations
type Store struct {
	db *sqlx.DB
}

// New creates a new store backed by the given database connection
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database connection
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
