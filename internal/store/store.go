package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session record exists for a key.
var ErrNotFound = errors.New("store: not found")

// Record is one persisted session token. Exactly one record exists per
// (username, base URL) pair; writing an existing pair replaces the token
// rather than adding a row.
type Record struct {
	Username  string
	BaseURL   string
	Token     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the session persistence interface. Concrete drivers (sqlite)
// implement this. Callers treat tokens as opaque; the store never inspects
// them.
type Store interface {
	// Get returns the record for (username, baseURL), or ErrNotFound.
	Get(ctx context.Context, username, baseURL string) (Record, error)

	// Upsert inserts rec or replaces the token of the record sharing its
	// (username, baseURL) key. Safe to call repeatedly with the same key.
	Upsert(ctx context.Context, rec Record) error

	// Delete removes the record for (username, baseURL). Deleting an absent
	// record is a no-op, not an error.
	Delete(ctx context.Context, username, baseURL string) error

	// ApplyMigrations brings the schema up to date.
	ApplyMigrations() error

	// Close releases the underlying database handle.
	Close() error
}
