package session

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	// It is an expected outcome, not a failure.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptySession is returned when saving a session that has no
	// identifier or no messages yet.
	ErrEmptySession = errors.New("session has no messages to save")
	// ErrStorageClosed is returned when operating on a closed backend.
	ErrStorageClosed = errors.New("storage backend is closed")
)

// Backend abstracts where session records live.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Save writes the whole session, overwriting any existing record
	// with the same ID.
	Save(ctx context.Context, sess *Session) error

	// Load retrieves a session by ID.
	// Returns ErrSessionNotFound if no record exists.
	Load(ctx context.Context, id string) (*Session, error)

	// Delete removes a session record.
	// Returns ErrSessionNotFound if no record exists.
	Delete(ctx context.Context, id string) error

	// List returns all stored session IDs sorted ascending, which is
	// chronological order. Records whose key is not a valid session
	// identifier are silently skipped.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources held by the backend.
	Close() error
}
