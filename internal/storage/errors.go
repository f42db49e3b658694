package storage

import "errors"

// Sentinel errors returned by every backend (memory, postgres, clickhouse, redis).
// Callers match them with errors.Is; backends wrap driver errors for everything else.
var (
	// ErrNotFound: no trade, profile, house or snapshot with the requested key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey: a trade fact (id, created_at) or snapshot (snapshot_id, series)
	// already exists. A settlement is recorded as a new fact, never as an update.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput: nil record or empty key.
	ErrInvalidInput = errors.New("invalid input")
)
