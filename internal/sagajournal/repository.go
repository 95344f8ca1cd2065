package sagajournal

import "context"

// Repository is the port for persisting journal entries. The orchestrator and
// the recovery pass depend on this abstraction, not on SQLite directly, so
// tests can run against an in-memory implementation.
type Repository interface {
	// Append persists a new entry. The journal is append-only; each call adds
	// a row, never an upsert.
	Append(ctx context.Context, e *Entry) error

	// Latest returns the most recent entry for a saga, or ok=false when the
	// saga is unknown.
	Latest(ctx context.Context, sagaID string) (*Entry, bool, error)

	// InFlight returns, per saga left in a non-terminal state, all of its
	// entries in append order. Used by the startup recovery pass.
	InFlight(ctx context.Context) (map[string][]Entry, error)
}
