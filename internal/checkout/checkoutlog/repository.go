package checkoutlog

import "context"

// Repository is the port for persisting transition entries. The checkout
// flow depends on this abstraction, not on SQLite directly, so the
// implementation can be swapped for in-memory (tests) or disabled
// entirely (nil repository).
type Repository interface {
	// Save appends one entry. The log is append-only, never upserted.
	Save(ctx context.Context, entry *Entry) error
}
