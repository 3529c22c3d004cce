package repository

import (
	"context"

	"lanscope/internal/domain"
)

// Store persists the full set of classification records keyed by uppercase MAC.
//
// Save replaces everything previously stored. Implementations must not
// disturb the last successfully saved state when a Save fails.
type Store interface {
	// Load returns all persisted records. A store with no state yet
	// yields an empty map and a nil error.
	Load(ctx context.Context) (map[string]domain.CacheRecord, error)

	// Save atomically replaces the persisted record set
	Save(ctx context.Context, records map[string]domain.CacheRecord) error

	// Close releases resources
	Close() error
}
