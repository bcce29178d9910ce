package storage

import (
	"context"

	"github.com/balajivenky06/dandi/internal/domain"
)

// Storage is the key store gateway: the only component that knows the query
// surface of the backing record store.
//
// Implementations must be safe for concurrent use and must translate every
// backend failure into the domain taxonomy:
//   - missing rows: domain.ErrNotFound
//   - constraint violations: domain.ErrValidationRejected (duplicate secrets
//     additionally wrap domain.ErrDuplicateSecret)
//   - anything else: domain.ErrStoreUnavailable
type Storage interface {
	// Close closes the storage connection.
	Close() error
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// ListKeys returns every key, newest first.
	ListKeys(ctx context.Context) ([]*domain.KeyRecord, error)
	// InsertKey stores a new key. The store assigns ID, timestamps and usage.
	InsertKey(ctx context.Context, key *domain.NewKey) (*domain.KeyRecord, error)
	// UpdateKey applies a partial update and returns the stored record.
	UpdateKey(ctx context.Context, id string, update domain.KeyUpdate) (*domain.KeyRecord, error)
	// DeleteKey permanently removes a key.
	DeleteKey(ctx context.Context, id string) error
	// FindKeyBySecret looks a key up by its secret. A miss returns (nil, nil).
	FindKeyBySecret(ctx context.Context, secret string) (*domain.KeyRecord, error)
	// IncrementUsage adds one to the usage counter of a key.
	IncrementUsage(ctx context.Context, id string) (*domain.KeyRecord, error)
	// CountKeys returns the number of stored keys.
	CountKeys(ctx context.Context) (int, error)
}
