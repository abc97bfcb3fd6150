package ports

import (
	"context"
	"time"

	"github.com/johnrichard23/connectedin/internal/domain/model"
)

// ChurchRepository persists church records.
type ChurchRepository interface {
	Create(ctx context.Context, req model.CreateChurchRequest) (*model.Church, error)
	GetByID(ctx context.Context, id string) (*model.Church, error)
	List(ctx context.Context) ([]*model.Church, error)
	// Update merges patch into the stored document and refreshes updatedAt.
	Update(ctx context.Context, id string, req model.UpdateChurchRequest) (*model.Church, error)
}

// CacheRepository is a byte-oriented key/value cache.
type CacheRepository interface {
	// Set stores a value with the given TTL. A zero TTL never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns nil without error when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete reports whether a key was removed.
	Delete(ctx context.Context, key string) (bool, error)
	Health(ctx context.Context) error
}
