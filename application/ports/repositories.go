package ports

import (
	"context"
	"time"

	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/domain/events"
)

// MindMapRepository defines the interface for mind map persistence.
// Every lookup is scoped to the owning user; a map owned by someone else is
// reported as not found.
type MindMapRepository interface {
	// Save creates or overwrites a map. Names are unique per user.
	Save(ctx context.Context, m *aggregates.MindMap) error

	// GetByID retrieves one of the user's maps
	GetByID(ctx context.Context, userID string, id valueobjects.MapID) (*aggregates.MindMap, error)

	// ListByUser returns summaries of the user's maps, most recently updated first
	ListByUser(ctx context.Context, userID string) ([]aggregates.MindMapSummary, error)

	// Delete removes one of the user's maps
	Delete(ctx context.Context, userID string, id valueobjects.MapID) error
}

// EventPublisher delivers domain events to interested parties
type EventPublisher interface {
	Publish(ctx context.Context, events ...events.DomainEvent) error
}

// Cache is a byte-oriented key/value cache
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
