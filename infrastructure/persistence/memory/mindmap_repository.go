package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/infrastructure/persistence"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// MindMapRepository keeps encoded maps in process memory. It backs local
// development and tests; everything is lost on restart.
type MindMapRepository struct {
	mu     sync.RWMutex
	maps   map[string]persistence.Record
	logger *zap.Logger
}

var _ ports.MindMapRepository = (*MindMapRepository)(nil)

// NewMindMapRepository creates an empty in-memory repository
func NewMindMapRepository(logger *zap.Logger) *MindMapRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MindMapRepository{
		maps:   make(map[string]persistence.Record),
		logger: logger,
	}
}

// Save creates or overwrites a map
func (r *MindMapRepository) Save(ctx context.Context, m *aggregates.MindMap) error {
	rec, err := persistence.ToRecord(m)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.maps[rec.ID]
	switch {
	case exists && existing.UserID != rec.UserID:
		return pkgerrors.NewConflictError("map ID is already in use")
	case exists && existing.Version != rec.Version-1:
		return pkgerrors.NewConflictError(
			fmt.Sprintf("map was modified concurrently (stored version %d, saving %d)", existing.Version, rec.Version))
	case !exists && rec.Version != 1:
		return pkgerrors.NewNotFoundError("mindmap")
	}
	if exists {
		rec.CreatedAt = existing.CreatedAt
	}

	for id, other := range r.maps {
		if id != rec.ID && other.UserID == rec.UserID && other.Name == rec.Name {
			return pkgerrors.NewConflictError(fmt.Sprintf("a map named %q already exists", rec.Name))
		}
	}

	r.maps[rec.ID] = rec
	r.logger.Debug("Map saved",
		zap.String("mapID", rec.ID),
		zap.String("userID", rec.UserID),
		zap.Int("version", rec.Version),
	)
	return nil
}

// GetByID retrieves one of the user's maps
func (r *MindMapRepository) GetByID(ctx context.Context, userID string, id valueobjects.MapID) (*aggregates.MindMap, error) {
	r.mu.RLock()
	rec, ok := r.maps[id.String()]
	r.mu.RUnlock()

	if !ok || rec.UserID != userID {
		return nil, pkgerrors.NewNotFoundError("mindmap")
	}
	return rec.ToMindMap()
}

// ListByUser returns the user's map summaries, most recently updated first
func (r *MindMapRepository) ListByUser(ctx context.Context, userID string) ([]aggregates.MindMapSummary, error) {
	r.mu.RLock()
	summaries := make([]aggregates.MindMapSummary, 0)
	for _, rec := range r.maps {
		if rec.UserID == userID {
			summaries = append(summaries, rec.Summary())
		}
	}
	r.mu.RUnlock()

	persistence.SortSummaries(summaries)
	return summaries, nil
}

// Delete removes one of the user's maps
func (r *MindMapRepository) Delete(ctx context.Context, userID string, id valueobjects.MapID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.maps[id.String()]
	if !ok || rec.UserID != userID {
		return pkgerrors.NewNotFoundError("mindmap")
	}
	delete(r.maps, id.String())
	return nil
}

// Len returns the number of stored maps across all users
func (r *MindMapRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.maps)
}
