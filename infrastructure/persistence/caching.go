package persistence

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/pkg/observability"
)

// CachingRepository serves map reads from a cache and invalidates the owner's
// entries on every write. Cache failures degrade to direct repository reads.
type CachingRepository struct {
	inner   ports.MindMapRepository
	cache   ports.Cache
	ttl     time.Duration
	metrics *observability.Collector
	logger  *zap.Logger
}

var _ ports.MindMapRepository = (*CachingRepository)(nil)

// NewCachingRepository decorates inner with a read cache
func NewCachingRepository(inner ports.MindMapRepository, cache ports.Cache, ttl time.Duration, metrics *observability.Collector, logger *zap.Logger) *CachingRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingRepository{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

type cachedMap struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Data      []byte    `json:"data"`
	NodeCount int       `json:"nodeCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

func mapKey(userID, mapID string) string { return "mindmap:" + userID + ":" + mapID }
func listKey(userID string) string       { return "mindmaps:" + userID }

// Save writes through and drops the owner's cached entries
func (r *CachingRepository) Save(ctx context.Context, m *aggregates.MindMap) error {
	if err := r.inner.Save(ctx, m); err != nil {
		return err
	}
	r.invalidate(ctx, m.UserID(), m.ID().String())
	return nil
}

// GetByID returns the cached map when present
func (r *CachingRepository) GetByID(ctx context.Context, userID string, id valueobjects.MapID) (*aggregates.MindMap, error) {
	key := mapKey(userID, id.String())

	if raw, ok := r.lookup(ctx, key); ok {
		var cm cachedMap
		if err := json.Unmarshal(raw, &cm); err == nil {
			rec := Record(cm)
			if m, err := rec.ToMindMap(); err == nil {
				return m, nil
			}
		}
		r.logger.Warn("Discarding unreadable cache entry", zap.String("key", key))
	}

	m, err := r.inner.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	rec, err := ToRecord(m)
	if err == nil {
		if raw, err := json.Marshal(cachedMap(rec)); err == nil {
			r.store(ctx, key, raw)
		}
	}
	return m, nil
}

// ListByUser returns the cached listing when present
func (r *CachingRepository) ListByUser(ctx context.Context, userID string) ([]aggregates.MindMapSummary, error) {
	key := listKey(userID)

	if raw, ok := r.lookup(ctx, key); ok {
		var summaries []aggregates.MindMapSummary
		if err := json.Unmarshal(raw, &summaries); err == nil && summaries != nil {
			return summaries, nil
		}
		r.logger.Warn("Discarding unreadable cache entry", zap.String("key", key))
	}

	summaries, err := r.inner.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(summaries); err == nil {
		r.store(ctx, key, raw)
	}
	return summaries, nil
}

// Delete removes through and drops the owner's cached entries
func (r *CachingRepository) Delete(ctx context.Context, userID string, id valueobjects.MapID) error {
	if err := r.inner.Delete(ctx, userID, id); err != nil {
		return err
	}
	r.invalidate(ctx, userID, id.String())
	return nil
}

func (r *CachingRepository) lookup(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	r.metrics.RecordCache(ok)
	return raw, ok
}

func (r *CachingRepository) store(ctx context.Context, key string, raw []byte) {
	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachingRepository) invalidate(ctx context.Context, userID, mapID string) {
	if err := r.cache.Delete(ctx, mapKey(userID, mapID), listKey(userID)); err != nil {
		r.logger.Warn("Cache invalidation failed",
			zap.String("userID", userID),
			zap.String("mapID", mapID),
			zap.Error(err),
		)
	}
}
