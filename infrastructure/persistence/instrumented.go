package persistence

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/pkg/observability"
)

// InstrumentedRepository records a span and the database metrics for every
// call to the wrapped repository.
type InstrumentedRepository struct {
	inner   ports.MindMapRepository
	backend string
	metrics *observability.Collector
}

var _ ports.MindMapRepository = (*InstrumentedRepository)(nil)

// NewInstrumentedRepository wraps inner; backend labels the metrics
func NewInstrumentedRepository(inner ports.MindMapRepository, backend string, metrics *observability.Collector) *InstrumentedRepository {
	return &InstrumentedRepository{inner: inner, backend: backend, metrics: metrics}
}

func (r *InstrumentedRepository) observe(ctx context.Context, operation, userID string, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "repository."+operation,
		attribute.String("db.system", r.backend),
		attribute.String("user.id", userID),
	)
	start := time.Now()
	err := fn(ctx)
	r.metrics.RecordDB(operation, r.backend, err, time.Since(start))
	observability.EndSpan(span, err)
	return err
}

// Save records the save
func (r *InstrumentedRepository) Save(ctx context.Context, m *aggregates.MindMap) error {
	return r.observe(ctx, "save", m.UserID(), func(ctx context.Context) error {
		return r.inner.Save(ctx, m)
	})
}

// GetByID records the lookup
func (r *InstrumentedRepository) GetByID(ctx context.Context, userID string, id valueobjects.MapID) (*aggregates.MindMap, error) {
	var m *aggregates.MindMap
	err := r.observe(ctx, "get", userID, func(ctx context.Context) error {
		var err error
		m, err = r.inner.GetByID(ctx, userID, id)
		return err
	})
	return m, err
}

// ListByUser records the listing
func (r *InstrumentedRepository) ListByUser(ctx context.Context, userID string) ([]aggregates.MindMapSummary, error) {
	var summaries []aggregates.MindMapSummary
	err := r.observe(ctx, "list", userID, func(ctx context.Context) error {
		var err error
		summaries, err = r.inner.ListByUser(ctx, userID)
		return err
	})
	return summaries, err
}

// Delete records the delete
func (r *InstrumentedRepository) Delete(ctx context.Context, userID string, id valueobjects.MapID) error {
	return r.observe(ctx, "delete", userID, func(ctx context.Context) error {
		return r.inner.Delete(ctx, userID, id)
	})
}
