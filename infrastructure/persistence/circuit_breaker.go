package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// CircuitBreakerConfig holds configuration for the storage circuit breaker
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns a default configuration
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// CircuitBreakerRepository stops calling a failing store until it recovers.
// Only infrastructure failures count against the breaker; not-found,
// conflict and validation outcomes are ordinary answers.
type CircuitBreakerRepository struct {
	inner ports.MindMapRepository
	cb    *gobreaker.CircuitBreaker
}

var _ ports.MindMapRepository = (*CircuitBreakerRepository)(nil)

// NewCircuitBreakerRepository wraps inner with a breaker
func NewCircuitBreakerRepository(inner ports.MindMapRepository, config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isHealthyOutcome,
	})

	return &CircuitBreakerRepository{inner: inner, cb: cb}
}

// State reports the breaker state
func (r *CircuitBreakerRepository) State() gobreaker.State {
	return r.cb.State()
}

func isHealthyOutcome(err error) bool {
	if err == nil {
		return true
	}
	return pkgerrors.IsNotFound(err) ||
		pkgerrors.IsConflict(err) ||
		pkgerrors.IsValidation(err) ||
		pkgerrors.IsForbidden(err) ||
		errors.Is(err, context.Canceled)
}

func (r *CircuitBreakerRepository) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := r.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, pkgerrors.NewUnavailableError("mindmap storage").WithCause(err)
	}
	return result, err
}

// Save saves through the breaker
func (r *CircuitBreakerRepository) Save(ctx context.Context, m *aggregates.MindMap) error {
	_, err := r.execute(func() (interface{}, error) {
		return nil, r.inner.Save(ctx, m)
	})
	return err
}

// GetByID loads through the breaker
func (r *CircuitBreakerRepository) GetByID(ctx context.Context, userID string, id valueobjects.MapID) (*aggregates.MindMap, error) {
	result, err := r.execute(func() (interface{}, error) {
		return r.inner.GetByID(ctx, userID, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*aggregates.MindMap), nil
}

// ListByUser lists through the breaker
func (r *CircuitBreakerRepository) ListByUser(ctx context.Context, userID string) ([]aggregates.MindMapSummary, error) {
	result, err := r.execute(func() (interface{}, error) {
		return r.inner.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]aggregates.MindMapSummary), nil
}

// Delete deletes through the breaker
func (r *CircuitBreakerRepository) Delete(ctx context.Context, userID string, id valueobjects.MapID) error {
	_, err := r.execute(func() (interface{}, error) {
		return nil, r.inner.Delete(ctx, userID, id)
	})
	return err
}
