package mocks

import (
	"context"
	"time"

	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/domain/events"
	"github.com/stretchr/testify/mock"
)

// MockMindMapRepository is a testify mock of ports.MindMapRepository
type MockMindMapRepository struct {
	mock.Mock
}

func (m *MockMindMapRepository) Save(ctx context.Context, mm *aggregates.MindMap) error {
	args := m.Called(ctx, mm)
	return args.Error(0)
}

func (m *MockMindMapRepository) GetByID(ctx context.Context, userID string, id valueobjects.MapID) (*aggregates.MindMap, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.MindMap), args.Error(1)
}

func (m *MockMindMapRepository) ListByUser(ctx context.Context, userID string) ([]aggregates.MindMapSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]aggregates.MindMapSummary), args.Error(1)
}

func (m *MockMindMapRepository) Delete(ctx context.Context, userID string, id valueobjects.MapID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockEventPublisher is a testify mock of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockCache is a testify mock of ports.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}
