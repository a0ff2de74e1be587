package handlers

import (
	"context"
	"fmt"

	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/application/queries"
	"github.com/onokeee/mindmap/application/queries/bus"
	"github.com/onokeee/mindmap/application/session"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// GetMindMapHandler returns *aggregates.MindMap
type GetMindMapHandler struct {
	repo ports.MindMapRepository
}

// NewGetMindMapHandler creates a new handler
func NewGetMindMapHandler(repo ports.MindMapRepository) *GetMindMapHandler {
	return &GetMindMapHandler{repo: repo}
}

// Handle executes the query
func (h *GetMindMapHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetMindMapQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query %T", query)
	}
	id, err := valueobjects.NewMapIDFromString(q.MapID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	return h.repo.GetByID(ctx, q.UserID, id)
}

// ListMindMapsHandler returns []aggregates.MindMapSummary
type ListMindMapsHandler struct {
	repo ports.MindMapRepository
}

// NewListMindMapsHandler creates a new handler
func NewListMindMapsHandler(repo ports.MindMapRepository) *ListMindMapsHandler {
	return &ListMindMapsHandler{repo: repo}
}

// Handle executes the query
func (h *ListMindMapsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.ListMindMapsQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query %T", query)
	}
	return h.repo.ListByUser(ctx, q.UserID)
}

// GetSessionStateHandler returns session.State
type GetSessionStateHandler struct {
	registry *session.Registry
}

// NewGetSessionStateHandler creates a new handler
func NewGetSessionStateHandler(registry *session.Registry) *GetSessionStateHandler {
	return &GetSessionStateHandler{registry: registry}
}

// Handle executes the query
func (h *GetSessionStateHandler) Handle(_ context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetSessionStateQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query %T", query)
	}
	sess, err := h.registry.Get(q.UserID, q.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.State(), nil
}
