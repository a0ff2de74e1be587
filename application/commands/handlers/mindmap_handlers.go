package handlers

import (
	"context"
	"fmt"

	"github.com/onokeee/mindmap/application/commands"
	"github.com/onokeee/mindmap/application/commands/bus"
	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/domain/config"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/domain/events"
	"github.com/onokeee/mindmap/pkg/observability"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
	"go.uber.org/zap"
)

// MapSaver creates or overwrites maps and publishes the resulting events.
// It is shared by the map and session handlers.
type MapSaver struct {
	repo      ports.MindMapRepository
	publisher ports.EventPublisher
	config    *config.DomainConfig
	collector *observability.Collector
	logger    *zap.Logger
}

// NewMapSaver creates a new map saver
func NewMapSaver(
	repo ports.MindMapRepository,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	collector *observability.Collector,
	logger *zap.Logger,
) *MapSaver {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &MapSaver{
		repo:      repo,
		publisher: publisher,
		config:    cfg,
		collector: collector,
		logger:    logger,
	}
}

// Save stores doc under id for userID
func (s *MapSaver) Save(ctx context.Context, id valueobjects.MapID, userID, name string, doc *aggregates.Document) (*aggregates.MindMap, error) {
	m, err := s.repo.GetByID(ctx, userID, id)
	switch {
	case err == nil:
		if err := m.Overwrite(name, doc, s.config); err != nil {
			return nil, err
		}
	case pkgerrors.IsNotFound(err):
		if m, err = aggregates.NewMindMapWithID(id, userID, name, doc, s.config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load map: %w", err)
	}

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save map: %w", err)
	}

	publishEvents(ctx, s.publisher, m.GetUncommittedEvents(), s.logger)
	m.MarkEventsAsCommitted()
	if s.collector != nil {
		s.collector.MapsSaved.Inc()
	}

	s.logger.Info("Map saved",
		zap.String("mapID", id.String()),
		zap.String("userID", userID),
		zap.Int("version", m.Version()),
	)
	return m, nil
}

// SaveMindMapHandler handles SaveMindMapCommand
type SaveMindMapHandler struct {
	saver *MapSaver
}

// NewSaveMindMapHandler creates a new save handler
func NewSaveMindMapHandler(saver *MapSaver) *SaveMindMapHandler {
	return &SaveMindMapHandler{saver: saver}
}

// Handle executes the save command
func (h *SaveMindMapHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.SaveMindMapCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	id, err := valueobjects.NewMapIDFromString(c.MapID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	_, err = h.saver.Save(ctx, id, c.UserID, c.Name, c.Document)
	return err
}

// DeleteMindMapHandler handles DeleteMindMapCommand
type DeleteMindMapHandler struct {
	repo      ports.MindMapRepository
	publisher ports.EventPublisher
	collector *observability.Collector
	logger    *zap.Logger
}

// NewDeleteMindMapHandler creates a new delete handler
func NewDeleteMindMapHandler(
	repo ports.MindMapRepository,
	publisher ports.EventPublisher,
	collector *observability.Collector,
	logger *zap.Logger,
) *DeleteMindMapHandler {
	return &DeleteMindMapHandler{
		repo:      repo,
		publisher: publisher,
		collector: collector,
		logger:    logger,
	}
}

// Handle executes the delete command
func (h *DeleteMindMapHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DeleteMindMapCommand)
	if !ok {
		return fmt.Errorf("unexpected command %T", cmd)
	}

	id, err := valueobjects.NewMapIDFromString(c.MapID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	m, err := h.repo.GetByID(ctx, c.UserID, id)
	if err != nil {
		return err
	}
	if err := h.repo.Delete(ctx, c.UserID, id); err != nil {
		return fmt.Errorf("failed to delete map: %w", err)
	}

	m.MarkDeleted()
	publishEvents(ctx, h.publisher, m.GetUncommittedEvents(), h.logger)
	m.MarkEventsAsCommitted()
	if h.collector != nil {
		h.collector.MapsDeleted.Inc()
	}

	h.logger.Info("Map deleted", zap.String("mapID", c.MapID), zap.String("userID", c.UserID))
	return nil
}

// publishEvents delivers events without failing the command that raised them
func publishEvents(ctx context.Context, publisher ports.EventPublisher, evts []events.DomainEvent, logger *zap.Logger) {
	if publisher == nil || len(evts) == 0 {
		return
	}
	if err := publisher.Publish(ctx, evts...); err != nil {
		logger.Warn("Failed to publish events", zap.Int("count", len(evts)), zap.Error(err))
	}
}
