package handlers

import (
	"context"
	"fmt"

	"github.com/onokeee/mindmap/application/commands"
	"github.com/onokeee/mindmap/application/commands/bus"
	"github.com/onokeee/mindmap/application/ports"
	"github.com/onokeee/mindmap/application/session"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/domain/history"
	"github.com/onokeee/mindmap/pkg/observability"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
	"go.uber.org/zap"
)

// StoreConfigSource yields the history bounds for new sessions. It is read
// on every open, so configuration reloads apply to sessions opened later.
type StoreConfigSource func() history.StoreConfig

// SessionHandler handles every editor session command
type SessionHandler struct {
	registry    *session.Registry
	repo        ports.MindMapRepository
	saver       *MapSaver
	storeConfig StoreConfigSource
	collector   *observability.Collector
	logger      *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	registry *session.Registry,
	repo ports.MindMapRepository,
	saver *MapSaver,
	storeConfig StoreConfigSource,
	collector *observability.Collector,
	logger *zap.Logger,
) *SessionHandler {
	if storeConfig == nil {
		storeConfig = history.DefaultStoreConfig
	}
	return &SessionHandler{
		registry:    registry,
		repo:        repo,
		saver:       saver,
		storeConfig: storeConfig,
		collector:   collector,
		logger:      logger,
	}
}

// RegisterWith registers the handler for all session commands
func (h *SessionHandler) RegisterWith(b *bus.CommandBus) error {
	for _, cmd := range []bus.Command{
		commands.OpenSessionCommand{},
		commands.RecordEditCommand{},
		commands.UndoCommand{},
		commands.RedoCommand{},
		commands.SaveSessionCommand{},
		commands.CloseSessionCommand{},
	} {
		if err := b.Register(cmd, h); err != nil {
			return err
		}
	}
	return nil
}

// Handle dispatches on the command type
func (h *SessionHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case commands.OpenSessionCommand:
		return h.open(ctx, c)
	case commands.RecordEditCommand:
		return h.recordEdit(c)
	case commands.UndoCommand:
		return h.navigate(c.UserID, c.SessionID, "undo", (*session.EditorSession).Undo)
	case commands.RedoCommand:
		return h.navigate(c.UserID, c.SessionID, "redo", (*session.EditorSession).Redo)
	case commands.SaveSessionCommand:
		return h.save(ctx, c)
	case commands.CloseSessionCommand:
		return h.registry.Close(c.UserID, c.SessionID)
	default:
		return fmt.Errorf("unexpected command %T", cmd)
	}
}

func (h *SessionHandler) open(ctx context.Context, c commands.OpenSessionCommand) error {
	var stored *aggregates.MindMap
	doc := aggregates.NewDocument()
	if c.MapID != "" {
		id, err := valueobjects.NewMapIDFromString(c.MapID)
		if err != nil {
			return pkgerrors.NewValidationError(err.Error())
		}
		if stored, err = h.repo.GetByID(ctx, c.UserID, id); err != nil {
			return err
		}
		doc = stored.Document()
	}

	sess, err := session.NewEditorSession(doc, session.Options{
		ID:      c.SessionID,
		OwnerID: c.UserID,
		Store:   h.storeConfig(),
		Hooks:   h.hooks(c.SessionID),
		Logger:  h.logger,
	})
	if err != nil {
		return err
	}

	// A freshly loaded map matches storage, so it starts clean.
	if stored != nil {
		sess.BindMap(stored.ID(), stored.Name())
		sess.MarkPersisted(sess.Snapshot())
	}

	if err := h.registry.Add(sess); err != nil {
		return err
	}
	if h.collector != nil {
		h.collector.OpenSessions.Inc()
	}
	return nil
}

func (h *SessionHandler) recordEdit(c commands.RecordEditCommand) error {
	sess, err := h.registry.Get(c.UserID, c.SessionID)
	if err != nil {
		return err
	}
	if h.saver != nil && c.Document != nil {
		// An edit that could never be saved is not recorded.
		if err := aggregates.CheckLimits(c.Document, h.saver.config); err != nil {
			h.collector.RecordHistory("append", "rejected")
			return err
		}
	}
	if err := sess.ReplaceDocument(c.Document); err != nil {
		h.collector.RecordHistory("append", "rejected")
		return pkgerrors.NewValidationError(err.Error()).WithCause(err)
	}
	h.collector.RecordHistory("append", "recorded")
	return nil
}

func (h *SessionHandler) navigate(userID, sessionID, op string, move func(*session.EditorSession) (bool, error)) error {
	sess, err := h.registry.Get(userID, sessionID)
	if err != nil {
		return err
	}
	moved, err := move(sess)
	if err != nil {
		h.collector.RecordHistory(op, "failed")
		return err
	}
	if moved {
		h.collector.RecordHistory(op, "moved")
	} else {
		h.collector.RecordHistory(op, "noop")
	}
	return nil
}

func (h *SessionHandler) save(ctx context.Context, c commands.SaveSessionCommand) error {
	sess, err := h.registry.Get(c.UserID, c.SessionID)
	if err != nil {
		return err
	}

	snap := sess.Snapshot()
	doc, err := history.Apply(snap)
	if err != nil {
		return err
	}

	id := sess.MapID()
	if id.IsZero() {
		id = valueobjects.NewMapID()
	}
	name := c.Name
	if name == "" {
		name = sess.MapName()
	}

	m, err := h.saver.Save(ctx, id, c.UserID, name, doc)
	if err != nil {
		return err
	}
	sess.BindMap(m.ID(), m.Name())
	sess.MarkPersisted(snap)
	return nil
}

func (h *SessionHandler) hooks(sessionID string) session.Hooks {
	return session.Hooks{
		DirtyChanged: func(dirty bool) {
			h.logger.Debug("Dirty state changed", zap.String("sessionID", sessionID), zap.Bool("dirty", dirty))
		},
		HistoryTrimmed: func(truncated int, evicted bool) {
			if h.collector == nil {
				return
			}
			h.collector.HistoryTruncated.Add(float64(truncated))
			if evicted {
				h.collector.HistoryEvictions.Inc()
			}
		},
	}
}
