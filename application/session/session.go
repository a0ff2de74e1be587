package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/domain/history"
	"go.uber.org/zap"
)

// Hooks are the collaborators notified when the live document changes. Every
// field is optional.
type Hooks struct {
	// Render is called with the restored document after undo or redo.
	Render func(doc *aggregates.Document)
	// ClearSelection is called after undo or redo, before Render.
	ClearSelection func()
	// UpdateAffordances is called after every append, undo, redo and persist.
	UpdateAffordances func(canUndo, canRedo bool)
	// DirtyChanged is called when the dirty flag flips.
	DirtyChanged func(dirty bool)
	// HistoryTrimmed is called when an append dropped redo entries or
	// evicted the oldest one.
	HistoryTrimmed func(truncated int, evicted bool)
}

// Options configures a new EditorSession.
type Options struct {
	// ID is generated when empty.
	ID      string
	OwnerID string
	Store   history.StoreConfig
	Hooks   Hooks
	Logger  *zap.Logger
}

// State is a point-in-time view of a session.
type State struct {
	SessionID     string
	MapID         string
	MapName       string
	CanUndo       bool
	CanRedo       bool
	IsDirty       bool
	HistoryLength int
	Cursor        int
	Document      *history.Snapshot
}

// EditorSession owns one live document together with its undo history and
// dirty tracker. All methods are safe for concurrent use and run strictly one
// after another.
type EditorSession struct {
	mu sync.Mutex

	id      string
	ownerID string
	mapID   valueobjects.MapID
	mapName string

	doc   *aggregates.Document
	live  *history.Snapshot
	store *history.Store
	dirty *history.DirtyTracker

	hooks  Hooks
	logger *zap.Logger
}

// NewEditorSession starts a session on doc, which becomes the first history
// entry. A nil doc starts an empty document. The session is dirty until the
// first MarkPersisted.
func NewEditorSession(doc *aggregates.Document, opts Options) (*EditorSession, error) {
	store, err := history.NewStore(opts.Store)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = aggregates.NewDocument()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}

	s := &EditorSession{
		id:      opts.ID,
		ownerID: opts.OwnerID,
		doc:     doc,
		store:   store,
		dirty:   history.NewDirtyTracker(),
		hooks:   opts.Hooks,
		logger:  opts.Logger,
	}

	if err := s.appendLocked(); err != nil {
		return nil, fmt.Errorf("failed to capture initial document: %w", err)
	}
	return s, nil
}

// ID returns the session identifier
func (s *EditorSession) ID() string { return s.id }

// OwnerID returns the user that opened the session
func (s *EditorSession) OwnerID() string { return s.ownerID }

// Append records the live document as a new undoable step.
func (s *EditorSession) Append() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked()
}

// Mutate runs fn against the live document and records the result as one
// step. If fn or the capture fails, the live document is rolled back to the
// last recorded state.
func (s *EditorSession) Mutate(fn func(doc *aggregates.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.doc); err != nil {
		s.rollbackLocked()
		return err
	}
	if err := s.appendLocked(); err != nil {
		s.rollbackLocked()
		return err
	}
	return nil
}

// ReplaceDocument swaps in a new live document and records it as one step.
// A document that cannot be captured is rejected and nothing changes.
func (s *EditorSession) ReplaceDocument(doc *aggregates.Document) error {
	snap, err := history.Capture(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recordLocked(snap); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// Undo restores the previous snapshot. It returns false, changing nothing,
// when there is nothing to undo.
func (s *EditorSession) Undo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, moved := s.store.MoveBack()
	if !moved {
		return false, nil
	}
	if err := s.restoreLocked(snap); err != nil {
		s.store.MoveForward()
		return false, err
	}
	s.logger.Debug("Undo applied", zap.String("sessionID", s.id), zap.Int("cursor", s.store.Cursor()))
	return true, nil
}

// Redo restores the next snapshot. It returns false, changing nothing, when
// there is nothing to redo.
func (s *EditorSession) Redo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, moved := s.store.MoveForward()
	if !moved {
		return false, nil
	}
	if err := s.restoreLocked(snap); err != nil {
		s.store.MoveBack()
		return false, err
	}
	s.logger.Debug("Redo applied", zap.String("sessionID", s.id), zap.Int("cursor", s.store.Cursor()))
	return true, nil
}

// Snapshot returns the most recently recorded state of the live document
func (s *EditorSession) Snapshot() *history.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// MarkPersisted records snap as the persisted state, typically the value
// returned by Snapshot before a save, and recomputes the dirty flag against
// the live document.
func (s *EditorSession) MarkPersisted(snap *history.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.dirty.IsDirty()
	s.dirty.MarkPersisted(snap)
	s.dirty.Recompute(s.live)
	s.notifyLocked(was)
}

// BindMap associates the session with a stored map
func (s *EditorSession) BindMap(id valueobjects.MapID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapID = id
	s.mapName = name
}

// MapID returns the stored map the session is bound to; zero when unsaved
func (s *EditorSession) MapID() valueobjects.MapID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapID
}

// MapName returns the bound map's name
func (s *EditorSession) MapName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapName
}

// CanUndo reports whether Undo would move
func (s *EditorSession) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.CanUndo()
}

// CanRedo reports whether Redo would move
func (s *EditorSession) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.CanRedo()
}

// IsDirty reports whether the live document differs from the persisted one
func (s *EditorSession) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty.IsDirty()
}

// Document returns an independent copy of the live document
func (s *EditorSession) Document() (*aggregates.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return history.Apply(s.live)
}

// State returns the current flags and document
func (s *EditorSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		SessionID:     s.id,
		MapName:       s.mapName,
		CanUndo:       s.store.CanUndo(),
		CanRedo:       s.store.CanRedo(),
		IsDirty:       s.dirty.IsDirty(),
		HistoryLength: s.store.Len(),
		Cursor:        s.store.Cursor(),
		Document:      s.live,
	}
	if !s.mapID.IsZero() {
		state.MapID = s.mapID.String()
	}
	return state
}

func (s *EditorSession) appendLocked() error {
	snap, err := history.Capture(s.doc)
	if err != nil {
		return err
	}
	return s.recordLocked(snap)
}

func (s *EditorSession) recordLocked(snap *history.Snapshot) error {
	result, err := s.store.Append(snap)
	if err != nil {
		return err
	}
	if result.Truncated > 0 || result.Evicted {
		s.logger.Debug("History trimmed",
			zap.String("sessionID", s.id),
			zap.Int("truncated", result.Truncated),
			zap.Bool("evicted", result.Evicted),
		)
		if s.hooks.HistoryTrimmed != nil {
			s.hooks.HistoryTrimmed(result.Truncated, result.Evicted)
		}
	}
	s.live = snap
	s.afterChangeLocked()
	return nil
}

// restoreLocked makes snap the live document. Nothing changes on failure.
func (s *EditorSession) restoreLocked(snap *history.Snapshot) error {
	doc, err := history.Apply(snap)
	if err != nil {
		return err
	}
	s.doc = doc
	s.live = snap

	if s.hooks.ClearSelection != nil {
		s.hooks.ClearSelection()
	}
	if s.hooks.Render != nil {
		s.hooks.Render(doc)
	}
	s.afterChangeLocked()
	return nil
}

func (s *EditorSession) rollbackLocked() {
	if s.live == nil {
		return
	}
	doc, err := history.Apply(s.live)
	if err != nil {
		s.logger.Error("Failed to roll back live document", zap.String("sessionID", s.id), zap.Error(err))
		return
	}
	s.doc = doc
}

func (s *EditorSession) afterChangeLocked() {
	was := s.dirty.IsDirty()
	s.dirty.Recompute(s.live)
	s.notifyLocked(was)
}

func (s *EditorSession) notifyLocked(wasDirty bool) {
	if s.hooks.UpdateAffordances != nil {
		s.hooks.UpdateAffordances(s.store.CanUndo(), s.store.CanRedo())
	}
	if now := s.dirty.IsDirty(); now != wasDirty && s.hooks.DirtyChanged != nil {
		s.hooks.DirtyChanged(now)
	}
}
