package history

import (
	"errors"
	"fmt"

	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// Common errors for store operations.
var (
	ErrEmptyHistory    = errors.New("history is empty")
	ErrNilSnapshot     = errors.New("snapshot cannot be nil")
	ErrInvalidCapacity = errors.New("history capacity must be positive")
)

// DefaultCapacity is the number of snapshots kept when none is configured.
const DefaultCapacity = 50

// StoreConfig sets the bounds of a Store.
type StoreConfig struct {
	// Capacity is the maximum number of retained snapshots.
	Capacity int

	// CursorTracksAppendedEntryOnEvict selects how the cursor is set when
	// an append overflows the store. When true it is moved to the last
	// entry. When false it is not advanced and keeps its index; the redo
	// branch is always truncated first, so that index is the appended one.
	CursorTracksAppendedEntryOnEvict bool
}

// DefaultStoreConfig returns a config with DefaultCapacity and a cursor that
// follows the appended snapshot.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Capacity:                         DefaultCapacity,
		CursorTracksAppendedEntryOnEvict: true,
	}
}

// AppendResult describes what an Append discarded.
type AppendResult struct {
	// Truncated is the number of redo snapshots dropped.
	Truncated int
	// Evicted is true when the oldest snapshot was dropped to stay in bounds.
	Evicted bool
}

// Store is a bounded, branch-truncating sequence of snapshots with a cursor
// marking the current one. An empty store has cursor -1.
//
// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	entries  []*Snapshot
	cursor   int
	capacity int
	tracks   bool
}

// NewStore creates an empty store
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, cfg.Capacity)
	}
	return &Store{
		entries:  make([]*Snapshot, 0, cfg.Capacity+1),
		cursor:   -1,
		capacity: cfg.Capacity,
		tracks:   cfg.CursorTracksAppendedEntryOnEvict,
	}, nil
}

// Append records snap as the newest step. Every snapshot after the cursor is
// dropped first; then, if the store is over capacity, the oldest snapshot is
// evicted.
func (s *Store) Append(snap *Snapshot) (AppendResult, error) {
	if snap == nil {
		return AppendResult{}, ErrNilSnapshot
	}

	var result AppendResult
	previous := s.cursor

	if tail := len(s.entries) - 1; s.cursor < tail {
		result.Truncated = tail - s.cursor
		clear(s.entries[s.cursor+1:])
		s.entries = s.entries[:s.cursor+1]
	}
	s.entries = append(s.entries, snap)

	if len(s.entries) <= s.capacity {
		s.cursor = len(s.entries) - 1
		return result, nil
	}

	copy(s.entries, s.entries[1:])
	s.entries[len(s.entries)-1] = nil
	s.entries = s.entries[:len(s.entries)-1]
	result.Evicted = true

	if s.tracks {
		s.cursor = len(s.entries) - 1
	} else {
		s.cursor = previous
	}
	return result, nil
}

// Current returns the snapshot at the cursor. On an empty store the error is
// a precondition AppError wrapping ErrEmptyHistory.
func (s *Store) Current() (*Snapshot, error) {
	if len(s.entries) == 0 {
		return nil, pkgerrors.NewPreconditionError("history is empty").WithCause(ErrEmptyHistory)
	}
	return s.entries[s.cursor], nil
}

// CanUndo reports whether MoveBack would move the cursor
func (s *Store) CanUndo() bool {
	return s.cursor > 0
}

// CanRedo reports whether MoveForward would move the cursor
func (s *Store) CanRedo() bool {
	return s.cursor >= 0 && s.cursor < len(s.entries)-1
}

// MoveBack steps the cursor one snapshot back and returns the new current
// snapshot. At the oldest snapshot it is a no-op and returns false.
func (s *Store) MoveBack() (*Snapshot, bool) {
	if !s.CanUndo() {
		return nil, false
	}
	s.cursor--
	return s.entries[s.cursor], true
}

// MoveForward steps the cursor one snapshot forward and returns the new
// current snapshot. At the newest snapshot it is a no-op and returns false.
func (s *Store) MoveForward() (*Snapshot, bool) {
	if !s.CanRedo() {
		return nil, false
	}
	s.cursor++
	return s.entries[s.cursor], true
}

// Len returns the number of retained snapshots
func (s *Store) Len() int {
	return len(s.entries)
}

// Cursor returns the index of the current snapshot, or -1 when empty
func (s *Store) Cursor() int {
	return s.cursor
}

// Capacity returns the configured bound
func (s *Store) Capacity() int {
	return s.capacity
}

// Entries returns the retained snapshots, oldest first
func (s *Store) Entries() []*Snapshot {
	out := make([]*Snapshot, len(s.entries))
	copy(out, s.entries)
	return out
}
