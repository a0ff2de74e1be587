package history

// DirtyTracker reports whether the current document differs from the last
// persisted one. Until something is persisted the document is dirty.
type DirtyTracker struct {
	lastPersisted *Snapshot
	dirty         bool
}

// NewDirtyTracker creates a tracker with nothing persisted yet
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{dirty: true}
}

// MarkPersisted records snap as the persisted state. Snapshots are immutable,
// so later edits cannot leak into the recorded state. The tracker is clean
// afterwards; a nil snap forgets the persisted state.
func (t *DirtyTracker) MarkPersisted(snap *Snapshot) {
	t.lastPersisted = snap
	t.Recompute(snap)
}

// Recompute compares current with the persisted state and returns the new
// dirty flag.
func (t *DirtyTracker) Recompute(current *Snapshot) bool {
	t.dirty = t.lastPersisted == nil || !Equals(current, t.lastPersisted)
	return t.dirty
}

// IsDirty returns the flag computed by the last Recompute
func (t *DirtyTracker) IsDirty() bool {
	return t.dirty
}

// LastPersisted returns the persisted snapshot, or nil
func (t *DirtyTracker) LastPersisted() *Snapshot {
	return t.lastPersisted
}

// HasPersisted reports whether anything was persisted
func (t *DirtyTracker) HasPersisted() bool {
	return t.lastPersisted != nil
}
