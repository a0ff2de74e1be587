// Package history provides snapshot-based undo/redo for mind map documents.
//
// Every undoable step is a full, immutable copy of the document. There are no
// deltas and no coalescing: one Append is one step.
//
// # Snapshots
//
// Capture copies the live document (nodes in display order, custom links,
// reversed edges) into a Snapshot; Apply rebuilds a live document from one.
// Both fail with a *CodecError, and leave their input untouched, when the
// tree references do not resolve.
//
// # Equality
//
// Equals compares the canonical JSON encodings of two snapshots. Each
// snapshot keeps a SHA-256 fingerprint of its encoding, so unequal snapshots
// are rejected without re-encoding.
//
// # Store
//
// Store is a bounded sequence of snapshots with a cursor:
//
//	store, _ := NewStore(StoreConfig{Capacity: 50, CursorTracksAppendedEntryOnEvict: true})
//	store.Append(snap)      // drops redo entries, evicts the oldest when full
//	store.MoveBack()        // undo
//	store.MoveForward()     // redo
//
// # Dirty tracking
//
// DirtyTracker remembers the last persisted snapshot and reports whether the
// current one differs from it. Navigating back onto the persisted snapshot
// makes the document clean again.
package history
