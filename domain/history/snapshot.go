package history

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/entities"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
)

// ErrCodecFailure is matched by every error returned from Capture, Apply and
// the decode helpers.
var ErrCodecFailure = errors.New("snapshot codec failure")

// CodecError reports malformed document data met while capturing or
// restoring a snapshot.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCodecFailure, e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *CodecError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCodecFailure) hold for every CodecError
func (e *CodecError) Is(target error) bool { return target == ErrCodecFailure }

func codecErr(op string, err error) error {
	return &CodecError{Op: op, Err: err}
}

// NodeState is the stored form of one node. Parent is empty for the root.
type NodeState struct {
	ID       string
	Text     string
	X        float64
	Y        float64
	Parent   string
	Children []string
	Color    string
}

func (n NodeState) clone() NodeState {
	out := n
	out.Children = make([]string, len(n.Children))
	copy(out.Children, n.Children)
	return out
}

// Snapshot is an immutable copy of a document at one point in history.
// Accessors hand out copies, so a Snapshot can be shared freely.
type Snapshot struct {
	nodes       []NodeState
	customLinks []entities.CustomLink
	reversed    []entities.ReversedConnection
	fingerprint [sha256.Size]byte
}

// NewSnapshot builds a snapshot from raw parts. All inputs are copied.
func NewSnapshot(nodes []NodeState, links []entities.CustomLink, reversed []entities.ReversedConnection) (*Snapshot, error) {
	s := &Snapshot{
		nodes:       make([]NodeState, len(nodes)),
		customLinks: entities.CloneLinks(links),
		reversed:    entities.CloneReversed(reversed),
	}
	for i, n := range nodes {
		s.nodes[i] = n.clone()
	}

	canonical, err := Canonical(s)
	if err != nil {
		return nil, codecErr("encode", err)
	}
	s.fingerprint = sha256.Sum256(canonical)
	return s, nil
}

// Capture copies the live document into a new snapshot. A document whose
// parent or child references do not resolve is rejected.
func Capture(doc *aggregates.Document) (*Snapshot, error) {
	if doc == nil {
		return nil, codecErr("capture", errors.New("document is nil"))
	}
	if err := doc.Validate(); err != nil {
		return nil, codecErr("capture", err)
	}

	docNodes := doc.Nodes()
	nodes := make([]NodeState, 0, len(docNodes))
	for _, n := range docNodes {
		children := n.Children()
		state := NodeState{
			ID:       n.ID().String(),
			Text:     n.Text(),
			X:        n.Position().X(),
			Y:        n.Position().Y(),
			Parent:   n.Parent().String(),
			Children: make([]string, len(children)),
			Color:    n.Color().String(),
		}
		for i, c := range children {
			state.Children[i] = c.String()
		}
		nodes = append(nodes, state)
	}

	return NewSnapshot(nodes, doc.CustomLinks(), doc.ReversedConnections())
}

// Apply rebuilds a live document from the snapshot. Node identity, tree
// links and colors are restored; an empty color becomes the default color.
// Selection is not part of a snapshot and must be cleared by the caller.
func Apply(s *Snapshot) (*aggregates.Document, error) {
	if s == nil {
		return nil, codecErr("apply", errors.New("snapshot is nil"))
	}

	nodes := make([]*entities.Node, 0, len(s.nodes))
	for _, state := range s.nodes {
		node, err := restoreNode(state)
		if err != nil {
			return nil, codecErr("apply", err)
		}
		nodes = append(nodes, node)
	}

	doc, err := aggregates.RestoreDocument(nodes, s.customLinks, s.reversed)
	if err != nil {
		return nil, codecErr("apply", err)
	}
	return doc, nil
}

func restoreNode(state NodeState) (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(state.ID)
	if err != nil {
		return nil, err
	}

	var parent valueobjects.NodeID
	if state.Parent != "" {
		if parent, err = valueobjects.NewNodeIDFromString(state.Parent); err != nil {
			return nil, fmt.Errorf("node %q: %w", state.ID, err)
		}
	}

	children := make([]valueobjects.NodeID, len(state.Children))
	for i, c := range state.Children {
		if children[i], err = valueobjects.NewNodeIDFromString(c); err != nil {
			return nil, fmt.Errorf("node %q: %w", state.ID, err)
		}
	}

	position, err := valueobjects.NewPosition(state.X, state.Y)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", state.ID, err)
	}

	return entities.ReconstructNode(id, state.Text, position, parent, children, state.Color)
}

// Nodes returns a copy of the stored nodes in display order
func (s *Snapshot) Nodes() []NodeState {
	out := make([]NodeState, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.clone()
	}
	return out
}

// NodeCount returns the number of stored nodes
func (s *Snapshot) NodeCount() int {
	return len(s.nodes)
}

// CustomLinks returns a copy of the stored custom links
func (s *Snapshot) CustomLinks() []entities.CustomLink {
	return entities.CloneLinks(s.customLinks)
}

// ReversedConnections returns a copy of the stored reversed edges
func (s *Snapshot) ReversedConnections() []entities.ReversedConnection {
	return entities.CloneReversed(s.reversed)
}

// Fingerprint returns the hex SHA-256 of the canonical encoding
func (s *Snapshot) Fingerprint() string {
	return hex.EncodeToString(s.fingerprint[:])
}
