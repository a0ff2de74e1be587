package entities

import (
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// Node is one topic of a mind map. Nodes form a tree through parent and
// children references; the root has a zero parent.
type Node struct {
	id       valueobjects.NodeID
	text     string
	position valueobjects.Position
	parent   valueobjects.NodeID
	children []valueobjects.NodeID
	color    valueobjects.Color
}

// NewNode creates a childless node with the default color
func NewNode(id valueobjects.NodeID, text string, position valueobjects.Position, parent valueobjects.NodeID) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID cannot be empty")
	}
	if !parent.IsZero() && parent.Equals(id) {
		return nil, pkgerrors.NewValidationError("node cannot be its own parent")
	}

	return &Node{
		id:       id,
		text:     text,
		position: position,
		parent:   parent,
		children: []valueobjects.NodeID{},
		color:    valueobjects.DefaultColor,
	}, nil
}

// ReconstructNode rebuilds a node from stored state. An empty color falls
// back to the default color.
func ReconstructNode(
	id valueobjects.NodeID,
	text string,
	position valueobjects.Position,
	parent valueobjects.NodeID,
	children []valueobjects.NodeID,
	color string,
) (*Node, error) {
	node, err := NewNode(id, text, position, parent)
	if err != nil {
		return nil, err
	}

	node.children = make([]valueobjects.NodeID, len(children))
	copy(node.children, children)
	node.color = valueobjects.ColorOrDefault(color)

	return node, nil
}

// ID returns the node's identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Text returns the node's text content
func (n *Node) Text() string {
	return n.text
}

// Position returns the node's canvas position
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// Parent returns the parent ID; zero for the root
func (n *Node) Parent() valueobjects.NodeID {
	return n.parent
}

// IsRoot reports whether the node has no parent
func (n *Node) IsRoot() bool {
	return n.parent.IsZero()
}

// Color returns the node's palette tag
func (n *Node) Color() valueobjects.Color {
	return n.color
}

// Children returns the ordered child IDs
func (n *Node) Children() []valueobjects.NodeID {
	children := make([]valueobjects.NodeID, len(n.children))
	copy(children, n.children)
	return children
}

// HasChild reports whether childID is listed as a child
func (n *Node) HasChild(childID valueobjects.NodeID) bool {
	return n.childIndex(childID) >= 0
}

// SetText replaces the node's text
func (n *Node) SetText(text string) {
	n.text = text
}

// MoveTo moves the node to a new position
func (n *Node) MoveTo(position valueobjects.Position) {
	n.position = position
}

// SetColor changes the node's palette tag
func (n *Node) SetColor(color valueobjects.Color) {
	if color.IsZero() {
		color = valueobjects.DefaultColor
	}
	n.color = color
}

// AddChild appends childID to the ordered child list
func (n *Node) AddChild(childID valueobjects.NodeID) error {
	if childID.Equals(n.id) {
		return pkgerrors.NewValidationError("node cannot be its own child")
	}
	if n.HasChild(childID) {
		return pkgerrors.NewConflictError("child already attached")
	}
	n.children = append(n.children, childID)
	return nil
}

// RemoveChild drops childID from the child list, keeping the order of the rest
func (n *Node) RemoveChild(childID valueobjects.NodeID) error {
	idx := n.childIndex(childID)
	if idx < 0 {
		return pkgerrors.NewNotFoundError("child")
	}
	n.children = append(n.children[:idx], n.children[idx+1:]...)
	return nil
}

// SetParent re-parents the node
func (n *Node) SetParent(parent valueobjects.NodeID) error {
	if !parent.IsZero() && parent.Equals(n.id) {
		return pkgerrors.NewValidationError("node cannot be its own parent")
	}
	n.parent = parent
	return nil
}

func (n *Node) childIndex(childID valueobjects.NodeID) int {
	for i, c := range n.children {
		if c.Equals(childID) {
			return i
		}
	}
	return -1
}
