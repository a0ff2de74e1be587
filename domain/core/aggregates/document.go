package aggregates

import (
	"fmt"

	"github.com/onokeee/mindmap/domain/core/entities"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// Document is the live, mutable state of a mind map being edited: the node
// tree in display order, the custom links and the reversed edges.
type Document struct {
	nodes    []*entities.Node
	index    map[string]*entities.Node
	links    []entities.CustomLink
	reversed []entities.ReversedConnection
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{
		nodes:    []*entities.Node{},
		index:    make(map[string]*entities.Node),
		links:    []entities.CustomLink{},
		reversed: []entities.ReversedConnection{},
	}
}

// RestoreDocument assembles a document from already-built parts and checks
// that the tree references are consistent. The node order is kept as given.
func RestoreDocument(
	nodes []*entities.Node,
	links []entities.CustomLink,
	reversed []entities.ReversedConnection,
) (*Document, error) {
	doc := NewDocument()
	for _, n := range nodes {
		if n == nil {
			return nil, pkgerrors.NewValidationError("document contains a nil node")
		}
		if _, dup := doc.index[n.ID().String()]; dup {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("duplicate node ID %q", n.ID()))
		}
		doc.nodes = append(doc.nodes, n)
		doc.index[n.ID().String()] = n
	}
	doc.links = entities.CloneLinks(links)
	doc.reversed = entities.CloneReversed(reversed)

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks that every parent and child reference resolves to a node
// of this document and that both sides of each edge agree.
func (d *Document) Validate() error {
	for _, n := range d.nodes {
		if !n.IsRoot() {
			parent, ok := d.index[n.Parent().String()]
			if !ok {
				return pkgerrors.NewValidationError(
					fmt.Sprintf("node %q references missing parent %q", n.ID(), n.Parent()))
			}
			if !parent.HasChild(n.ID()) {
				return pkgerrors.NewValidationError(
					fmt.Sprintf("parent %q does not list child %q", parent.ID(), n.ID()))
			}
		}
		for _, childID := range n.Children() {
			child, ok := d.index[childID.String()]
			if !ok {
				return pkgerrors.NewValidationError(
					fmt.Sprintf("node %q references missing child %q", n.ID(), childID))
			}
			if !child.Parent().Equals(n.ID()) {
				return pkgerrors.NewValidationError(
					fmt.Sprintf("child %q does not point back to parent %q", childID, n.ID()))
			}
		}
	}
	return nil
}

// Nodes returns the nodes in display order. The slice is a copy; the nodes
// are the live entities.
func (d *Document) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, len(d.nodes))
	copy(nodes, d.nodes)
	return nodes
}

// Node looks up a node by ID
func (d *Document) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	n, ok := d.index[id.String()]
	return n, ok
}

// NodeCount returns the number of nodes
func (d *Document) NodeCount() int {
	return len(d.nodes)
}

// CustomLinks returns a copy of the custom links
func (d *Document) CustomLinks() []entities.CustomLink {
	return entities.CloneLinks(d.links)
}

// ReversedConnections returns a copy of the reversed edges
func (d *Document) ReversedConnections() []entities.ReversedConnection {
	return entities.CloneReversed(d.reversed)
}

// AddNode appends a node and, when parent is set, attaches it as the
// parent's last child.
func (d *Document) AddNode(id valueobjects.NodeID, text string, position valueobjects.Position, parent valueobjects.NodeID) (*entities.Node, error) {
	if _, exists := d.index[id.String()]; exists {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("node %q already exists", id))
	}

	var parentNode *entities.Node
	if !parent.IsZero() {
		p, ok := d.index[parent.String()]
		if !ok {
			return nil, pkgerrors.NewNotFoundError("parent node")
		}
		parentNode = p
	}

	node, err := entities.NewNode(id, text, position, parent)
	if err != nil {
		return nil, err
	}
	if parentNode != nil {
		if err := parentNode.AddChild(id); err != nil {
			return nil, err
		}
	}

	d.nodes = append(d.nodes, node)
	d.index[id.String()] = node
	return node, nil
}

// UpdateText changes the text of a node
func (d *Document) UpdateText(id valueobjects.NodeID, text string) error {
	n, ok := d.index[id.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("node")
	}
	n.SetText(text)
	return nil
}

// MoveNode moves a node to a new position
func (d *Document) MoveNode(id valueobjects.NodeID, position valueobjects.Position) error {
	n, ok := d.index[id.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("node")
	}
	n.MoveTo(position)
	return nil
}

// SetNodeColor recolors a node
func (d *Document) SetNodeColor(id valueobjects.NodeID, color valueobjects.Color) error {
	n, ok := d.index[id.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("node")
	}
	n.SetColor(color)
	return nil
}

// RemoveNode deletes a node together with its whole subtree, and drops every
// custom link and reversed edge that touches a deleted node.
func (d *Document) RemoveNode(id valueobjects.NodeID) error {
	target, ok := d.index[id.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("node")
	}

	doomed := make(map[string]bool)
	d.collectSubtree(target, doomed)

	if !target.IsRoot() {
		if parent, ok := d.index[target.Parent().String()]; ok {
			_ = parent.RemoveChild(id)
		}
	}

	kept := d.nodes[:0]
	for _, n := range d.nodes {
		if doomed[n.ID().String()] {
			delete(d.index, n.ID().String())
			continue
		}
		kept = append(kept, n)
	}
	d.nodes = kept

	links := d.links[:0]
	for _, l := range d.links {
		if doomed[l.From.String()] || doomed[l.To.String()] {
			continue
		}
		links = append(links, l)
	}
	d.links = links

	reversed := d.reversed[:0]
	for _, r := range d.reversed {
		if doomed[r.ParentID.String()] || doomed[r.ChildID.String()] {
			continue
		}
		reversed = append(reversed, r)
	}
	d.reversed = reversed

	return nil
}

// AddCustomLink appends a link between two existing nodes
func (d *Document) AddCustomLink(link entities.CustomLink) error {
	if _, ok := d.index[link.From.String()]; !ok {
		return pkgerrors.NewNotFoundError("link source node")
	}
	if _, ok := d.index[link.To.String()]; !ok {
		return pkgerrors.NewNotFoundError("link target node")
	}
	d.links = append(d.links, link.Clone())
	return nil
}

// ToggleReversed flips the drawing direction of a parent-child edge. It
// returns true when the edge is reversed after the call.
func (d *Document) ToggleReversed(parentID, childID valueobjects.NodeID) (bool, error) {
	parent, ok := d.index[parentID.String()]
	if !ok || !parent.HasChild(childID) {
		return false, pkgerrors.NewNotFoundError("parent-child edge")
	}

	conn := entities.ReversedConnection{ParentID: parentID, ChildID: childID}
	for i, r := range d.reversed {
		if r.Equals(conn) {
			d.reversed = append(d.reversed[:i], d.reversed[i+1:]...)
			return false, nil
		}
	}
	d.reversed = append(d.reversed, conn)
	return true, nil
}

func (d *Document) collectSubtree(n *entities.Node, into map[string]bool) {
	if into[n.ID().String()] {
		return
	}
	into[n.ID().String()] = true
	for _, childID := range n.Children() {
		if child, ok := d.index[childID.String()]; ok {
			d.collectSubtree(child, into)
		}
	}
}
