package entities

import "github.com/onokeee/mindmap/domain/core/valueobjects"

// CustomLink is an extra connection between two nodes that sits outside the
// parent/child tree. Props carries free-form presentation attributes.
type CustomLink struct {
	From  valueobjects.NodeID `json:"from"`
	To    valueobjects.NodeID `json:"to"`
	Label string              `json:"label,omitempty"`
	Props map[string]string   `json:"props,omitempty"`
}

// Clone returns a structurally independent copy of the link
func (l CustomLink) Clone() CustomLink {
	out := CustomLink{From: l.From, To: l.To, Label: l.Label}
	if l.Props != nil {
		out.Props = make(map[string]string, len(l.Props))
		for k, v := range l.Props {
			out.Props[k] = v
		}
	}
	return out
}

// Touches reports whether the link has id at either end
func (l CustomLink) Touches(id valueobjects.NodeID) bool {
	return l.From.Equals(id) || l.To.Equals(id)
}

// ReversedConnection marks a parent-child edge whose arrow is drawn from the
// child towards the parent.
type ReversedConnection struct {
	ParentID valueobjects.NodeID `json:"parentId"`
	ChildID  valueobjects.NodeID `json:"childId"`
}

// Equals compares both ends of the connection
func (r ReversedConnection) Equals(other ReversedConnection) bool {
	return r.ParentID.Equals(other.ParentID) && r.ChildID.Equals(other.ChildID)
}

// CloneLinks copies a slice of links, preserving order
func CloneLinks(links []CustomLink) []CustomLink {
	out := make([]CustomLink, len(links))
	for i, l := range links {
		out[i] = l.Clone()
	}
	return out
}

// CloneReversed copies a slice of reversed connections, preserving order
func CloneReversed(conns []ReversedConnection) []ReversedConnection {
	out := make([]ReversedConnection, len(conns))
	copy(out, conns)
	return out
}
