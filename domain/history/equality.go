package history

import (
	"bytes"
	"encoding/json"

	"github.com/onokeee/mindmap/domain/core/entities"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
)

// wireNode fixes the field order of the canonical encoding. A root node is
// written with a null parent.
type wireNode struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Parent   *string  `json:"parent"`
	Children []string `json:"children"`
	Color    string   `json:"color"`
}

type wireSnapshot struct {
	Nodes               []wireNode                    `json:"nodes"`
	CustomLinks         []entities.CustomLink         `json:"customLinks"`
	ReversedConnections []entities.ReversedConnection `json:"reversedConnections"`
}

func toWire(s *Snapshot) wireSnapshot {
	w := wireSnapshot{
		Nodes:               make([]wireNode, len(s.nodes)),
		CustomLinks:         s.customLinks,
		ReversedConnections: s.reversed,
	}
	for i, n := range s.nodes {
		wn := wireNode{
			ID:       n.ID,
			Text:     n.Text,
			X:        valueobjects.NormalizeZero(n.X),
			Y:        valueobjects.NormalizeZero(n.Y),
			Children: n.Children,
			Color:    n.Color,
		}
		if wn.Children == nil {
			wn.Children = []string{}
		}
		if n.Parent != "" {
			parent := n.Parent
			wn.Parent = &parent
		}
		w.Nodes[i] = wn
	}
	if w.CustomLinks == nil {
		w.CustomLinks = []entities.CustomLink{}
	}
	if w.ReversedConnections == nil {
		w.ReversedConnections = []entities.ReversedConnection{}
	}
	return w
}

// Canonical returns the deterministic encoding of a snapshot. Node order,
// child order and link order are kept as stored; map keys inside link props
// are sorted by the encoder.
func Canonical(s *Snapshot) ([]byte, error) {
	return json.Marshal(toWire(s))
}

// MarshalJSON encodes the snapshot in its canonical form
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return Canonical(s)
}

// Equals reports whether two snapshots hold the same document. The check is
// strict: any differing field, including a tiny position change, is a
// difference.
func Equals(a, b *Snapshot) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.fingerprint != b.fingerprint {
		return false
	}

	// Matching fingerprints are confirmed byte for byte.
	ca, err := Canonical(a)
	if err != nil {
		return false
	}
	cb, err := Canonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}
