package history

import (
	"encoding/json"

	"github.com/onokeee/mindmap/domain/core/aggregates"
)

// DecodeSnapshot parses the canonical JSON form produced by MarshalJSON
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, codecErr("decode", err)
	}

	nodes := make([]NodeState, len(w.Nodes))
	for i, wn := range w.Nodes {
		nodes[i] = NodeState{
			ID:       wn.ID,
			Text:     wn.Text,
			X:        wn.X,
			Y:        wn.Y,
			Children: wn.Children,
			Color:    wn.Color,
		}
		if wn.Parent != nil {
			nodes[i].Parent = *wn.Parent
		}
	}
	return NewSnapshot(nodes, w.CustomLinks, w.ReversedConnections)
}

// EncodeDocument serializes a live document for storage or transport
func EncodeDocument(doc *aggregates.Document) ([]byte, error) {
	s, err := Capture(doc)
	if err != nil {
		return nil, err
	}
	return Canonical(s)
}

// DecodeDocument parses stored data back into a live document
func DecodeDocument(data []byte) (*aggregates.Document, error) {
	s, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return Apply(s)
}
