package history

import (
	"testing"

	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/entities"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/stretchr/testify/require"
)

func pos(t *testing.T, x, y float64) valueobjects.Position {
	t.Helper()
	p, err := valueobjects.NewPosition(x, y)
	require.NoError(t, err)
	return p
}

// newTestDocument builds root -> (a, b) with one custom link and one
// reversed edge.
func newTestDocument(t *testing.T) *aggregates.Document {
	t.Helper()
	doc := aggregates.NewDocument()

	root := valueobjects.MustNodeID("root")
	a := valueobjects.MustNodeID("a")
	b := valueobjects.MustNodeID("b")

	_, err := doc.AddNode(root, "Central idea", pos(t, 0, 0), valueobjects.NodeID{})
	require.NoError(t, err)
	_, err = doc.AddNode(a, "Branch A", pos(t, 120, -40), root)
	require.NoError(t, err)
	_, err = doc.AddNode(b, "Branch B", pos(t, 120, 40), root)
	require.NoError(t, err)
	require.NoError(t, doc.SetNodeColor(b, valueobjects.Color("blue")))

	require.NoError(t, doc.AddCustomLink(entities.CustomLink{
		From:  a,
		To:    b,
		Label: "relates",
		Props: map[string]string{"style": "dashed", "width": "2"},
	}))
	_, err = doc.ToggleReversed(root, a)
	require.NoError(t, err)

	return doc
}

func mustCapture(t *testing.T, doc *aggregates.Document) *Snapshot {
	t.Helper()
	s, err := Capture(doc)
	require.NoError(t, err)
	return s
}

// labeled returns a one-node snapshot whose only node carries text.
func labeled(t *testing.T, text string) *Snapshot {
	t.Helper()
	s, err := NewSnapshot([]NodeState{{ID: "root", Text: text, Color: "white"}}, nil, nil)
	require.NoError(t, err)
	return s
}

func rootText(s *Snapshot) string {
	return s.Nodes()[0].Text
}
