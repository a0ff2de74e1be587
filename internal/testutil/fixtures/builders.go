package fixtures

import (
	"time"

	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/entities"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
)

type nodeSpec struct {
	id, parent, text, color string
	x, y                    float64
}

// DocumentBuilder helps create test documents
type DocumentBuilder struct {
	nodes    []nodeSpec
	links    [][2]string
	reversed [][2]string
}

func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{}
}

func (b *DocumentBuilder) WithRoot(id, text string) *DocumentBuilder {
	b.nodes = append(b.nodes, nodeSpec{id: id, text: text})
	return b
}

func (b *DocumentBuilder) WithChild(parent, id, text string, x, y float64) *DocumentBuilder {
	b.nodes = append(b.nodes, nodeSpec{id: id, parent: parent, text: text, x: x, y: y})
	return b
}

func (b *DocumentBuilder) WithColor(color string) *DocumentBuilder {
	if len(b.nodes) > 0 {
		b.nodes[len(b.nodes)-1].color = color
	}
	return b
}

func (b *DocumentBuilder) WithLink(from, to string) *DocumentBuilder {
	b.links = append(b.links, [2]string{from, to})
	return b
}

func (b *DocumentBuilder) WithReversed(parent, child string) *DocumentBuilder {
	b.reversed = append(b.reversed, [2]string{parent, child})
	return b
}

func (b *DocumentBuilder) Build() (*aggregates.Document, error) {
	doc := aggregates.NewDocument()
	for _, n := range b.nodes {
		pos, err := valueobjects.NewPosition(n.x, n.y)
		if err != nil {
			return nil, err
		}
		var parent valueobjects.NodeID
		if n.parent != "" {
			parent = valueobjects.MustNodeID(n.parent)
		}
		id := valueobjects.MustNodeID(n.id)
		if _, err := doc.AddNode(id, n.text, pos, parent); err != nil {
			return nil, err
		}
		if n.color != "" {
			if err := doc.SetNodeColor(id, valueobjects.Color(n.color)); err != nil {
				return nil, err
			}
		}
	}
	for _, l := range b.links {
		link := entities.CustomLink{From: valueobjects.MustNodeID(l[0]), To: valueobjects.MustNodeID(l[1])}
		if err := doc.AddCustomLink(link); err != nil {
			return nil, err
		}
	}
	for _, r := range b.reversed {
		if _, err := doc.ToggleReversed(valueobjects.MustNodeID(r[0]), valueobjects.MustNodeID(r[1])); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (b *DocumentBuilder) MustBuild() *aggregates.Document {
	doc, err := b.Build()
	if err != nil {
		panic(err)
	}
	return doc
}

// SampleDocument returns root -> (a, b) with one link and one reversed edge
func SampleDocument() *aggregates.Document {
	return NewDocumentBuilder().
		WithRoot("root", "Central idea").
		WithChild("root", "a", "Branch A", 120, -40).
		WithChild("root", "b", "Branch B", 120, 40).WithColor("blue").
		WithLink("a", "b").
		WithReversed("root", "a").
		MustBuild()
}

// MindMapBuilder helps create test maps
type MindMapBuilder struct {
	id        valueobjects.MapID
	userID    string
	name      string
	document  *aggregates.Document
	updatedAt time.Time
	version   int
}

func NewMindMapBuilder() *MindMapBuilder {
	return &MindMapBuilder{
		id:        valueobjects.NewMapID(),
		userID:    "test-user-123",
		name:      "Test Map",
		updatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		version:   1,
	}
}

func (b *MindMapBuilder) WithID(id valueobjects.MapID) *MindMapBuilder {
	b.id = id
	return b
}

func (b *MindMapBuilder) WithUserID(userID string) *MindMapBuilder {
	b.userID = userID
	return b
}

func (b *MindMapBuilder) WithName(name string) *MindMapBuilder {
	b.name = name
	return b
}

func (b *MindMapBuilder) WithDocument(doc *aggregates.Document) *MindMapBuilder {
	b.document = doc
	return b
}

func (b *MindMapBuilder) UpdatedAt(t time.Time) *MindMapBuilder {
	b.updatedAt = t
	return b
}

func (b *MindMapBuilder) WithVersion(version int) *MindMapBuilder {
	b.version = version
	return b
}

func (b *MindMapBuilder) Build() (*aggregates.MindMap, error) {
	doc := b.document
	if doc == nil {
		doc = SampleDocument()
	}
	return aggregates.ReconstructMindMap(b.id, b.userID, b.name, doc, b.updatedAt, b.updatedAt, b.version)
}

func (b *MindMapBuilder) MustBuild() *aggregates.MindMap {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}
