// Package persistence holds the storage-neutral pieces shared by the mind map
// repositories: the flat record every backend stores and the repository
// decorators (read cache, circuit breaker).
package persistence

import (
	"sort"
	"time"

	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/domain/history"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// Record is the stored form of a mind map. Data holds the document encoded
// as {"nodes":[...],"customLinks":[...],"reversedConnections":[...]}.
type Record struct {
	ID        string
	UserID    string
	Name      string
	Data      []byte
	NodeCount int
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// ToRecord flattens a mind map for storage
func ToRecord(m *aggregates.MindMap) (Record, error) {
	data, err := history.EncodeDocument(m.Document())
	if err != nil {
		return Record{}, pkgerrors.Wrap(err, "failed to encode document")
	}
	return Record{
		ID:        m.ID().String(),
		UserID:    m.UserID(),
		Name:      m.Name(),
		Data:      data,
		NodeCount: m.Document().NodeCount(),
		CreatedAt: m.CreatedAt(),
		UpdatedAt: m.UpdatedAt(),
		Version:   m.Version(),
	}, nil
}

// ToMindMap rebuilds the aggregate from a stored record
func (r Record) ToMindMap() (*aggregates.MindMap, error) {
	id, err := valueobjects.NewMapIDFromString(r.ID)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "stored map has invalid id %q", r.ID)
	}
	doc, err := history.DecodeDocument(r.Data)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "stored map %s has an unreadable document", r.ID)
	}
	return aggregates.ReconstructMindMap(id, r.UserID, r.Name, doc, r.CreatedAt, r.UpdatedAt, r.Version)
}

// Summary returns the listing view without decoding the document
func (r Record) Summary() aggregates.MindMapSummary {
	return aggregates.MindMapSummary{
		ID:        r.ID,
		Name:      r.Name,
		NodeCount: r.NodeCount,
		UpdatedAt: r.UpdatedAt,
	}
}

// SortSummaries orders summaries most recently updated first, breaking ties
// by name so listings are stable.
func SortSummaries(summaries []aggregates.MindMapSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].Name < summaries[j].Name
	})
}

