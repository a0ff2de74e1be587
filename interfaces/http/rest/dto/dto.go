// Package dto holds the request and response bodies of the REST API
package dto

import (
	"time"

	"github.com/onokeee/mindmap/application/session"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/entities"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/domain/history"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// NodeDTO is one node on the wire. A root node has a null parent.
type NodeDTO struct {
	ID       string   `json:"id" validate:"required,max=64"`
	Text     string   `json:"text" validate:"max=10000"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Parent   *string  `json:"parent"`
	Children []string `json:"children" validate:"dive,required,max=64"`
	Color    string   `json:"color" validate:"max=32"`
}

// LinkDTO is a custom link on the wire
type LinkDTO struct {
	From  string            `json:"from" validate:"required,max=64"`
	To    string            `json:"to" validate:"required,max=64"`
	Label string            `json:"label,omitempty" validate:"max=500"`
	Props map[string]string `json:"props,omitempty"`
}

// ReversedDTO is a reversed parent-child connection on the wire
type ReversedDTO struct {
	ParentID string `json:"parentId" validate:"required,max=64"`
	ChildID  string `json:"childId" validate:"required,max=64"`
}

// DocumentDTO is the full document as the editor sends it
type DocumentDTO struct {
	Nodes               []NodeDTO     `json:"nodes" validate:"dive"`
	CustomLinks         []LinkDTO     `json:"customLinks" validate:"dive"`
	ReversedConnections []ReversedDTO `json:"reversedConnections" validate:"dive"`
}

// ToDocument builds a live document. Structural problems come back as
// validation errors.
func (d DocumentDTO) ToDocument() (*aggregates.Document, error) {
	nodes := make([]history.NodeState, len(d.Nodes))
	for i, n := range d.Nodes {
		nodes[i] = history.NodeState{
			ID:       n.ID,
			Text:     n.Text,
			X:        n.X,
			Y:        n.Y,
			Children: n.Children,
			Color:    n.Color,
		}
		if n.Parent != nil {
			nodes[i].Parent = *n.Parent
		}
	}

	links := make([]entities.CustomLink, len(d.CustomLinks))
	for i, l := range d.CustomLinks {
		from, to, err := nodeIDPair(l.From, l.To)
		if err != nil {
			return nil, err
		}
		links[i] = entities.CustomLink{From: from, To: to, Label: l.Label, Props: l.Props}
	}

	reversed := make([]entities.ReversedConnection, len(d.ReversedConnections))
	for i, rc := range d.ReversedConnections {
		parent, child, err := nodeIDPair(rc.ParentID, rc.ChildID)
		if err != nil {
			return nil, err
		}
		reversed[i] = entities.ReversedConnection{ParentID: parent, ChildID: child}
	}

	snap, err := history.NewSnapshot(nodes, links, reversed)
	if err != nil {
		return nil, asValidation(err)
	}
	doc, err := history.Apply(snap)
	if err != nil {
		return nil, asValidation(err)
	}
	return doc, nil
}

func nodeIDPair(a, b string) (valueobjects.NodeID, valueobjects.NodeID, error) {
	first, err := valueobjects.NewNodeIDFromString(a)
	if err != nil {
		return valueobjects.NodeID{}, valueobjects.NodeID{}, asValidation(err)
	}
	second, err := valueobjects.NewNodeIDFromString(b)
	if err != nil {
		return valueobjects.NodeID{}, valueobjects.NodeID{}, asValidation(err)
	}
	return first, second, nil
}

func asValidation(err error) error {
	if pkgerrors.GetAppError(err) != nil {
		return err
	}
	return pkgerrors.NewValidationError("invalid document: " + err.Error()).WithCause(err)
}

// LoginRequest carries credentials
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Status    string    `json:"status"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionCheckResponse reports whether the caller is logged in
type SessionCheckResponse struct {
	LoggedIn bool   `json:"loggedIn"`
	Username string `json:"username,omitempty"`
}

// StatusResponse is the body of operations with nothing else to report
type StatusResponse struct {
	Status string `json:"status"`
}

// SaveMindMapRequest creates a map, or overwrites it when ID names an
// existing map of the caller.
type SaveMindMapRequest struct {
	ID   string       `json:"id" validate:"omitempty,uuid"`
	Name string       `json:"name" validate:"max=200"`
	Data *DocumentDTO `json:"data" validate:"required"`
}

// SaveMindMapResponse identifies the stored map
type SaveMindMapResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

// MindMapResponse is a stored map with its document
type MindMapResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Version   int               `json:"version"`
	NodeCount int               `json:"nodeCount"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Data      *history.Snapshot `json:"data"`
}

// NewMindMapResponse converts a stored map
func NewMindMapResponse(m *aggregates.MindMap) (MindMapResponse, error) {
	snap, err := history.Capture(m.Document())
	if err != nil {
		return MindMapResponse{}, err
	}
	return MindMapResponse{
		ID:        m.ID().String(),
		Name:      m.Name(),
		Version:   m.Version(),
		NodeCount: snap.NodeCount(),
		CreatedAt: m.CreatedAt(),
		UpdatedAt: m.UpdatedAt(),
		Data:      snap,
	}, nil
}

// MindMapListResponse lists the caller's maps
type MindMapListResponse struct {
	Maps []aggregates.MindMapSummary `json:"maps"`
}

// OpenSessionRequest opens an editor session, on a stored map when MapID is
// set.
type OpenSessionRequest struct {
	MapID string `json:"mapId" validate:"omitempty,uuid"`
}

// RecordEditRequest replaces the live document of a session
type RecordEditRequest struct {
	Document *DocumentDTO `json:"document" validate:"required"`
}

// SaveSessionRequest persists a session; an empty name keeps the current one
type SaveSessionRequest struct {
	Name string `json:"name" validate:"max=200"`
}

// SessionResponse is the state of an editor session
type SessionResponse struct {
	SessionID     string            `json:"sessionId"`
	MapID         string            `json:"mapId,omitempty"`
	MapName       string            `json:"mapName,omitempty"`
	CanUndo       bool              `json:"canUndo"`
	CanRedo       bool              `json:"canRedo"`
	IsDirty       bool              `json:"isDirty"`
	HistoryLength int               `json:"historyLength"`
	Cursor        int               `json:"cursor"`
	Document      *history.Snapshot `json:"document"`
}

// NewSessionResponse converts a session state
func NewSessionResponse(s session.State) SessionResponse {
	return SessionResponse{
		SessionID:     s.SessionID,
		MapID:         s.MapID,
		MapName:       s.MapName,
		CanUndo:       s.CanUndo,
		CanRedo:       s.CanRedo,
		IsDirty:       s.IsDirty,
		HistoryLength: s.HistoryLength,
		Cursor:        s.Cursor,
		Document:      s.Document,
	}
}
