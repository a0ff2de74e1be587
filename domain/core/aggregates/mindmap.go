package aggregates

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/onokeee/mindmap/domain/config"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
	"github.com/onokeee/mindmap/domain/events"
	pkgerrors "github.com/onokeee/mindmap/pkg/errors"
)

// MindMap is a named, saved document owned by one user
type MindMap struct {
	id        valueobjects.MapID
	userID    string
	name      string
	document  *Document
	createdAt time.Time
	updatedAt time.Time
	version   int

	events []events.DomainEvent
}

// MindMapSummary is the listing view of a saved map
type MindMapSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"nodeCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMindMap creates a map for a user. An empty name becomes the configured
// default name.
func NewMindMap(userID, name string, document *Document, cfg *config.DomainConfig) (*MindMap, error) {
	return NewMindMapWithID(valueobjects.NewMapID(), userID, name, document, cfg)
}

// NewMindMapWithID creates a map under a caller-chosen identifier
func NewMindMapWithID(id valueobjects.MapID, userID, name string, document *Document, cfg *config.DomainConfig) (*MindMap, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("map ID cannot be empty")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}

	name, err := normalizeName(name, cfg)
	if err != nil {
		return nil, err
	}
	if document == nil {
		document = NewDocument()
	}
	if err := checkLimits(document, cfg); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &MindMap{
		id:        id,
		userID:    userID,
		name:      name,
		document:  document,
		createdAt: now,
		updatedAt: now,
		version:   1,
	}
	m.addEvent(events.NewMindMapSaved(m.id.String(), userID, name, document.NodeCount(), m.version, true, now))

	return m, nil
}

// ReconstructMindMap rebuilds a map from repository data
func ReconstructMindMap(
	id valueobjects.MapID,
	userID, name string,
	document *Document,
	createdAt, updatedAt time.Time,
	version int,
) (*MindMap, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if document == nil {
		document = NewDocument()
	}
	return &MindMap{
		id:        id,
		userID:    userID,
		name:      name,
		document:  document,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
	}, nil
}

// ID returns the map's identifier
func (m *MindMap) ID() valueobjects.MapID { return m.id }

// UserID returns the owner's ID
func (m *MindMap) UserID() string { return m.userID }

// Name returns the display name
func (m *MindMap) Name() string { return m.name }

// Document returns the saved document
func (m *MindMap) Document() *Document { return m.document }

// CreatedAt returns when the map was first saved
func (m *MindMap) CreatedAt() time.Time { return m.createdAt }

// UpdatedAt returns when the map was last saved
func (m *MindMap) UpdatedAt() time.Time { return m.updatedAt }

// Version returns the save counter used for optimistic locking
func (m *MindMap) Version() int { return m.version }

// IsOwnedBy reports whether userID owns the map
func (m *MindMap) IsOwnedBy(userID string) bool { return m.userID == userID }

// Summary returns the listing view
func (m *MindMap) Summary() MindMapSummary {
	return MindMapSummary{
		ID:        m.id.String(),
		Name:      m.name,
		NodeCount: m.document.NodeCount(),
		UpdatedAt: m.updatedAt,
	}
}

// Overwrite replaces name and document in one save
func (m *MindMap) Overwrite(name string, document *Document, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	name, err := normalizeName(name, cfg)
	if err != nil {
		return err
	}
	if document == nil {
		return pkgerrors.NewValidationError("document cannot be nil")
	}
	if err := checkLimits(document, cfg); err != nil {
		return err
	}

	m.name = name
	m.document = document
	m.updatedAt = time.Now().UTC()
	m.version++

	m.addEvent(events.NewMindMapSaved(m.id.String(), m.userID, name, document.NodeCount(), m.version, false, m.updatedAt))
	return nil
}

// MarkDeleted records the deletion event
func (m *MindMap) MarkDeleted() {
	m.addEvent(events.NewMindMapDeleted(m.id.String(), m.userID, time.Now().UTC()))
}

// GetUncommittedEvents returns all uncommitted domain events
func (m *MindMap) GetUncommittedEvents() []events.DomainEvent {
	return m.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (m *MindMap) MarkEventsAsCommitted() {
	m.events = nil
}

func (m *MindMap) addEvent(event events.DomainEvent) {
	m.events = append(m.events, event)
}

func normalizeName(name string, cfg *config.DomainConfig) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = cfg.DefaultMapName
	}
	if utf8.RuneCountInString(name) > cfg.MaxNameLength {
		return "", pkgerrors.NewValidationError(
			fmt.Sprintf("map name exceeds %d characters", cfg.MaxNameLength))
	}
	return name, nil
}

// CheckLimits reports a validation error when document would exceed the map
// limits in cfg. A nil cfg uses the default limits.
func CheckLimits(document *Document, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return checkLimits(document, cfg)
}

func checkLimits(document *Document, cfg *config.DomainConfig) error {
	if document.NodeCount() > cfg.MaxNodesPerMap {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("map has %d nodes, limit is %d", document.NodeCount(), cfg.MaxNodesPerMap))
	}
	if len(document.links) > cfg.MaxLinksPerMap {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("map has %d custom links, limit is %d", len(document.links), cfg.MaxLinksPerMap))
	}
	for _, n := range document.nodes {
		if len(n.Text()) > cfg.MaxNodeTextBytes {
			return pkgerrors.NewValidationError(
				fmt.Sprintf("node %q text exceeds %d bytes", n.ID(), cfg.MaxNodeTextBytes))
		}
	}
	return nil
}
