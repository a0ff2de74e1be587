package events

import "time"

// SourceBackend is the event source name used when publishing
const SourceBackend = "mindmap.backend"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// MindMapSaved is raised when a map is created or overwritten
type MindMapSaved struct {
	BaseEvent
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	NodeCount int    `json:"node_count"`
	Created   bool   `json:"created"`
}

// NewMindMapSaved creates a MindMapSaved event
func NewMindMapSaved(mapID, userID, name string, nodeCount, version int, created bool, timestamp time.Time) MindMapSaved {
	return MindMapSaved{
		BaseEvent: BaseEvent{
			AggregateID: mapID,
			EventType:   "mindmap.saved",
			Timestamp:   timestamp,
			Version:     version,
		},
		UserID:    userID,
		Name:      name,
		NodeCount: nodeCount,
		Created:   created,
	}
}

// MindMapDeleted is raised when a map is removed
type MindMapDeleted struct {
	BaseEvent
	UserID string `json:"user_id"`
}

// NewMindMapDeleted creates a MindMapDeleted event
func NewMindMapDeleted(mapID, userID string, timestamp time.Time) MindMapDeleted {
	return MindMapDeleted{
		BaseEvent: BaseEvent{
			AggregateID: mapID,
			EventType:   "mindmap.deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		UserID: userID,
	}
}
