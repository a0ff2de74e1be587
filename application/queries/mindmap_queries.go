package queries

import (
	"errors"

	"github.com/google/uuid"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
)

// GetMindMapQuery fetches one of the user's maps
type GetMindMapQuery struct {
	UserID string
	MapID  string
}

// Validate validates the query
func (q GetMindMapQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	_, err := valueobjects.NewMapIDFromString(q.MapID)
	return err
}

// ListMindMapsQuery lists the user's maps, most recently updated first
type ListMindMapsQuery struct {
	UserID string
}

// Validate validates the query
func (q ListMindMapsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// GetSessionStateQuery returns the flags and document of an editor session
type GetSessionStateQuery struct {
	UserID    string
	SessionID string
}

// Validate validates the query
func (q GetSessionStateQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if _, err := uuid.Parse(q.SessionID); err != nil {
		return errors.New("session ID must be a UUID")
	}
	return nil
}
