package commands

import (
	"errors"

	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
)

// SaveMindMapCommand creates the map when MapID is unknown for the user and
// overwrites it otherwise.
type SaveMindMapCommand struct {
	MapID    string
	UserID   string
	Name     string
	Document *aggregates.Document
}

// Validate validates the command
func (c SaveMindMapCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user ID is required")
	}
	if _, err := valueobjects.NewMapIDFromString(c.MapID); err != nil {
		return err
	}
	if c.Document == nil {
		return errors.New("document is required")
	}
	return nil
}

// DeleteMindMapCommand removes one of the user's maps
type DeleteMindMapCommand struct {
	MapID  string
	UserID string
}

// Validate validates the command
func (c DeleteMindMapCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user ID is required")
	}
	_, err := valueobjects.NewMapIDFromString(c.MapID)
	return err
}
