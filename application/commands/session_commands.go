package commands

import (
	"errors"

	"github.com/google/uuid"
	"github.com/onokeee/mindmap/domain/core/aggregates"
	"github.com/onokeee/mindmap/domain/core/valueobjects"
)

// sessionRef identifies a session on behalf of its owner
type sessionRef struct {
	SessionID string
	UserID    string
}

func (r sessionRef) validate() error {
	if r.UserID == "" {
		return errors.New("user ID is required")
	}
	if _, err := uuid.Parse(r.SessionID); err != nil {
		return errors.New("session ID must be a UUID")
	}
	return nil
}

// OpenSessionCommand starts an editor session, empty or on a stored map
type OpenSessionCommand struct {
	SessionID string
	UserID    string
	MapID     string
}

// Validate validates the command
func (c OpenSessionCommand) Validate() error {
	if err := (sessionRef{c.SessionID, c.UserID}).validate(); err != nil {
		return err
	}
	if c.MapID != "" {
		if _, err := valueobjects.NewMapIDFromString(c.MapID); err != nil {
			return err
		}
	}
	return nil
}

// RecordEditCommand replaces the live document and records one undo step
type RecordEditCommand struct {
	SessionID string
	UserID    string
	Document  *aggregates.Document
}

// Validate validates the command
func (c RecordEditCommand) Validate() error {
	if err := (sessionRef{c.SessionID, c.UserID}).validate(); err != nil {
		return err
	}
	if c.Document == nil {
		return errors.New("document is required")
	}
	return nil
}

// UndoCommand steps a session back
type UndoCommand struct {
	SessionID string
	UserID    string
}

// Validate validates the command
func (c UndoCommand) Validate() error {
	return sessionRef{c.SessionID, c.UserID}.validate()
}

// RedoCommand steps a session forward
type RedoCommand struct {
	SessionID string
	UserID    string
}

// Validate validates the command
func (c RedoCommand) Validate() error {
	return sessionRef{c.SessionID, c.UserID}.validate()
}

// SaveSessionCommand persists the live document of a session. An empty Name
// keeps the bound map's name.
type SaveSessionCommand struct {
	SessionID string
	UserID    string
	Name      string
}

// Validate validates the command
func (c SaveSessionCommand) Validate() error {
	return sessionRef{c.SessionID, c.UserID}.validate()
}

// CloseSessionCommand discards a session and its history
type CloseSessionCommand struct {
	SessionID string
	UserID    string
}

// Validate validates the command
func (c CloseSessionCommand) Validate() error {
	return sessionRef{c.SessionID, c.UserID}.validate()
}
