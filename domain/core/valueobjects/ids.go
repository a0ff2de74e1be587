package valueobjects

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// NodeID identifies a node inside one mind map. Editors mint their own
// identifiers, so any non-blank string without surrounding whitespace is
// accepted; NewNodeID produces a UUID for server-side creation.
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	if strings.TrimSpace(id) != id {
		return NodeID{}, errors.New("node ID cannot have surrounding whitespace")
	}
	return NodeID{value: id}, nil
}

// MustNodeID is NewNodeIDFromString for literals known to be valid.
func MustNodeID(id string) NodeID {
	nid, err := NewNodeIDFromString(id)
	if err != nil {
		panic(err)
	}
	return nid
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("NodeID must be a string")
	}
	id.value = s
	return nil
}

// MapID is the persistent identifier of a saved mind map
type MapID struct {
	value string
}

// NewMapID creates a new random MapID
func NewMapID() MapID {
	return MapID{value: uuid.New().String()}
}

// NewMapIDFromString creates a MapID from an existing string
func NewMapIDFromString(id string) (MapID, error) {
	if id == "" {
		return MapID{}, errors.New("map ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return MapID{}, errors.New("map ID must be a valid UUID")
	}
	return MapID{value: id}, nil
}

// String returns the string representation of the MapID
func (id MapID) String() string {
	return id.value
}

// Equals checks if two MapIDs are equal
func (id MapID) Equals(other MapID) bool {
	return id.value == other.value
}

// IsZero checks if the MapID is the zero value
func (id MapID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id MapID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}
