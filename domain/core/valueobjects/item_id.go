package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// ItemID is a value object identifying a reference book item.
// The identity is stable across versions of the item.
type ItemID struct {
	value string
}

// NewItemID creates a new random ItemID
func NewItemID() ItemID {
	return ItemID{value: uuid.New().String()}
}

// NewItemIDFromString creates an ItemID from an existing string
func NewItemIDFromString(id string) (ItemID, error) {
	if id == "" {
		return ItemID{}, errors.New("item ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return ItemID{}, errors.New("item ID must be a valid UUID")
	}
	return ItemID{value: id}, nil
}

// String returns the string representation of the ItemID
func (id ItemID) String() string {
	return id.value
}

// Equals checks if two ItemIDs are equal
func (id ItemID) Equals(other ItemID) bool {
	return id.value == other.value
}

// IsZero checks if the ItemID is the zero value
func (id ItemID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ItemID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ItemID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ItemID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
