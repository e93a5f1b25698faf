package valueobjects

import "errors"

// Actor is an opaque reference to the user a mutation is attributed to.
// The core never manages users; it only records who did what.
type Actor struct {
	id   string
	name string
}

// NewActor creates an Actor from a resolved identity
func NewActor(id, name string) (Actor, error) {
	if id == "" {
		return Actor{}, errors.New("actor ID cannot be empty")
	}
	return Actor{id: id, name: name}, nil
}

// ID returns the opaque actor identifier
func (a Actor) ID() string {
	return a.id
}

// Name returns the display name used in audit views
func (a Actor) Name() string {
	return a.name
}

// IsZero checks if the Actor is the zero value
func (a Actor) IsZero() bool {
	return a.id == ""
}
