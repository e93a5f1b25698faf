package history

import "time"

// EventType classifies what happened to an entity
type EventType string

const (
	EventTypeCreate     EventType = "create"
	EventTypeUpdate     EventType = "update"
	EventTypeSoftDelete EventType = "soft_delete"
	EventTypeDelete     EventType = "delete"
)

// Event is the metadata of one history fact. Immutable once written.
// Version is the entity version after the event took effect: the Nth fact
// of an entity carries version N-1, counting from its creation.
type Event struct {
	EntityID    string    `json:"entity_id"`
	EntityClass string    `json:"entity_class"`
	Version     int       `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	ActorID     string    `json:"actor_id"`
	ActorName   string    `json:"actor_name,omitempty"`
	SessionID   string    `json:"session_id"`
}

// Fact is the atomic unit appended to the ledger: event metadata plus the
// diff payload. Seq is the ledger-local sequence number assigned at append
// time; facts sharing a timestamp are ordered by Seq, never re-ordered by
// wall clock alone.
type Fact struct {
	Seq     int64       `json:"seq"`
	Event   Event       `json:"event"`
	Payload DiffPayload `json:"payload"`
}

// Clone returns a deep copy of the fact
func (f *Fact) Clone() *Fact {
	return &Fact{
		Seq:     f.Seq,
		Event:   f.Event,
		Payload: f.Payload.Clone(),
	}
}

// Aware is implemented by every mutable entity kind that participates in
// history. It exposes just enough state for the ledger to diff and
// attribute facts.
type Aware interface {
	EntityID() string
	EntityClass() string
	Version() int
	CurrentSnapshot() Snapshot
}
