package history

import "sort"

// Link role and field names used by the entities participating in history.
const (
	FieldValue       = "value"
	FieldDescription = "description"
	FieldDeleted     = "deleted"
	FieldName        = "name"
	FieldBaseType    = "baseType"

	LinkParent = "parent"
	LinkChild  = "child"
	LinkBook   = "book"
)

// Snapshot captures the full diffable state of an entity at one instant:
// its scalar fields and its outgoing link sets keyed by role.
// Snapshots are canonical: maps are always non-nil, link sets are sorted
// and roles with no peers are absent. Two snapshots of the same entity
// are diffable; see Diff and Apply.
type Snapshot struct {
	Fields map[string]string   `json:"fields"`
	Links  map[string][]string `json:"links"`
}

// NewSnapshot builds a canonical snapshot from field values and link sets.
// Inputs are copied; the caller keeps ownership of its maps.
func NewSnapshot(fields map[string]string, links map[string][]string) Snapshot {
	s := EmptySnapshot()
	for k, v := range fields {
		s.Fields[k] = v
	}
	for role, peers := range links {
		if len(peers) == 0 {
			continue
		}
		s.Links[role] = sortedSet(peers)
	}
	return s
}

// EmptySnapshot returns the snapshot of a not-yet-existing entity
func EmptySnapshot() Snapshot {
	return Snapshot{
		Fields: make(map[string]string),
		Links:  make(map[string][]string),
	}
}

// Clone returns a deep copy of the snapshot
func (s Snapshot) Clone() Snapshot {
	return NewSnapshot(s.Fields, s.Links)
}

// Field returns the value of a scalar field, or "" if absent
func (s Snapshot) Field(name string) string {
	return s.Fields[name]
}

// LinkSet returns the sorted peer ids of a link role
func (s Snapshot) LinkSet(role string) []string {
	peers := s.Links[role]
	out := make([]string, len(peers))
	copy(out, peers)
	return out
}

// sortedSet copies, deduplicates and sorts a peer id list
func sortedSet(peers []string) []string {
	seen := make(map[string]struct{}, len(peers))
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
