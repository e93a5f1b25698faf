package history

import "sort"

// DiffPayload is the structural difference between two snapshots of one
// entity: changed scalar fields (new values only), and the link peers
// added to and removed from each role. Unchanged fields and roles never
// appear, which keeps audit payloads minimal and makes no-op detection
// a cheap IsEmpty check.
type DiffPayload struct {
	FieldChanges map[string]string   `json:"field_changes"`
	AddedLinks   map[string][]string `json:"added_links"`
	RemovedLinks map[string][]string `json:"removed_links"`
}

// NewDiffPayload returns an empty payload with initialized maps
func NewDiffPayload() DiffPayload {
	return DiffPayload{
		FieldChanges: make(map[string]string),
		AddedLinks:   make(map[string][]string),
		RemovedLinks: make(map[string][]string),
	}
}

// Diff computes the payload that transforms snapshot before into after.
// Fields are fixed-shape per entity kind, so field removal does not occur;
// a field changed to the empty string is recorded as "".
func Diff(before, after Snapshot) DiffPayload {
	p := NewDiffPayload()

	for name, afterValue := range after.Fields {
		if before.Fields[name] != afterValue {
			p.FieldChanges[name] = afterValue
		}
	}

	for _, role := range linkRoles(before, after) {
		added := subtract(after.Links[role], before.Links[role])
		if len(added) > 0 {
			p.AddedLinks[role] = added
		}
		removed := subtract(before.Links[role], after.Links[role])
		if len(removed) > 0 {
			p.RemovedLinks[role] = removed
		}
	}

	return p
}

// Apply folds a payload into a base snapshot, producing the next snapshot.
// It is the exact inverse of Diff: Apply(Diff(a, b), a) == b.
func Apply(payload DiffPayload, base Snapshot) Snapshot {
	next := base.Clone()

	for name, value := range payload.FieldChanges {
		next.Fields[name] = value
	}

	for role, peers := range payload.AddedLinks {
		next.Links[role] = sortedSet(append(next.Links[role], peers...))
	}
	for role, peers := range payload.RemovedLinks {
		remaining := subtract(next.Links[role], peers)
		if len(remaining) == 0 {
			delete(next.Links, role)
			continue
		}
		next.Links[role] = remaining
	}

	return next
}

// IsEmpty reports whether the payload describes no change at all
func (p DiffPayload) IsEmpty() bool {
	return len(p.FieldChanges) == 0 && len(p.AddedLinks) == 0 && len(p.RemovedLinks) == 0
}

// Clone returns a deep copy of the payload
func (p DiffPayload) Clone() DiffPayload {
	out := NewDiffPayload()
	for k, v := range p.FieldChanges {
		out.FieldChanges[k] = v
	}
	for role, peers := range p.AddedLinks {
		out.AddedLinks[role] = sortedSet(peers)
	}
	for role, peers := range p.RemovedLinks {
		out.RemovedLinks[role] = sortedSet(peers)
	}
	return out
}

// linkRoles returns the union of roles present in either snapshot, sorted
func linkRoles(a, b Snapshot) []string {
	seen := make(map[string]struct{})
	for role := range a.Links {
		seen[role] = struct{}{}
	}
	for role := range b.Links {
		seen[role] = struct{}{}
	}
	roles := make([]string, 0, len(seen))
	for role := range seen {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// subtract returns the sorted set difference a − b
func subtract(a, b []string) []string {
	drop := make(map[string]struct{}, len(b))
	for _, p := range b {
		drop[p] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, p := range a {
		if _, ok := drop[p]; !ok {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return sortedSet(out)
}
