package entities

import (
	"sort"
	"strconv"

	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
	pkgerrors "refdata-backend/pkg/errors"
)

// Entity classes recorded on history facts
const (
	ClassItem  = "refbook_item"
	ClassOwner = "aspect"
)

// Item is a node of a reference book tree: a versioned, optionally
// soft-deleted entity with a value, an optional description and exactly
// one parent (except the book root). Versions start at 0 and increment by
// one on every successful mutation; the version is the optimistic
// concurrency token callers echo back.
type Item struct {
	id          valueobjects.ItemID
	ownerID     string // set on roots only: the owning aspect
	value       string
	description string
	version     int
	deleted     bool
	parentID    valueobjects.ItemID
	childIDs    []valueobjects.ItemID // hydrated by the repository
}

// NewItem creates a leaf item under the given parent, at version 0
func NewItem(value, description string, parentID valueobjects.ItemID) (*Item, error) {
	if value == "" {
		return nil, pkgerrors.NewIllegalArgumentError("item value cannot be empty")
	}
	if parentID.IsZero() {
		return nil, pkgerrors.NewIllegalArgumentError("item parent cannot be empty")
	}
	return &Item{
		id:          valueobjects.NewItemID(),
		value:       value,
		description: description,
		parentID:    parentID,
	}, nil
}

// NewRoot creates a book root item for an owning aspect, at version 0
func NewRoot(name, description, ownerID string) (*Item, error) {
	if name == "" {
		return nil, pkgerrors.NewIllegalArgumentError("book name cannot be empty")
	}
	if ownerID == "" {
		return nil, pkgerrors.NewIllegalArgumentError("book owner cannot be empty")
	}
	return &Item{
		id:          valueobjects.NewItemID(),
		ownerID:     ownerID,
		value:       name,
		description: description,
	}, nil
}

// ReconstructItem rebuilds an item from repository data
func ReconstructItem(
	id valueobjects.ItemID,
	ownerID, value, description string,
	version int,
	deleted bool,
	parentID valueobjects.ItemID,
	childIDs []valueobjects.ItemID,
) *Item {
	return &Item{
		id:          id,
		ownerID:     ownerID,
		value:       value,
		description: description,
		version:     version,
		deleted:     deleted,
		parentID:    parentID,
		childIDs:    childIDs,
	}
}

// ID returns the item's stable identifier
func (i *Item) ID() valueobjects.ItemID { return i.id }

// OwnerID returns the owning aspect id; empty for non-root items
func (i *Item) OwnerID() string { return i.ownerID }

// Value returns the item's label
func (i *Item) Value() string { return i.value }

// Description returns the item's optional description
func (i *Item) Description() string { return i.description }

// Deleted reports whether the item is soft-deleted
func (i *Item) Deleted() bool { return i.deleted }

// ParentID returns the parent id; zero for roots
func (i *Item) ParentID() valueobjects.ItemID { return i.parentID }

// IsRoot reports whether the item is a book root
func (i *Item) IsRoot() bool { return i.parentID.IsZero() }

// ChildIDs returns the hydrated child ids
func (i *Item) ChildIDs() []valueobjects.ItemID {
	out := make([]valueobjects.ItemID, len(i.childIDs))
	copy(out, i.childIDs)
	return out
}

// Update replaces the item's value and description, bumping the version.
// No-op detection and sibling uniqueness are the service's concern; the
// entity only guards its own lifecycle.
func (i *Item) Update(value, description string) error {
	if i.deleted {
		return pkgerrors.NewRemovedError(i.id.String())
	}
	if value == "" {
		return pkgerrors.NewIllegalArgumentError("item value cannot be empty")
	}
	i.value = value
	i.description = description
	i.version++
	return nil
}

// MarkDeleted soft-deletes the item. The item is preserved for audit and
// no further mutation is permitted.
func (i *Item) MarkDeleted() error {
	if i.deleted {
		return pkgerrors.NewRemovedError(i.id.String())
	}
	i.deleted = true
	i.version++
	return nil
}

// MoveTo reparents the item, bumping the version
func (i *Item) MoveTo(parentID valueobjects.ItemID) error {
	if i.deleted {
		return pkgerrors.NewRemovedError(i.id.String())
	}
	if i.IsRoot() {
		return pkgerrors.NewIllegalArgumentError("book root cannot be moved")
	}
	if parentID.IsZero() {
		return pkgerrors.NewIllegalArgumentError("move target cannot be empty")
	}
	i.parentID = parentID
	i.version++
	return nil
}

// AttachChild records a new child in the hydrated child set, bumping the
// version: a node's live child set is part of its versioned state.
func (i *Item) AttachChild(childID valueobjects.ItemID) {
	i.childIDs = append(i.childIDs, childID)
	i.version++
}

// DetachChild drops a child from the hydrated child set, bumping the version
func (i *Item) DetachChild(childID valueobjects.ItemID) {
	kept := i.childIDs[:0]
	for _, id := range i.childIDs {
		if !id.Equals(childID) {
			kept = append(kept, id)
		}
	}
	i.childIDs = kept
	i.version++
}

// EntityID implements history.Aware
func (i *Item) EntityID() string { return i.id.String() }

// EntityClass implements history.Aware
func (i *Item) EntityClass() string { return ClassItem }

// Version implements history.Aware
func (i *Item) Version() int { return i.version }

// CurrentSnapshot implements history.Aware
func (i *Item) CurrentSnapshot() history.Snapshot {
	links := map[string][]string{}
	if !i.parentID.IsZero() {
		links[history.LinkParent] = []string{i.parentID.String()}
	}
	if len(i.childIDs) > 0 {
		children := make([]string, 0, len(i.childIDs))
		for _, id := range i.childIDs {
			children = append(children, id.String())
		}
		sort.Strings(children)
		links[history.LinkChild] = children
	}
	return history.NewSnapshot(map[string]string{
		history.FieldValue:       i.value,
		history.FieldDescription: i.description,
		history.FieldDeleted:     strconv.FormatBool(i.deleted),
	}, links)
}
