package entities

import (
	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
	pkgerrors "refdata-backend/pkg/errors"
)

// BaseTypeText is the only owner base type a reference book may attach to
const BaseTypeText = "Text"

// Owner is the core's view of the external entity (an aspect) a book is
// attached to. The owner's lifecycle is managed elsewhere in the catalog;
// this core only reads it, flips its book link, and audits that change —
// the "has a book" side effect is externally visible and must leave a fact.
type Owner struct {
	id       string
	name     string
	baseType string
	deleted  bool
	version  int
	bookID   valueobjects.ItemID
}

// ReconstructOwner rebuilds an owner from repository data
func ReconstructOwner(id, name, baseType string, deleted bool, version int, bookID valueobjects.ItemID) *Owner {
	return &Owner{
		id:       id,
		name:     name,
		baseType: baseType,
		deleted:  deleted,
		version:  version,
		bookID:   bookID,
	}
}

// ID returns the opaque owner identifier
func (o *Owner) ID() string { return o.id }

// Name returns the owner's display name
func (o *Owner) Name() string { return o.name }

// BaseType returns the owner's value base type
func (o *Owner) BaseType() string { return o.baseType }

// Deleted reports whether the owner itself is removed
func (o *Owner) Deleted() bool { return o.deleted }

// IsTextual reports whether the owner can carry a reference book
func (o *Owner) IsTextual() bool { return o.baseType == BaseTypeText }

// HasBook reports whether a book is already attached
func (o *Owner) HasBook() bool { return !o.bookID.IsZero() }

// BookID returns the attached book root id, zero if none
func (o *Owner) BookID() valueobjects.ItemID { return o.bookID }

// AttachBook links a book root to the owner, bumping the version
func (o *Owner) AttachBook(bookID valueobjects.ItemID) error {
	if o.HasBook() {
		return pkgerrors.NewBookExistsError(o.id)
	}
	o.bookID = bookID
	o.version++
	return nil
}

// DetachBook drops the book link, bumping the version
func (o *Owner) DetachBook() {
	o.bookID = valueobjects.ItemID{}
	o.version++
}

// EntityID implements history.Aware
func (o *Owner) EntityID() string { return o.id }

// EntityClass implements history.Aware
func (o *Owner) EntityClass() string { return ClassOwner }

// Version implements history.Aware
func (o *Owner) Version() int { return o.version }

// CurrentSnapshot implements history.Aware
func (o *Owner) CurrentSnapshot() history.Snapshot {
	links := map[string][]string{}
	if o.HasBook() {
		links[history.LinkBook] = []string{o.bookID.String()}
	}
	return history.NewSnapshot(map[string]string{
		history.FieldName:     o.name,
		history.FieldBaseType: o.baseType,
	}, links)
}
