package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
	pkgerrors "refdata-backend/pkg/errors"
)

func TestNewItem(t *testing.T) {
	parent := valueobjects.NewItemID()

	tests := []struct {
		name     string
		value    string
		parentID valueobjects.ItemID
		wantErr  bool
	}{
		{name: "valid leaf", value: "alpha", parentID: parent},
		{name: "empty value", value: "", parentID: parent, wantErr: true},
		{name: "missing parent", value: "alpha", parentID: valueobjects.ItemID{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewItem(tt.value, "desc", tt.parentID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, item.Version())
			assert.False(t, item.Deleted())
			assert.False(t, item.IsRoot())
			assert.Equal(t, tt.parentID, item.ParentID())
		})
	}
}

func TestNewRoot(t *testing.T) {
	root, err := NewRoot("Currencies", "", "aspect-1")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, "aspect-1", root.OwnerID())
	assert.Equal(t, 0, root.Version())

	_, err = NewRoot("", "", "aspect-1")
	assert.Error(t, err)
	_, err = NewRoot("Currencies", "", "")
	assert.Error(t, err)
}

func TestItem_UpdateBumpsVersion(t *testing.T) {
	item, err := NewItem("alpha", "", valueobjects.NewItemID())
	require.NoError(t, err)

	require.NoError(t, item.Update("beta", "note"))
	assert.Equal(t, 1, item.Version())
	assert.Equal(t, "beta", item.Value())
	assert.Equal(t, "note", item.Description())

	require.NoError(t, item.Update("gamma", "note"))
	assert.Equal(t, 2, item.Version())
}

func TestItem_MutationAfterSoftDelete(t *testing.T) {
	item, err := NewItem("alpha", "", valueobjects.NewItemID())
	require.NoError(t, err)
	require.NoError(t, item.MarkDeleted())
	assert.True(t, item.Deleted())
	assert.Equal(t, 1, item.Version())

	assert.True(t, pkgerrors.IsRemoved(item.Update("beta", "")))
	assert.True(t, pkgerrors.IsRemoved(item.MarkDeleted()))
	assert.True(t, pkgerrors.IsRemoved(item.MoveTo(valueobjects.NewItemID())))
	assert.Equal(t, 1, item.Version())
}

func TestItem_MoveTo(t *testing.T) {
	item, err := NewItem("alpha", "", valueobjects.NewItemID())
	require.NoError(t, err)
	target := valueobjects.NewItemID()

	require.NoError(t, item.MoveTo(target))
	assert.Equal(t, target, item.ParentID())
	assert.Equal(t, 1, item.Version())

	root, err := NewRoot("Book", "", "aspect-1")
	require.NoError(t, err)
	assert.Error(t, root.MoveTo(target))
}

func TestItem_AttachDetachChild(t *testing.T) {
	root, err := NewRoot("Book", "", "aspect-1")
	require.NoError(t, err)
	c1 := valueobjects.NewItemID()
	c2 := valueobjects.NewItemID()

	root.AttachChild(c1)
	root.AttachChild(c2)
	assert.Equal(t, 2, root.Version())
	assert.Len(t, root.ChildIDs(), 2)

	root.DetachChild(c1)
	assert.Equal(t, 3, root.Version())
	require.Len(t, root.ChildIDs(), 1)
	assert.True(t, root.ChildIDs()[0].Equals(c2))
}

func TestItem_CurrentSnapshot(t *testing.T) {
	parent := valueobjects.NewItemID()
	item, err := NewItem("alpha", "note", parent)
	require.NoError(t, err)
	child := valueobjects.NewItemID()
	item.AttachChild(child)

	snap := item.CurrentSnapshot()
	assert.Equal(t, "alpha", snap.Field(history.FieldValue))
	assert.Equal(t, "note", snap.Field(history.FieldDescription))
	assert.Equal(t, "false", snap.Field(history.FieldDeleted))
	assert.Equal(t, []string{parent.String()}, snap.LinkSet(history.LinkParent))
	assert.Equal(t, []string{child.String()}, snap.LinkSet(history.LinkChild))

	root, err := NewRoot("Book", "", "aspect-1")
	require.NoError(t, err)
	_, hasParent := root.CurrentSnapshot().Links[history.LinkParent]
	assert.False(t, hasParent)
}

func TestOwner_AttachDetachBook(t *testing.T) {
	owner := ReconstructOwner("aspect-1", "Temperature", BaseTypeText, false, 0, valueobjects.ItemID{})
	require.True(t, owner.IsTextual())
	require.False(t, owner.HasBook())

	bookID := valueobjects.NewItemID()
	require.NoError(t, owner.AttachBook(bookID))
	assert.True(t, owner.HasBook())
	assert.Equal(t, 1, owner.Version())

	err := owner.AttachBook(valueobjects.NewItemID())
	assert.True(t, pkgerrors.IsAlreadyExists(err))

	owner.DetachBook()
	assert.False(t, owner.HasBook())
	assert.Equal(t, 2, owner.Version())
}

func TestOwner_CurrentSnapshot(t *testing.T) {
	bookID := valueobjects.NewItemID()
	owner := ReconstructOwner("aspect-1", "Temperature", BaseTypeText, false, 1, bookID)

	snap := owner.CurrentSnapshot()
	assert.Equal(t, "Temperature", snap.Field(history.FieldName))
	assert.Equal(t, BaseTypeText, snap.Field(history.FieldBaseType))
	assert.Equal(t, []string{bookID.String()}, snap.LinkSet(history.LinkBook))
}
