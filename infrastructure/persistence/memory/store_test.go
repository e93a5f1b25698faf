package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refdata-backend/application/ports"
	"refdata-backend/domain/core/entities"
	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
)

func saveRoot(t *testing.T, store *Store, ownerID, name string) valueobjects.ItemID {
	t.Helper()
	root, err := entities.NewRoot(name, "", ownerID)
	require.NoError(t, err)
	require.NoError(t, store.Execute(context.Background(), func(tx ports.Tx) error {
		return tx.SaveItem(root)
	}))
	return root.ID()
}

func saveLeaf(t *testing.T, store *Store, parentID valueobjects.ItemID, value string) valueobjects.ItemID {
	t.Helper()
	leaf, err := entities.NewItem(value, "", parentID)
	require.NoError(t, err)
	require.NoError(t, store.Execute(context.Background(), func(tx ports.Tx) error {
		return tx.SaveItem(leaf)
	}))
	return leaf.ID()
}

func TestExecute_AbortDiscardsWrites(t *testing.T) {
	store := NewStore()
	rootID := saveRoot(t, store, "aspect-1", "Book")

	boom := errors.New("boom")
	err := store.Execute(context.Background(), func(tx ports.Tx) error {
		leaf, err := entities.NewItem("alpha", "", rootID)
		require.NoError(t, err)
		require.NoError(t, tx.SaveItem(leaf))
		require.NoError(t, tx.DeleteItem(rootID))
		_, err = tx.AppendFact(&history.Fact{Event: history.Event{EntityID: "x"}})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.View(context.Background(), func(tx ports.Tx) error {
		root, err := tx.Item(rootID)
		require.NoError(t, err)
		require.NotNil(t, root, "aborted delete must not stick")
		assert.Empty(t, root.ChildIDs(), "aborted insert must not stick")

		facts, err := tx.FactsForEntity("x")
		require.NoError(t, err)
		assert.Empty(t, facts)
		return nil
	}))
}

func TestExecute_CancelledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Execute(ctx, func(tx ports.Tx) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestItem_MissingIsNilNil(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.View(context.Background(), func(tx ports.Tx) error {
		item, err := tx.Item(valueobjects.NewItemID())
		assert.NoError(t, err)
		assert.Nil(t, item)

		owner, err := tx.Owner("missing")
		assert.NoError(t, err)
		assert.Nil(t, owner)

		root, err := tx.RootByOwner("missing")
		assert.NoError(t, err)
		assert.Nil(t, root)
		return nil
	}))
}

func TestItem_HydratesRelations(t *testing.T) {
	store := NewStore()
	rootID := saveRoot(t, store, "aspect-1", "Book")
	aID := saveLeaf(t, store, rootID, "a")
	saveLeaf(t, store, rootID, "b")

	require.NoError(t, store.View(context.Background(), func(tx ports.Tx) error {
		root, err := tx.Item(rootID)
		require.NoError(t, err)
		require.NotNil(t, root)
		assert.True(t, root.IsRoot())
		assert.Len(t, root.ChildIDs(), 2)

		children, err := tx.ChildrenOf(rootID)
		require.NoError(t, err)
		require.Len(t, children, 2)

		a, err := tx.Item(aID)
		require.NoError(t, err)
		assert.True(t, a.ParentID().Equals(rootID))
		return nil
	}))
}

func TestRootsAndRootByOwner(t *testing.T) {
	store := NewStore()
	saveRoot(t, store, "aspect-1", "First")
	secondID := saveRoot(t, store, "aspect-2", "Second")

	require.NoError(t, store.View(context.Background(), func(tx ports.Tx) error {
		roots, err := tx.Roots()
		require.NoError(t, err)
		assert.Len(t, roots, 2)

		root, err := tx.RootByOwner("aspect-2")
		require.NoError(t, err)
		require.NotNil(t, root)
		assert.True(t, root.ID().Equals(secondID))
		return nil
	}))
}

func TestReferences(t *testing.T) {
	store := NewStore()
	rootID := saveRoot(t, store, "aspect-1", "Book")
	leafID := saveLeaf(t, store, rootID, "a")
	ctx := context.Background()

	require.NoError(t, store.Execute(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.AddReference("ext-b", leafID))
		require.NoError(t, tx.AddReference("ext-a", leafID))
		require.NoError(t, tx.AddReference("ext-a", leafID))
		return nil
	}))

	require.NoError(t, store.View(ctx, func(tx ports.Tx) error {
		refs, err := tx.ReferrersOf(leafID)
		require.NoError(t, err)
		assert.Equal(t, []string{"ext-a", "ext-b"}, refs, "sorted and deduplicated")
		return nil
	}))

	require.NoError(t, store.Execute(ctx, func(tx ports.Tx) error {
		return tx.RemoveReference("ext-a", leafID)
	}))
	require.NoError(t, store.View(ctx, func(tx ports.Tx) error {
		refs, err := tx.ReferrersOf(leafID)
		require.NoError(t, err)
		assert.Equal(t, []string{"ext-b"}, refs)
		return nil
	}))

	// hard-deleting the item drops its reference set too
	require.NoError(t, store.Execute(ctx, func(tx ports.Tx) error {
		return tx.DeleteItem(leafID)
	}))
	require.NoError(t, store.View(ctx, func(tx ports.Tx) error {
		refs, err := tx.ReferrersOf(leafID)
		require.NoError(t, err)
		assert.Empty(t, refs)
		return nil
	}))
}

func TestAppendFact_SequencesAndOrdering(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	fact := func(entityID, class string, ts time.Time) *history.Fact {
		return &history.Fact{
			Event: history.Event{
				EntityID:    entityID,
				EntityClass: class,
				Timestamp:   ts,
				Type:        history.EventTypeUpdate,
				ActorID:     "user-1",
			},
			Payload: history.DiffPayload{FieldChanges: map[string]string{history.FieldValue: "v"}},
		}
	}

	var seqs []int64
	require.NoError(t, store.Execute(ctx, func(tx ports.Tx) error {
		for _, f := range []*history.Fact{
			fact("e1", "refbook_item", base.Add(time.Second)),
			fact("e1", "refbook_item", base), // earlier timestamp, later seq
			fact("e2", "aspect", base),
		} {
			stored, err := tx.AppendFact(f)
			require.NoError(t, err)
			seqs = append(seqs, stored.Seq)
		}
		return nil
	}))
	assert.Equal(t, []int64{1, 2, 3}, seqs)

	require.NoError(t, store.View(ctx, func(tx ports.Tx) error {
		facts, err := tx.FactsForEntity("e1")
		require.NoError(t, err)
		require.Len(t, facts, 2)
		assert.Equal(t, int64(2), facts[0].Seq, "timestamp wins over append order")
		assert.Equal(t, int64(1), facts[1].Seq)

		byClass, err := tx.FactsForClasses([]string{"aspect"})
		require.NoError(t, err)
		require.Len(t, byClass, 1)
		assert.Equal(t, "e2", byClass[0].Event.EntityID)
		return nil
	}))
}

func TestAppendFact_StoredCopyIsIsolated(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	f := &history.Fact{
		Event:   history.Event{EntityID: "e1", EntityClass: "refbook_item", ActorID: "user-1"},
		Payload: history.DiffPayload{FieldChanges: map[string]string{history.FieldValue: "v"}},
	}
	require.NoError(t, store.Execute(ctx, func(tx ports.Tx) error {
		stored, err := tx.AppendFact(f)
		require.NoError(t, err)
		stored.Payload.FieldChanges[history.FieldValue] = "mutated"
		return nil
	}))

	require.NoError(t, store.View(ctx, func(tx ports.Tx) error {
		facts, err := tx.FactsForEntity("e1")
		require.NoError(t, err)
		require.Len(t, facts, 1)
		assert.Equal(t, "v", facts[0].Payload.FieldChanges[history.FieldValue])
		return nil
	}))
}

func TestActors(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	alice, err := valueobjects.NewActor("id-1", "alice")
	require.NoError(t, err)
	bob, err := valueobjects.NewActor("id-2", "bob")
	require.NoError(t, err)

	require.NoError(t, store.Execute(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.SaveActor(alice))
		return tx.SaveActor(bob)
	}))

	require.NoError(t, store.View(ctx, func(tx ports.Tx) error {
		found, ok, err := tx.ActorByName("bob")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "id-2", found.ID())

		_, ok, err = tx.ActorByName("carol")
		require.NoError(t, err)
		assert.False(t, ok)

		names, err := tx.ActorNames([]string{"id-1", "id-2", "id-3"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"id-1": "alice", "id-2": "bob"}, names)
		return nil
	}))
}
