package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"refdata-backend/application/ports"
	"refdata-backend/domain/core/entities"
	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
	"refdata-backend/infrastructure/persistence/memory"
	pkgerrors "refdata-backend/pkg/errors"
)

func newHistoryFixture(t *testing.T) (*HistoryService, ports.Store, HistoryContext) {
	t.Helper()
	store := memory.NewStore()
	svc := NewHistoryService(store, zap.NewNop())

	actor, err := valueobjects.NewActor("user-1", "admin")
	require.NoError(t, err)
	require.NoError(t, store.Execute(context.Background(), func(tx ports.Tx) error {
		return tx.SaveActor(actor)
	}))
	return svc, store, NewHistoryContext(actor)
}

func newLeaf(t *testing.T, value string) *entities.Item {
	t.Helper()
	item, err := entities.NewItem(value, "", valueobjects.NewItemID())
	require.NoError(t, err)
	return item
}

func TestFactBuilders(t *testing.T) {
	svc, _, hc := newHistoryFixture(t)
	item := newLeaf(t, "alpha")

	t.Run("create fact diffs against emptiness", func(t *testing.T) {
		f := svc.CreateFact(hc, item)
		assert.Equal(t, history.EventTypeCreate, f.Event.Type)
		assert.Equal(t, 0, f.Event.Version)
		assert.Equal(t, item.EntityID(), f.Event.EntityID)
		assert.Equal(t, entities.ClassItem, f.Event.EntityClass)
		assert.Equal(t, "user-1", f.Event.ActorID)
		assert.Equal(t, hc.SessionID, f.Event.SessionID)
		assert.Equal(t, item.CurrentSnapshot(), history.Apply(f.Payload, history.EmptySnapshot()))
	})

	t.Run("update fact carries only the change", func(t *testing.T) {
		before := item.CurrentSnapshot()
		require.NoError(t, item.Update("beta", ""))
		f := svc.UpdateFact(hc, item, before)
		assert.Equal(t, history.EventTypeUpdate, f.Event.Type)
		assert.Equal(t, 1, f.Event.Version)
		assert.Equal(t, map[string]string{history.FieldValue: "beta"}, f.Payload.FieldChanges)
		assert.Empty(t, f.Payload.AddedLinks)
	})

	t.Run("soft delete fact records the flag flip", func(t *testing.T) {
		before := item.CurrentSnapshot()
		require.NoError(t, item.MarkDeleted())
		f := svc.SoftDeleteFact(hc, item, before)
		assert.Equal(t, history.EventTypeSoftDelete, f.Event.Type)
		assert.Equal(t, 2, f.Event.Version)
		assert.Equal(t, "true", f.Payload.FieldChanges[history.FieldDeleted])
	})

	t.Run("delete fact strips every link past the last version", func(t *testing.T) {
		f := svc.DeleteFact(hc, item)
		assert.Equal(t, history.EventTypeDelete, f.Event.Type)
		assert.Equal(t, item.Version()+1, f.Event.Version)
		assert.NotEmpty(t, f.Payload.RemovedLinks[history.LinkParent])
		assert.True(t, history.Apply(f.Payload, item.CurrentSnapshot()).LinkSet(history.LinkParent) == nil)
	})
}

func TestStoreFact_RefusesMissingActor(t *testing.T) {
	svc, store, _ := newHistoryFixture(t)
	item := newLeaf(t, "alpha")

	hc := HistoryContext{SessionID: "s-1"}
	err := store.Execute(context.Background(), func(tx ports.Tx) error {
		_, err := svc.StoreFact(tx, svc.CreateFact(hc, item))
		return err
	})
	assert.True(t, pkgerrors.IsIllegalState(err), "got %v", err)
}

func TestTrackUpdate(t *testing.T) {
	svc, store, hc := newHistoryFixture(t)
	item := newLeaf(t, "alpha")

	var stored *history.Fact
	require.NoError(t, store.Execute(context.Background(), func(tx ports.Tx) error {
		var err error
		stored, err = svc.TrackUpdate(tx, hc, item, func() error {
			return item.Update("beta", "note")
		})
		return err
	}))

	assert.Positive(t, stored.Seq)
	assert.Equal(t, 1, stored.Event.Version)
	assert.Equal(t, map[string]string{
		history.FieldValue:       "beta",
		history.FieldDescription: "note",
	}, stored.Payload.FieldChanges)

	// a failing mutation appends nothing
	err := store.Execute(context.Background(), func(tx ports.Tx) error {
		_, trackErr := svc.TrackUpdate(tx, hc, item, func() error {
			return errors.New("boom")
		})
		return trackErr
	})
	require.Error(t, err)
	facts, err := svc.TimelineForEntity(context.Background(), item.EntityID())
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

func TestTrackUpdates_AppendsInInputOrder(t *testing.T) {
	svc, store, hc := newHistoryFixture(t)
	parent, err := entities.NewRoot("Book", "", "aspect-1")
	require.NoError(t, err)
	child := newLeaf(t, "alpha")
	childID, err := valueobjects.NewItemIDFromString(child.EntityID())
	require.NoError(t, err)

	var facts []*history.Fact
	require.NoError(t, store.Execute(context.Background(), func(tx ports.Tx) error {
		facts, err = svc.TrackUpdates(tx, hc,
			[]history.Aware{parent, child},
			func() error {
				parent.AttachChild(childID)
				return child.MoveTo(parent.ID())
			})
		return err
	}))

	require.Len(t, facts, 2)
	assert.Equal(t, parent.EntityID(), facts[0].Event.EntityID)
	assert.Equal(t, child.EntityID(), facts[1].Event.EntityID)
	assert.Less(t, facts[0].Seq, facts[1].Seq)
	assert.Equal(t, []string{child.EntityID()}, facts[0].Payload.AddedLinks[history.LinkChild])
}

func TestTimelineForClasses(t *testing.T) {
	svc, store, hc := newHistoryFixture(t)
	item := newLeaf(t, "alpha")

	require.NoError(t, store.Execute(context.Background(), func(tx ports.Tx) error {
		if _, err := svc.StoreFact(tx, svc.CreateFact(hc, item)); err != nil {
			return err
		}
		before := item.CurrentSnapshot()
		if err := item.Update("beta", ""); err != nil {
			return err
		}
		_, err := svc.StoreFact(tx, svc.UpdateFact(hc, item, before))
		return err
	}))

	t.Run("resolves actor names in one batch", func(t *testing.T) {
		facts, err := svc.TimelineForClasses(context.Background(), []string{entities.ClassItem})
		require.NoError(t, err)
		require.Len(t, facts, 2)
		for _, f := range facts {
			assert.Equal(t, "admin", f.Event.ActorName)
		}
	})

	t.Run("empty class filter yields nothing", func(t *testing.T) {
		facts, err := svc.TimelineForClasses(context.Background(), []string{"unknown"})
		require.NoError(t, err)
		assert.Empty(t, facts)
	})

	t.Run("an empty payload is corruption", func(t *testing.T) {
		require.NoError(t, store.Execute(context.Background(), func(tx ports.Tx) error {
			_, err := tx.AppendFact(&history.Fact{
				Event: history.Event{
					EntityID:    item.EntityID(),
					EntityClass: entities.ClassItem,
					Type:        history.EventTypeUpdate,
					Timestamp:   time.Now().UTC(),
					ActorID:     "user-1",
					SessionID:   "s-corrupt",
				},
			})
			return err
		}))

		_, err := svc.TimelineForClasses(context.Background(), []string{entities.ClassItem})
		assert.True(t, pkgerrors.IsIllegalState(err), "got %v", err)
	})
}

type recordingArchive struct {
	facts []*history.Fact
	err   error
}

func (a *recordingArchive) Archive(_ context.Context, facts []*history.Fact) error {
	a.facts = append(a.facts, facts...)
	return a.err
}

func (a *recordingArchive) FactsForEntity(context.Context, string) ([]*history.Fact, error) {
	return nil, nil
}

func (a *recordingArchive) FactsForClass(context.Context, string, int) ([]*history.Fact, error) {
	return nil, nil
}

func TestArchiveCommitted(t *testing.T) {
	svc, _, hc := newHistoryFixture(t)
	item := newLeaf(t, "alpha")
	fact := svc.CreateFact(hc, item)

	t.Run("no archive attached is a no-op", func(t *testing.T) {
		svc.ArchiveCommitted(context.Background(), []*history.Fact{fact})
	})

	t.Run("forwards committed facts", func(t *testing.T) {
		archive := &recordingArchive{}
		svc.AttachArchive(archive)
		svc.ArchiveCommitted(context.Background(), []*history.Fact{fact})
		require.Len(t, archive.facts, 1)
		assert.Equal(t, fact, archive.facts[0])
	})

	t.Run("archive failure is swallowed", func(t *testing.T) {
		svc.AttachArchive(&recordingArchive{err: errors.New("throttled")})
		svc.ArchiveCommitted(context.Background(), []*history.Fact{fact})
	})

	t.Run("empty batch is skipped", func(t *testing.T) {
		archive := &recordingArchive{}
		svc.AttachArchive(archive)
		svc.ArchiveCommitted(context.Background(), nil)
		assert.Empty(t, archive.facts)
	})
}
