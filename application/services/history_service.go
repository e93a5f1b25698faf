package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"refdata-backend/application/ports"
	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
	pkgerrors "refdata-backend/pkg/errors"
)

// HistoryContext groups the attribution shared by every fact of one
// logical operation: the acting user and a session id correlating the
// facts the operation produced.
type HistoryContext struct {
	Actor     valueobjects.Actor
	SessionID string
}

// HistoryStep is one reconstructed step of an entity's timeline: the
// event, the snapshots either side of it and the diff between them
type HistoryStep struct {
	Event  history.Event
	Before history.Snapshot
	After  history.Snapshot
	Diff   history.DiffPayload
}

// HistoryService owns the append-only fact ledger: it builds facts from
// entity mutations, appends them inside the caller's transaction and
// reconstructs timelines for audit views.
type HistoryService struct {
	store   ports.Store
	archive ports.FactArchive
	logger  *zap.Logger
	now     func() time.Time
}

// NewHistoryService creates a history service over the given store
func NewHistoryService(store ports.Store, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// AttachArchive enables best-effort replication of committed facts to an
// external archive
func (s *HistoryService) AttachArchive(archive ports.FactArchive) {
	s.archive = archive
}

// NewHistoryContext opens an attribution context for one operation
func NewHistoryContext(a valueobjects.Actor) HistoryContext {
	return HistoryContext{
		Actor:     a,
		SessionID: uuid.New().String(),
	}
}

// CreateFact builds the creation fact of a freshly constructed entity.
// The payload is the full initial state, diffed against emptiness, so a
// timeline replayed from an empty snapshot starts correctly.
func (s *HistoryService) CreateFact(hc HistoryContext, e history.Aware) *history.Fact {
	payload := history.Diff(history.EmptySnapshot(), e.CurrentSnapshot())
	return s.newFact(history.EventTypeCreate, hc, e.EntityID(), e.EntityClass(), e.Version(), payload)
}

// UpdateFact builds an update fact from the snapshot taken before the
// mutation and the entity's current state
func (s *HistoryService) UpdateFact(hc HistoryContext, e history.Aware, before history.Snapshot) *history.Fact {
	payload := history.Diff(before, e.CurrentSnapshot())
	return s.newFact(history.EventTypeUpdate, hc, e.EntityID(), e.EntityClass(), e.Version(), payload)
}

// SoftDeleteFact builds a soft-delete fact from the snapshot taken
// before the entity was marked deleted
func (s *HistoryService) SoftDeleteFact(hc HistoryContext, e history.Aware, before history.Snapshot) *history.Fact {
	payload := history.Diff(before, e.CurrentSnapshot())
	return s.newFact(history.EventTypeSoftDelete, hc, e.EntityID(), e.EntityClass(), e.Version(), payload)
}

// DeleteFact builds the terminal fact of a hard-removed entity. The
// payload removes every link the entity held, so replay ends with the
// entity detached; the version is bumped past the last live version.
func (s *HistoryService) DeleteFact(hc HistoryContext, e history.Aware) *history.Fact {
	payload := history.Diff(e.CurrentSnapshot(), history.EmptySnapshot())
	return s.newFact(history.EventTypeDelete, hc, e.EntityID(), e.EntityClass(), e.Version()+1, payload)
}

func (s *HistoryService) newFact(t history.EventType, hc HistoryContext, entityID, class string, version int, payload history.DiffPayload) *history.Fact {
	return &history.Fact{
		Event: history.Event{
			EntityID:    entityID,
			EntityClass: class,
			Version:     version,
			Timestamp:   s.now().UTC(),
			Type:        t,
			ActorID:     hc.Actor.ID(),
			ActorName:   hc.Actor.Name(),
			SessionID:   hc.SessionID,
		},
		Payload: payload,
	}
}

// StoreFact appends a fact within the caller's transaction. A fact with
// no actor attribution is refused: unattributed audit records are a bug,
// not a degraded mode.
func (s *HistoryService) StoreFact(tx ports.Tx, f *history.Fact) (*history.Fact, error) {
	if f.Event.ActorID == "" {
		return nil, pkgerrors.NewIllegalStateError(
			fmt.Sprintf("fact for entity %s has no actor attribution", f.Event.EntityID))
	}
	stored, err := tx.AppendFact(f)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("fact appended",
		zap.String("entity_id", stored.Event.EntityID),
		zap.String("entity_class", stored.Event.EntityClass),
		zap.String("type", string(stored.Event.Type)),
		zap.Int("version", stored.Event.Version),
		zap.Int64("seq", stored.Seq))
	return stored, nil
}

// TrackUpdate snapshots the entity, runs the mutation and appends the
// resulting update fact in one motion
func (s *HistoryService) TrackUpdate(tx ports.Tx, hc HistoryContext, e history.Aware, mutate func() error) (*history.Fact, error) {
	before := e.CurrentSnapshot()
	if err := mutate(); err != nil {
		return nil, err
	}
	return s.StoreFact(tx, s.UpdateFact(hc, e, before))
}

// TrackUpdates applies one mutation across many entities and appends an
// update fact for each affected entity, in input order
func (s *HistoryService) TrackUpdates(tx ports.Tx, hc HistoryContext, targets []history.Aware, mutate func() error) ([]*history.Fact, error) {
	befores := make([]history.Snapshot, len(targets))
	for i, e := range targets {
		befores[i] = e.CurrentSnapshot()
	}
	if err := mutate(); err != nil {
		return nil, err
	}
	facts := make([]*history.Fact, 0, len(targets))
	for i, e := range targets {
		f, err := s.StoreFact(tx, s.UpdateFact(hc, e, befores[i]))
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// TimelineForEntity returns one entity's facts ordered oldest first
func (s *HistoryService) TimelineForEntity(ctx context.Context, entityID string) ([]*history.Fact, error) {
	var facts []*history.Fact
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var viewErr error
		facts, viewErr = tx.FactsForEntity(entityID)
		return viewErr
	})
	if err != nil {
		return nil, storeErr("load entity timeline", err)
	}
	return facts, nil
}

// TimelineForClasses returns every fact of the given entity classes,
// oldest first, with actor display names resolved in one batch. A fact
// whose actor cannot be resolved keeps an empty name; a fact with no
// recorded change at all is corruption and fails the read.
func (s *HistoryService) TimelineForClasses(ctx context.Context, classes []string) ([]*history.Fact, error) {
	var facts []*history.Fact
	err := s.store.View(ctx, func(tx ports.Tx) error {
		loaded, viewErr := tx.FactsForClasses(classes)
		if viewErr != nil {
			return viewErr
		}

		seen := make(map[string]struct{})
		actorIDs := make([]string, 0)
		for _, f := range loaded {
			if f.Event.ActorID == "" {
				return pkgerrors.NewIllegalStateError(
					fmt.Sprintf("fact %d for entity %s has no actor attribution", f.Seq, f.Event.EntityID))
			}
			if f.Payload.IsEmpty() {
				return pkgerrors.NewIllegalStateError(
					fmt.Sprintf("fact %d for entity %s has an empty payload", f.Seq, f.Event.EntityID))
			}
			if _, ok := seen[f.Event.ActorID]; !ok {
				seen[f.Event.ActorID] = struct{}{}
				actorIDs = append(actorIDs, f.Event.ActorID)
			}
		}

		names, viewErr := tx.ActorNames(actorIDs)
		if viewErr != nil {
			return viewErr
		}
		for _, f := range loaded {
			f.Event.ActorName = names[f.Event.ActorID]
		}

		facts = loaded
		return nil
	})
	if err != nil {
		return nil, storeErr("load class timeline", err)
	}
	return facts, nil
}

// AsSnapshots folds a timeline into reconstructed steps, replaying each
// payload forward from the base snapshot. Deterministic: the same
// timeline and base always produce the same steps.
func AsSnapshots(timeline []*history.Fact, base history.Snapshot) []HistoryStep {
	steps := make([]HistoryStep, 0, len(timeline))
	current := base.Clone()
	for _, f := range timeline {
		next := history.Apply(f.Payload, current)
		steps = append(steps, HistoryStep{
			Event:  f.Event,
			Before: current,
			After:  next,
			Diff:   f.Payload.Clone(),
		})
		current = next
	}
	return steps
}

// ArchiveCommitted replicates committed facts to the external archive.
// Best effort: failures are logged and swallowed, the mutation already
// succeeded.
func (s *HistoryService) ArchiveCommitted(ctx context.Context, facts []*history.Fact) {
	if s.archive == nil || len(facts) == 0 {
		return
	}
	if err := s.archive.Archive(ctx, facts); err != nil {
		s.logger.Warn("fact archive replication failed",
			zap.Int("fact_count", len(facts)),
			zap.Error(err))
	}
}
