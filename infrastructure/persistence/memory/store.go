// Package memory provides an in-process Store used by tests and
// single-node deployments. Transactions run on a deep copy of the state
// and swap it in on success, so a failed operation leaves no trace.
package memory

import (
	"context"
	"sort"
	"sync"

	"refdata-backend/application/ports"
	"refdata-backend/domain/core/entities"
	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
)

type itemRecord struct {
	id          string
	ownerID     string
	value       string
	description string
	version     int
	deleted     bool
	parentID    string
}

type ownerRecord struct {
	id       string
	name     string
	baseType string
	deleted  bool
	version  int
	bookID   string
}

type actorRecord struct {
	id   string
	name string
}

type state struct {
	items   map[string]*itemRecord
	owners  map[string]*ownerRecord
	refs    map[string]map[string]struct{}
	facts   []*history.Fact
	nextSeq int64
	actors  map[string]*actorRecord // keyed by actor id
}

func newState() *state {
	return &state{
		items:   make(map[string]*itemRecord),
		owners:  make(map[string]*ownerRecord),
		refs:    make(map[string]map[string]struct{}),
		nextSeq: 1,
		actors:  make(map[string]*actorRecord),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.items {
		rec := *v
		c.items[k] = &rec
	}
	for k, v := range s.owners {
		rec := *v
		c.owners[k] = &rec
	}
	for item, referrers := range s.refs {
		set := make(map[string]struct{}, len(referrers))
		for r := range referrers {
			set[r] = struct{}{}
		}
		c.refs[item] = set
	}
	c.facts = append([]*history.Fact(nil), s.facts...)
	c.nextSeq = s.nextSeq
	for k, v := range s.actors {
		rec := *v
		c.actors[k] = &rec
	}
	return c
}

// Store is the in-memory ports.Store implementation
type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ ports.Store = (*Store)(nil)

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{state: newState()}
}

// Execute runs fn against a copy of the state and commits the copy only
// when fn succeeds
func (s *Store) Execute(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&memTx{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// View runs fn read-only against the current state
func (s *Store) View(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&memTx{state: s.state})
}

type memTx struct {
	state *state
}

var _ ports.Tx = (*memTx)(nil)

func (t *memTx) Item(id valueobjects.ItemID) (*entities.Item, error) {
	rec, ok := t.state.items[id.String()]
	if !ok {
		return nil, nil
	}
	return t.hydrate(rec)
}

func (t *memTx) hydrate(rec *itemRecord) (*entities.Item, error) {
	id, err := valueobjects.NewItemIDFromString(rec.id)
	if err != nil {
		return nil, err
	}
	var parentID valueobjects.ItemID
	if rec.parentID != "" {
		parentID, err = valueobjects.NewItemIDFromString(rec.parentID)
		if err != nil {
			return nil, err
		}
	}
	childIDs, err := t.childIDsOf(rec.id)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructItem(id, rec.ownerID, rec.value, rec.description,
		rec.version, rec.deleted, parentID, childIDs), nil
}

func (t *memTx) childIDsOf(parentID string) ([]valueobjects.ItemID, error) {
	raw := make([]string, 0)
	for _, rec := range t.state.items {
		if rec.parentID == parentID {
			raw = append(raw, rec.id)
		}
	}
	sort.Strings(raw)
	out := make([]valueobjects.ItemID, 0, len(raw))
	for _, r := range raw {
		id, err := valueobjects.NewItemIDFromString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (t *memTx) SaveItem(item *entities.Item) error {
	t.state.items[item.ID().String()] = &itemRecord{
		id:          item.ID().String(),
		ownerID:     item.OwnerID(),
		value:       item.Value(),
		description: item.Description(),
		version:     item.Version(),
		deleted:     item.Deleted(),
		parentID:    item.ParentID().String(),
	}
	return nil
}

func (t *memTx) DeleteItem(id valueobjects.ItemID) error {
	delete(t.state.items, id.String())
	delete(t.state.refs, id.String())
	return nil
}

func (t *memTx) ChildrenOf(id valueobjects.ItemID) ([]*entities.Item, error) {
	childIDs, err := t.childIDsOf(id.String())
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Item, 0, len(childIDs))
	for _, childID := range childIDs {
		child, err := t.Item(childID)
		if err != nil {
			return nil, err
		}
		if child != nil {
			out = append(out, child)
		}
	}
	return out, nil
}

func (t *memTx) RootByOwner(ownerID string) (*entities.Item, error) {
	for _, rec := range t.state.items {
		if rec.parentID == "" && rec.ownerID == ownerID {
			return t.hydrate(rec)
		}
	}
	return nil, nil
}

func (t *memTx) Roots() ([]*entities.Item, error) {
	ids := make([]string, 0)
	for _, rec := range t.state.items {
		if rec.parentID == "" {
			ids = append(ids, rec.id)
		}
	}
	sort.Strings(ids)
	out := make([]*entities.Item, 0, len(ids))
	for _, id := range ids {
		root, err := t.hydrate(t.state.items[id])
		if err != nil {
			return nil, err
		}
		out = append(out, root)
	}
	return out, nil
}

func (t *memTx) Owner(id string) (*entities.Owner, error) {
	rec, ok := t.state.owners[id]
	if !ok {
		return nil, nil
	}
	var bookID valueobjects.ItemID
	if rec.bookID != "" {
		var err error
		bookID, err = valueobjects.NewItemIDFromString(rec.bookID)
		if err != nil {
			return nil, err
		}
	}
	return entities.ReconstructOwner(rec.id, rec.name, rec.baseType, rec.deleted, rec.version, bookID), nil
}

func (t *memTx) SaveOwner(owner *entities.Owner) error {
	t.state.owners[owner.ID()] = &ownerRecord{
		id:       owner.ID(),
		name:     owner.Name(),
		baseType: owner.BaseType(),
		deleted:  owner.Deleted(),
		version:  owner.Version(),
		bookID:   owner.BookID().String(),
	}
	return nil
}

func (t *memTx) ReferrersOf(id valueobjects.ItemID) ([]string, error) {
	set := t.state.refs[id.String()]
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

func (t *memTx) AddReference(entityID string, id valueobjects.ItemID) error {
	set, ok := t.state.refs[id.String()]
	if !ok {
		set = make(map[string]struct{})
		t.state.refs[id.String()] = set
	}
	set[entityID] = struct{}{}
	return nil
}

func (t *memTx) RemoveReference(entityID string, id valueobjects.ItemID) error {
	if set, ok := t.state.refs[id.String()]; ok {
		delete(set, entityID)
		if len(set) == 0 {
			delete(t.state.refs, id.String())
		}
	}
	return nil
}

func (t *memTx) AppendFact(f *history.Fact) (*history.Fact, error) {
	stored := f.Clone()
	stored.Seq = t.state.nextSeq
	t.state.nextSeq++
	t.state.facts = append(t.state.facts, stored)
	return stored.Clone(), nil
}

func (t *memTx) FactsForEntity(entityID string) ([]*history.Fact, error) {
	return t.selectFacts(func(f *history.Fact) bool {
		return f.Event.EntityID == entityID
	}), nil
}

func (t *memTx) FactsForClasses(classes []string) ([]*history.Fact, error) {
	wanted := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		wanted[c] = struct{}{}
	}
	return t.selectFacts(func(f *history.Fact) bool {
		_, ok := wanted[f.Event.EntityClass]
		return ok
	}), nil
}

func (t *memTx) selectFacts(keep func(*history.Fact) bool) []*history.Fact {
	out := make([]*history.Fact, 0)
	for _, f := range t.state.facts {
		if keep(f) {
			out = append(out, f.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Event.Timestamp.Equal(out[j].Event.Timestamp) {
			return out[i].Event.Timestamp.Before(out[j].Event.Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (t *memTx) ActorNames(actorIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(actorIDs))
	for _, id := range actorIDs {
		if rec, ok := t.state.actors[id]; ok {
			out[id] = rec.name
		}
	}
	return out, nil
}

func (t *memTx) SaveActor(actor valueobjects.Actor) error {
	t.state.actors[actor.ID()] = &actorRecord{id: actor.ID(), name: actor.Name()}
	return nil
}

func (t *memTx) ActorByName(name string) (valueobjects.Actor, bool, error) {
	ids := make([]string, 0, len(t.state.actors))
	for id := range t.state.actors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rec := t.state.actors[id]
		if rec.name == name {
			actor, err := valueobjects.NewActor(rec.id, rec.name)
			if err != nil {
				return valueobjects.Actor{}, false, err
			}
			return actor, true, nil
		}
	}
	return valueobjects.Actor{}, false, nil
}
