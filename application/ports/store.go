package ports

import (
	"context"

	"refdata-backend/domain/core/entities"
	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
)

// Store is the contract of the external persistent graph/record store.
// Execute runs fn as one atomic unit: everything issued against the Tx —
// structural writes and fact appends alike — commits together or not at
// all, including when fn fails mid-validation. View runs fn read-only.
// The store is trusted to provide conflict detection at this boundary;
// the services layer adds optimistic version checks on top.
type Store interface {
	Execute(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the per-transaction view of the store. Lookup methods return
// (nil, nil) when the entity does not exist; typed not-found errors are
// the services' concern.
type Tx interface {
	// Item loads an item hydrated with its parent and child ids
	Item(id valueobjects.ItemID) (*entities.Item, error)
	// SaveItem upserts an item's scalar state and parent edge
	SaveItem(item *entities.Item) error
	// DeleteItem hard-removes a single item record and its edges
	DeleteItem(id valueobjects.ItemID) error
	// ChildrenOf lists all children of an item, soft-deleted included
	ChildrenOf(id valueobjects.ItemID) ([]*entities.Item, error)
	// RootByOwner finds the book root attached to an owning entity
	RootByOwner(ownerID string) (*entities.Item, error)
	// Roots lists every book root
	Roots() ([]*entities.Item, error)

	// Owner loads an owning entity
	Owner(id string) (*entities.Owner, error)
	// SaveOwner upserts an owning entity's book link and version
	SaveOwner(owner *entities.Owner) error

	// ReferrersOf lists the external entity ids referencing an item
	ReferrersOf(id valueobjects.ItemID) ([]string, error)
	// AddReference records an external entity referencing an item
	AddReference(entityID string, id valueobjects.ItemID) error
	// RemoveReference drops an external reference
	RemoveReference(entityID string, id valueobjects.ItemID) error

	// AppendFact durably appends a fact, assigning its sequence number.
	// Facts are never overwritten or deleted.
	AppendFact(f *history.Fact) (*history.Fact, error)
	// FactsForEntity returns an entity's facts ordered by (timestamp, seq)
	FactsForEntity(entityID string) ([]*history.Fact, error)
	// FactsForClasses returns all facts of the given entity classes
	// ordered by (timestamp, seq)
	FactsForClasses(classes []string) ([]*history.Fact, error)

	// ActorNames resolves display names for actor ids in one batch
	ActorNames(actorIDs []string) (map[string]string, error)
	// SaveActor registers an actor for later name resolution
	SaveActor(actor valueobjects.Actor) error
	// ActorByName finds a registered actor by username
	ActorByName(name string) (valueobjects.Actor, bool, error)
}

// ActorResolver turns an opaque username into an actor reference used
// only for fact attribution
type ActorResolver interface {
	Resolve(ctx context.Context, username string) (valueobjects.Actor, error)
}

// FactArchive is a write-behind replica of committed facts kept outside
// the transactional store, serving global audit views. Archiving is
// best-effort and must never affect the outcome of a mutation.
type FactArchive interface {
	Archive(ctx context.Context, facts []*history.Fact) error
	FactsForEntity(ctx context.Context, entityID string) ([]*history.Fact, error)
	FactsForClass(ctx context.Context, class string, limit int) ([]*history.Fact, error)
}
