// Package sqlite provides a Store backed by a local libsql database via
// the bun query builder. One operation maps to one SQL transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	_ "github.com/tursodatabase/go-libsql"

	"refdata-backend/application/ports"
	"refdata-backend/domain/core/entities"
	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
)

// Store is the sqlite-backed ports.Store implementation
type Store struct {
	db     *bun.DB
	logger *zap.Logger
}

var _ ports.Store = (*Store)(nil)

// NewStore opens the database at path and ensures the schema exists
func NewStore(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	sqlDB, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, err
	}
	db := bun.NewDB(sqlDB, sqlitedialect.New())

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	models := []interface{}{
		(*itemModel)(nil),
		(*ownerModel)(nil),
		(*refModel)(nil),
		(*factModel)(nil),
		(*actorModel)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	if _, err := s.db.NewCreateIndex().
		Model((*itemModel)(nil)).
		Index("idx_refbook_items_parent").
		Column("parent_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	if _, err := s.db.NewCreateIndex().
		Model((*factModel)(nil)).
		Index("idx_history_facts_entity").
		Column("entity_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}
	return nil
}

// Execute runs fn inside one SQL transaction
func (s *Store) Execute(ctx context.Context, fn func(tx ports.Tx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(&sqlTx{ctx: ctx, db: tx})
	})
}

// View runs fn inside one SQL transaction; the contract is read-only but
// sqlite does not distinguish, so the same path is used
func (s *Store) View(ctx context.Context, fn func(tx ports.Tx) error) error {
	return s.Execute(ctx, fn)
}

type sqlTx struct {
	ctx context.Context
	db  bun.IDB
}

var _ ports.Tx = (*sqlTx)(nil)

func (t *sqlTx) Item(id valueobjects.ItemID) (*entities.Item, error) {
	var m itemModel
	err := t.db.NewSelect().Model(&m).Where("id = ?", id.String()).Scan(t.ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t.hydrate(&m)
}

func (t *sqlTx) hydrate(m *itemModel) (*entities.Item, error) {
	id, err := valueobjects.NewItemIDFromString(m.ID)
	if err != nil {
		return nil, err
	}
	var parentID valueobjects.ItemID
	if m.ParentID != "" {
		parentID, err = valueobjects.NewItemIDFromString(m.ParentID)
		if err != nil {
			return nil, err
		}
	}

	var childRaw []string
	err = t.db.NewSelect().
		Model((*itemModel)(nil)).
		Column("id").
		Where("parent_id = ?", m.ID).
		Order("id").
		Scan(t.ctx, &childRaw)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	childIDs := make([]valueobjects.ItemID, 0, len(childRaw))
	for _, raw := range childRaw {
		childID, err := valueobjects.NewItemIDFromString(raw)
		if err != nil {
			return nil, err
		}
		childIDs = append(childIDs, childID)
	}

	return entities.ReconstructItem(id, m.OwnerID, m.Value, m.Description,
		m.Version, m.Deleted, parentID, childIDs), nil
}

func (t *sqlTx) SaveItem(item *entities.Item) error {
	m := &itemModel{
		ID:          item.ID().String(),
		OwnerID:     item.OwnerID(),
		Value:       item.Value(),
		Description: item.Description(),
		Version:     item.Version(),
		Deleted:     item.Deleted(),
		ParentID:    item.ParentID().String(),
	}
	_, err := t.db.NewInsert().
		Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("owner_id = EXCLUDED.owner_id").
		Set("value = EXCLUDED.value").
		Set("description = EXCLUDED.description").
		Set("version = EXCLUDED.version").
		Set("deleted = EXCLUDED.deleted").
		Set("parent_id = EXCLUDED.parent_id").
		Exec(t.ctx)
	return err
}

func (t *sqlTx) DeleteItem(id valueobjects.ItemID) error {
	if _, err := t.db.NewDelete().
		Model((*refModel)(nil)).
		Where("item_id = ?", id.String()).
		Exec(t.ctx); err != nil {
		return err
	}
	_, err := t.db.NewDelete().
		Model((*itemModel)(nil)).
		Where("id = ?", id.String()).
		Exec(t.ctx)
	return err
}

func (t *sqlTx) ChildrenOf(id valueobjects.ItemID) ([]*entities.Item, error) {
	var models []itemModel
	err := t.db.NewSelect().
		Model(&models).
		Where("parent_id = ?", id.String()).
		Order("id").
		Scan(t.ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Item, 0, len(models))
	for i := range models {
		item, err := t.hydrate(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (t *sqlTx) RootByOwner(ownerID string) (*entities.Item, error) {
	var m itemModel
	err := t.db.NewSelect().
		Model(&m).
		Where("parent_id = ''").
		Where("owner_id = ?", ownerID).
		Limit(1).
		Scan(t.ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t.hydrate(&m)
}

func (t *sqlTx) Roots() ([]*entities.Item, error) {
	var models []itemModel
	err := t.db.NewSelect().
		Model(&models).
		Where("parent_id = ''").
		Order("id").
		Scan(t.ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Item, 0, len(models))
	for i := range models {
		root, err := t.hydrate(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, root)
	}
	return out, nil
}

func (t *sqlTx) Owner(id string) (*entities.Owner, error) {
	var m ownerModel
	err := t.db.NewSelect().Model(&m).Where("id = ?", id).Scan(t.ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var bookID valueobjects.ItemID
	if m.BookID != "" {
		bookID, err = valueobjects.NewItemIDFromString(m.BookID)
		if err != nil {
			return nil, err
		}
	}
	return entities.ReconstructOwner(m.ID, m.Name, m.BaseType, m.Deleted, m.Version, bookID), nil
}

func (t *sqlTx) SaveOwner(owner *entities.Owner) error {
	m := &ownerModel{
		ID:       owner.ID(),
		Name:     owner.Name(),
		BaseType: owner.BaseType(),
		Deleted:  owner.Deleted(),
		Version:  owner.Version(),
		BookID:   owner.BookID().String(),
	}
	_, err := t.db.NewInsert().
		Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("base_type = EXCLUDED.base_type").
		Set("deleted = EXCLUDED.deleted").
		Set("version = EXCLUDED.version").
		Set("book_id = EXCLUDED.book_id").
		Exec(t.ctx)
	return err
}

func (t *sqlTx) ReferrersOf(id valueobjects.ItemID) ([]string, error) {
	var entityIDs []string
	err := t.db.NewSelect().
		Model((*refModel)(nil)).
		Column("entity_id").
		Where("item_id = ?", id.String()).
		Order("entity_id").
		Scan(t.ctx, &entityIDs)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return entityIDs, nil
}

func (t *sqlTx) AddReference(entityID string, id valueobjects.ItemID) error {
	_, err := t.db.NewInsert().
		Model(&refModel{EntityID: entityID, ItemID: id.String()}).
		On("CONFLICT (entity_id, item_id) DO NOTHING").
		Exec(t.ctx)
	return err
}

func (t *sqlTx) RemoveReference(entityID string, id valueobjects.ItemID) error {
	_, err := t.db.NewDelete().
		Model((*refModel)(nil)).
		Where("entity_id = ?", entityID).
		Where("item_id = ?", id.String()).
		Exec(t.ctx)
	return err
}

func (t *sqlTx) AppendFact(f *history.Fact) (*history.Fact, error) {
	payload, err := json.Marshal(f.Payload)
	if err != nil {
		return nil, err
	}
	m := &factModel{
		EntityID:    f.Event.EntityID,
		EntityClass: f.Event.EntityClass,
		Version:     f.Event.Version,
		Timestamp:   f.Event.Timestamp,
		Type:        string(f.Event.Type),
		ActorID:     f.Event.ActorID,
		SessionID:   f.Event.SessionID,
		Payload:     payload,
	}
	// RETURNING because libsql does not support LastInsertId
	if _, err := t.db.NewInsert().Model(m).Returning("seq").Exec(t.ctx); err != nil {
		return nil, err
	}
	stored := f.Clone()
	stored.Seq = m.Seq
	return stored, nil
}

func (t *sqlTx) FactsForEntity(entityID string) ([]*history.Fact, error) {
	var models []factModel
	err := t.db.NewSelect().
		Model(&models).
		Where("entity_id = ?", entityID).
		Order("timestamp", "seq").
		Scan(t.ctx)
	if err != nil {
		return nil, err
	}
	return factsFromModels(models)
}

func (t *sqlTx) FactsForClasses(classes []string) ([]*history.Fact, error) {
	var models []factModel
	err := t.db.NewSelect().
		Model(&models).
		Where("entity_class IN (?)", bun.In(classes)).
		Order("timestamp", "seq").
		Scan(t.ctx)
	if err != nil {
		return nil, err
	}
	return factsFromModels(models)
}

func factsFromModels(models []factModel) ([]*history.Fact, error) {
	out := make([]*history.Fact, 0, len(models))
	for i := range models {
		m := &models[i]
		var payload history.DiffPayload
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return nil, err
		}
		out = append(out, &history.Fact{
			Seq: m.Seq,
			Event: history.Event{
				EntityID:    m.EntityID,
				EntityClass: m.EntityClass,
				Version:     m.Version,
				Timestamp:   m.Timestamp,
				Type:        history.EventType(m.Type),
				ActorID:     m.ActorID,
				SessionID:   m.SessionID,
			},
			Payload: payload,
		})
	}
	return out, nil
}

func (t *sqlTx) ActorNames(actorIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(actorIDs))
	if len(actorIDs) == 0 {
		return out, nil
	}
	var models []actorModel
	err := t.db.NewSelect().
		Model(&models).
		Where("id IN (?)", bun.In(actorIDs)).
		Scan(t.ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		out[m.ID] = m.Name
	}
	return out, nil
}

func (t *sqlTx) SaveActor(actor valueobjects.Actor) error {
	_, err := t.db.NewInsert().
		Model(&actorModel{ID: actor.ID(), Name: actor.Name()}).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Exec(t.ctx)
	return err
}

func (t *sqlTx) ActorByName(name string) (valueobjects.Actor, bool, error) {
	var m actorModel
	err := t.db.NewSelect().Model(&m).Where("name = ?", name).Scan(t.ctx)
	if err == sql.ErrNoRows {
		return valueobjects.Actor{}, false, nil
	}
	if err != nil {
		return valueobjects.Actor{}, false, err
	}
	actor, err := valueobjects.NewActor(m.ID, m.Name)
	if err != nil {
		return valueobjects.Actor{}, false, err
	}
	return actor, true, nil
}
