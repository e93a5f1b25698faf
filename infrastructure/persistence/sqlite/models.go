package sqlite

import (
	"time"

	"github.com/uptrace/bun"
)

type itemModel struct {
	bun.BaseModel `bun:"table:refbook_items,alias:i"`

	ID          string `bun:"id,pk"`
	OwnerID     string `bun:"owner_id,notnull,default:''"`
	Value       string `bun:"value,notnull"`
	Description string `bun:"description,notnull,default:''"`
	Version     int    `bun:"version,notnull,default:0"`
	Deleted     bool   `bun:"deleted,notnull,default:false"`
	ParentID    string `bun:"parent_id,notnull,default:''"`
}

type ownerModel struct {
	bun.BaseModel `bun:"table:aspects,alias:a"`

	ID       string `bun:"id,pk"`
	Name     string `bun:"name,notnull"`
	BaseType string `bun:"base_type,notnull"`
	Deleted  bool   `bun:"deleted,notnull,default:false"`
	Version  int    `bun:"version,notnull,default:0"`
	BookID   string `bun:"book_id,notnull,default:''"`
}

type refModel struct {
	bun.BaseModel `bun:"table:item_refs,alias:r"`

	EntityID string `bun:"entity_id,pk"`
	ItemID   string `bun:"item_id,pk"`
}

type factModel struct {
	bun.BaseModel `bun:"table:history_facts,alias:f"`

	Seq         int64     `bun:"seq,pk,autoincrement"`
	EntityID    string    `bun:"entity_id,notnull"`
	EntityClass string    `bun:"entity_class,notnull"`
	Version     int       `bun:"version,notnull"`
	Timestamp   time.Time `bun:"timestamp,notnull"`
	Type        string    `bun:"type,notnull"`
	ActorID     string    `bun:"actor_id,notnull"`
	SessionID   string    `bun:"session_id,notnull"`
	Payload     []byte    `bun:"payload,notnull"`
}

type actorModel struct {
	bun.BaseModel `bun:"table:actors,alias:u"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull,unique"`
}
