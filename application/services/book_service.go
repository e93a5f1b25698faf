package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"refdata-backend/application/ports"
	"refdata-backend/domain/core/entities"
	"refdata-backend/domain/core/valueobjects"
	"refdata-backend/domain/history"
	pkgerrors "refdata-backend/pkg/errors"
)

// BookService orchestrates every reference book operation: tree
// mutations with optimistic concurrency control, linkage-gated deletion
// and the history fact written alongside each change. All writes of one
// operation share a transaction; partial effects never commit.
type BookService struct {
	store   ports.Store
	history *HistoryService
	linkage *LinkageIndex
	logger  *zap.Logger
}

// NewBookService creates a book service
func NewBookService(store ports.Store, history *HistoryService, linkage *LinkageIndex, logger *zap.Logger) *BookService {
	return &BookService{
		store:   store,
		history: history,
		linkage: linkage,
		logger:  logger,
	}
}

// CreateBook creates a reference book for an owning aspect: a root item
// at version 0 plus the owner's book link, each with its fact.
func (s *BookService) CreateBook(ctx context.Context, req CreateBookRequest, actor valueobjects.Actor) (*BookView, error) {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hc := NewHistoryContext(actor)

	var view *BookView
	var committed []*history.Fact
	err := s.store.Execute(ctx, func(tx ports.Tx) error {
		owner, err := tx.Owner(req.OwnerID)
		if err != nil {
			return err
		}
		if owner == nil || owner.Deleted() {
			return pkgerrors.NewNotFoundError("aspect", req.OwnerID)
		}
		if !owner.IsTextual() {
			return pkgerrors.NewPreconditionFailedError(
				fmt.Sprintf("aspect %s has base type %s, only %s aspects carry reference books",
					owner.ID(), owner.BaseType(), entities.BaseTypeText))
		}
		if owner.HasBook() {
			return pkgerrors.NewBookExistsError(owner.ID())
		}

		root, err := entities.NewRoot(req.Name, "", req.OwnerID)
		if err != nil {
			return err
		}
		if err := tx.SaveItem(root); err != nil {
			return err
		}
		f, err := s.history.StoreFact(tx, s.history.CreateFact(hc, root))
		if err != nil {
			return err
		}
		committed = append(committed, f)

		f, err = s.history.TrackUpdate(tx, hc, owner, func() error {
			return owner.AttachBook(root.ID())
		})
		if err != nil {
			return err
		}
		committed = append(committed, f)
		if err := tx.SaveOwner(owner); err != nil {
			return err
		}

		view = &BookView{
			OwnerID:  root.OwnerID(),
			ID:       root.ID().String(),
			Name:     root.Value(),
			Version:  root.Version(),
			Children: []ItemView{},
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("create book", err)
	}

	s.history.ArchiveCommitted(ctx, committed)
	s.logger.Info("reference book created",
		zap.String("owner_id", view.OwnerID),
		zap.String("root_id", view.ID),
		zap.String("name", view.Name))
	return view, nil
}

// UpdateBook renames a book, checking the caller's observed root version
func (s *BookService) UpdateBook(ctx context.Context, req RootEditRequest, actor valueobjects.Actor) error {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return err
	}
	hc := NewHistoryContext(actor)

	var committed []*history.Fact
	err := s.store.Execute(ctx, func(tx ports.Tx) error {
		root, err := tx.RootByOwner(req.OwnerID)
		if err != nil {
			return err
		}
		if root == nil {
			return pkgerrors.NewNotFoundError("reference book", req.OwnerID)
		}
		if root.Deleted() {
			return pkgerrors.NewRemovedError(root.ID().String())
		}
		if root.Version() != req.Version {
			return pkgerrors.NewConcurrentModificationError(root.ID().String(), req.Version, root.Version())
		}
		if root.Value() == req.Name && root.Description() == req.Description {
			return pkgerrors.NewNoOpChangeError(root.ID().String())
		}

		f, err := s.history.TrackUpdate(tx, hc, root, func() error {
			return root.Update(req.Name, req.Description)
		})
		if err != nil {
			return err
		}
		committed = append(committed, f)
		return tx.SaveItem(root)
	})
	if err != nil {
		return storeErr("update book", err)
	}

	s.history.ArchiveCommitted(ctx, committed)
	return nil
}

// RemoveBook deletes a whole book. The caller's view is the expected
// version vector of the full subtree. With external references the book
// is kept and only soft-deleted when forced, refused otherwise; without
// references the subtree is physically removed with a terminal fact for
// the root. Either way the owner loses its book link.
func (s *BookService) RemoveBook(ctx context.Context, book BookView, actor valueobjects.Actor, force bool) error {
	hc := NewHistoryContext(actor)

	var committed []*history.Fact
	err := s.store.Execute(ctx, func(tx ports.Tx) error {
		rootID, err := parseItemID(book.ID)
		if err != nil {
			return err
		}
		root, err := tx.Item(rootID)
		if err != nil {
			return err
		}
		if root == nil {
			return pkgerrors.NewNotFoundError("reference book", book.ID)
		}
		if !root.IsRoot() {
			return pkgerrors.NewIllegalArgumentError(
				fmt.Sprintf("item %s is not a book root", book.ID))
		}
		if err := s.checkItemAndChildrenVersions(tx, root, book.Root()); err != nil {
			return err
		}

		linked, err := s.linkage.ExternalReferences(tx, rootID)
		if err != nil {
			return err
		}
		owner, err := tx.Owner(root.OwnerID())
		if err != nil {
			return err
		}
		if owner == nil {
			return pkgerrors.NewIllegalStateError(
				fmt.Sprintf("book root %s has no owning aspect", book.ID))
		}

		switch {
		case len(linked) > 0 && !force:
			return pkgerrors.NewLinkedEntitiesError(linked)
		case len(linked) > 0:
			before := root.CurrentSnapshot()
			if err := root.MarkDeleted(); err != nil {
				return err
			}
			f, err := s.history.StoreFact(tx, s.history.SoftDeleteFact(hc, root, before))
			if err != nil {
				return err
			}
			committed = append(committed, f)
			if err := tx.SaveItem(root); err != nil {
				return err
			}
		default:
			f, err := s.history.StoreFact(tx, s.history.DeleteFact(hc, root))
			if err != nil {
				return err
			}
			committed = append(committed, f)
			if err := s.deleteSubtree(tx, rootID); err != nil {
				return err
			}
		}

		f, err := s.history.TrackUpdate(tx, hc, owner, func() error {
			owner.DetachBook()
			return nil
		})
		if err != nil {
			return err
		}
		committed = append(committed, f)
		return tx.SaveOwner(owner)
	})
	if err != nil {
		return storeErr("remove book", err)
	}

	s.history.ArchiveCommitted(ctx, committed)
	s.logger.Info("reference book removed",
		zap.String("root_id", book.ID),
		zap.Bool("force", force))
	return nil
}

// AddItem creates a new item under a parent, returning the new item's id.
// The item starts at version 0 with its creation fact; attaching it is a
// structural change of the parent and bumps the parent with its own fact.
func (s *BookService) AddItem(ctx context.Context, req ItemCreateRequest, actor valueobjects.Actor) (string, error) {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return "", err
	}
	hc := NewHistoryContext(actor)

	var newID string
	var committed []*history.Fact
	err := s.store.Execute(ctx, func(tx ports.Tx) error {
		parentID, err := parseItemID(req.ParentID)
		if err != nil {
			return err
		}
		parent, err := tx.Item(parentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return pkgerrors.NewNotFoundError("item", req.ParentID)
		}
		if parent.Deleted() {
			return pkgerrors.NewRemovedError(req.ParentID)
		}
		if err := s.checkSiblingValue(tx, parent, req.Value, valueobjects.ItemID{}); err != nil {
			return err
		}

		item, err := entities.NewItem(req.Value, req.Description, parentID)
		if err != nil {
			return err
		}
		if err := tx.SaveItem(item); err != nil {
			return err
		}
		f, err := s.history.StoreFact(tx, s.history.CreateFact(hc, item))
		if err != nil {
			return err
		}
		committed = append(committed, f)

		f, err = s.history.TrackUpdate(tx, hc, parent, func() error {
			parent.AttachChild(item.ID())
			return nil
		})
		if err != nil {
			return err
		}
		committed = append(committed, f)
		if err := tx.SaveItem(parent); err != nil {
			return err
		}

		newID = item.ID().String()
		return nil
	})
	if err != nil {
		return "", storeErr("add item", err)
	}

	s.history.ArchiveCommitted(ctx, committed)
	return newID, nil
}

// EditItem validates an edit request and applies it as an item update
func (s *BookService) EditItem(ctx context.Context, req LeafEditRequest, actor valueobjects.Actor, force bool) error {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return err
	}
	return s.UpdateItem(ctx, ItemView{
		ID:          req.ID,
		Value:       req.Value,
		Description: req.Description,
		Version:     req.Version,
	}, actor, force)
}

// UpdateItem changes an item's value and description. Only the item's
// own observed version is checked; external references block the change
// unless forced; a renamed item must stay unique among its live siblings.
func (s *BookService) UpdateItem(ctx context.Context, item ItemView, actor valueobjects.Actor, force bool) error {
	hc := NewHistoryContext(actor)
	value := strings.TrimSpace(item.Value)

	var committed []*history.Fact
	err := s.store.Execute(ctx, func(tx ports.Tx) error {
		id, err := parseItemID(item.ID)
		if err != nil {
			return err
		}
		live, err := tx.Item(id)
		if err != nil {
			return err
		}
		if live == nil {
			return pkgerrors.NewNotFoundError("item", item.ID)
		}
		if live.Deleted() {
			return pkgerrors.NewRemovedError(item.ID)
		}
		if live.Version() != item.Version {
			return pkgerrors.NewConcurrentModificationError(item.ID, item.Version, live.Version())
		}
		if live.Value() == value && live.Description() == item.Description {
			return pkgerrors.NewNoOpChangeError(item.ID)
		}

		if value != live.Value() && !live.IsRoot() {
			parent, err := tx.Item(live.ParentID())
			if err != nil {
				return err
			}
			if parent == nil {
				return pkgerrors.NewIllegalStateError(
					fmt.Sprintf("item %s has a dangling parent edge", item.ID))
			}
			if err := s.checkSiblingValue(tx, parent, value, id); err != nil {
				return err
			}
		}

		refs, err := tx.ReferrersOf(id)
		if err != nil {
			return err
		}
		if len(refs) > 0 && !force {
			return pkgerrors.NewLinkedEntitiesError([]string{item.ID})
		}

		f, err := s.history.TrackUpdate(tx, hc, live, func() error {
			return live.Update(value, item.Description)
		})
		if err != nil {
			return err
		}
		committed = append(committed, f)
		return tx.SaveItem(live)
	})
	if err != nil {
		return storeErr("update item", err)
	}

	s.history.ArchiveCommitted(ctx, committed)
	return nil
}

// RemoveItem deletes an item and its subtree. The caller's view is the
// expected version vector of the subtree. External references keep the
// subtree: forced removal soft-deletes the named item, unforced removal
// is refused. Without references the subtree is physically removed, and
// the parent's shrunk child set bumps the parent with its own fact.
func (s *BookService) RemoveItem(ctx context.Context, item ItemView, actor valueobjects.Actor, force bool) error {
	hc := NewHistoryContext(actor)

	var committed []*history.Fact
	err := s.store.Execute(ctx, func(tx ports.Tx) error {
		id, err := parseItemID(item.ID)
		if err != nil {
			return err
		}
		live, err := tx.Item(id)
		if err != nil {
			return err
		}
		if live == nil {
			return pkgerrors.NewNotFoundError("item", item.ID)
		}
		if live.IsRoot() {
			return pkgerrors.NewIllegalArgumentError(
				fmt.Sprintf("item %s is a book root, remove the book instead", item.ID))
		}
		if err := s.checkItemAndChildrenVersions(tx, live, item); err != nil {
			return err
		}

		linked, err := s.linkage.ExternalReferences(tx, id)
		if err != nil {
			return err
		}

		switch {
		case len(linked) > 0 && !force:
			return pkgerrors.NewLinkedEntitiesError(linked)
		case len(linked) > 0:
			before := live.CurrentSnapshot()
			if err := live.MarkDeleted(); err != nil {
				return err
			}
			f, err := s.history.StoreFact(tx, s.history.SoftDeleteFact(hc, live, before))
			if err != nil {
				return err
			}
			committed = append(committed, f)
			if err := tx.SaveItem(live); err != nil {
				return err
			}
		default:
			parent, err := tx.Item(live.ParentID())
			if err != nil {
				return err
			}
			if parent == nil {
				return pkgerrors.NewIllegalStateError(
					fmt.Sprintf("item %s has a dangling parent edge", item.ID))
			}
			f, err := s.history.StoreFact(tx, s.history.DeleteFact(hc, live))
			if err != nil {
				return err
			}
			committed = append(committed, f)
			if err := s.deleteSubtree(tx, id); err != nil {
				return err
			}
			f, err = s.history.TrackUpdate(tx, hc, parent, func() error {
				parent.DetachChild(id)
				return nil
			})
			if err != nil {
				return err
			}
			committed = append(committed, f)
			if err := tx.SaveItem(parent); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("remove item", err)
	}

	s.history.ArchiveCommitted(ctx, committed)
	s.logger.Info("item removed",
		zap.String("item_id", item.ID),
		zap.Bool("force", force))
	return nil
}

// MoveItem reparents a source item under a target item. The move must
// keep the tree acyclic and the target's live children unique by value;
// the caller's source view is the expected version vector of the moved
// subtree and the target view carries the target's observed version.
// Both parents and the moved item get an update fact.
func (s *BookService) MoveItem(ctx context.Context, source, target ItemView, actor valueobjects.Actor) error {
	hc := NewHistoryContext(actor)

	var committed []*history.Fact
	err := s.store.Execute(ctx, func(tx ports.Tx) error {
		srcID, err := parseItemID(source.ID)
		if err != nil {
			return err
		}
		tgtID, err := parseItemID(target.ID)
		if err != nil {
			return err
		}
		src, err := tx.Item(srcID)
		if err != nil {
			return err
		}
		if src == nil {
			return pkgerrors.NewNotFoundError("item", source.ID)
		}
		if src.Deleted() {
			return pkgerrors.NewRemovedError(source.ID)
		}
		if src.IsRoot() {
			return pkgerrors.NewIllegalArgumentError(
				fmt.Sprintf("item %s is a book root and cannot be moved", source.ID))
		}
		tgt, err := tx.Item(tgtID)
		if err != nil {
			return err
		}
		if tgt == nil {
			return pkgerrors.NewNotFoundError("item", target.ID)
		}
		if tgt.Deleted() {
			return pkgerrors.NewRemovedError(target.ID)
		}

		if err := s.checkForMoving(tx, src, tgt); err != nil {
			return err
		}
		if src.ParentID().Equals(tgtID) {
			return pkgerrors.NewNoOpChangeError(source.ID)
		}
		if err := s.checkItemAndChildrenVersions(tx, src, source); err != nil {
			return err
		}
		if tgt.Version() != target.Version {
			return pkgerrors.NewConcurrentModificationError(target.ID, target.Version, tgt.Version())
		}
		if err := s.checkSiblingValue(tx, tgt, src.Value(), srcID); err != nil {
			return err
		}

		oldParent, err := tx.Item(src.ParentID())
		if err != nil {
			return err
		}
		if oldParent == nil {
			return pkgerrors.NewIllegalStateError(
				fmt.Sprintf("item %s has a dangling parent edge", source.ID))
		}

		f, err := s.history.TrackUpdate(tx, hc, oldParent, func() error {
			oldParent.DetachChild(srcID)
			return nil
		})
		if err != nil {
			return err
		}
		committed = append(committed, f)
		if err := tx.SaveItem(oldParent); err != nil {
			return err
		}

		f, err = s.history.TrackUpdate(tx, hc, tgt, func() error {
			tgt.AttachChild(srcID)
			return nil
		})
		if err != nil {
			return err
		}
		committed = append(committed, f)
		if err := tx.SaveItem(tgt); err != nil {
			return err
		}

		f, err = s.history.TrackUpdate(tx, hc, src, func() error {
			return src.MoveTo(tgtID)
		})
		if err != nil {
			return err
		}
		committed = append(committed, f)
		return tx.SaveItem(src)
	})
	if err != nil {
		return storeErr("move item", err)
	}

	s.history.ArchiveCommitted(ctx, committed)
	s.logger.Info("item moved",
		zap.String("source_id", source.ID),
		zap.String("target_id", target.ID))
	return nil
}

// AllBooks returns every reference book with its full subtree, soft
// deleted nodes included and flagged
func (s *BookService) AllBooks(ctx context.Context) ([]BookView, error) {
	var books []BookView
	err := s.store.View(ctx, func(tx ports.Tx) error {
		roots, err := tx.Roots()
		if err != nil {
			return err
		}
		books = make([]BookView, 0, len(roots))
		for _, root := range roots {
			view, err := s.buildBookView(tx, root)
			if err != nil {
				return err
			}
			books = append(books, *view)
		}
		sort.Slice(books, func(i, j int) bool {
			if books[i].Name != books[j].Name {
				return books[i].Name < books[j].Name
			}
			return books[i].OwnerID < books[j].OwnerID
		})
		return nil
	})
	if err != nil {
		return nil, storeErr("list books", err)
	}
	return books, nil
}

// BookByOwner returns the book attached to an owning aspect
func (s *BookService) BookByOwner(ctx context.Context, ownerID string) (*BookView, error) {
	view, err := s.BookByOwnerOrNil(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, pkgerrors.NewNotFoundError("reference book", ownerID)
	}
	return view, nil
}

// BookByOwnerOrNil returns the owner's book, or nil when none exists
func (s *BookService) BookByOwnerOrNil(ctx context.Context, ownerID string) (*BookView, error) {
	var view *BookView
	err := s.store.View(ctx, func(tx ports.Tx) error {
		root, err := tx.RootByOwner(ownerID)
		if err != nil {
			return err
		}
		if root == nil {
			return nil
		}
		view, err = s.buildBookView(tx, root)
		return err
	})
	if err != nil {
		return nil, storeErr("load book", err)
	}
	return view, nil
}

// BookByID returns the book rooted at the given item id
func (s *BookService) BookByID(ctx context.Context, id string) (*BookView, error) {
	var view *BookView
	err := s.store.View(ctx, func(tx ports.Tx) error {
		rootID, err := parseItemID(id)
		if err != nil {
			return err
		}
		root, err := tx.Item(rootID)
		if err != nil {
			return err
		}
		if root == nil {
			return pkgerrors.NewNotFoundError("reference book", id)
		}
		if !root.IsRoot() {
			return pkgerrors.NewIllegalArgumentError(
				fmt.Sprintf("item %s is not a book root", id))
		}
		view, err = s.buildBookView(tx, root)
		return err
	})
	if err != nil {
		return nil, storeErr("load book", err)
	}
	return view, nil
}

// Item returns one item with its full subtree
func (s *BookService) Item(ctx context.Context, id string) (*ItemView, error) {
	var view *ItemView
	err := s.store.View(ctx, func(tx ports.Tx) error {
		itemID, err := parseItemID(id)
		if err != nil {
			return err
		}
		item, err := tx.Item(itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return pkgerrors.NewNotFoundError("item", id)
		}
		built, err := s.buildItemView(tx, item)
		if err != nil {
			return err
		}
		view = &built
		return nil
	})
	if err != nil {
		return nil, storeErr("load item", err)
	}
	return view, nil
}

// ItemName returns just the value of one item
func (s *BookService) ItemName(ctx context.Context, id string) (string, error) {
	var name string
	err := s.store.View(ctx, func(tx ports.Tx) error {
		itemID, err := parseItemID(id)
		if err != nil {
			return err
		}
		item, err := tx.Item(itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return pkgerrors.NewNotFoundError("item", id)
		}
		name = item.Value()
		return nil
	})
	if err != nil {
		return "", storeErr("load item name", err)
	}
	return name, nil
}

// Path returns the root-to-item breadcrumb chain, both ends inclusive
func (s *BookService) Path(ctx context.Context, id string) ([]PathNode, error) {
	var path []PathNode
	err := s.store.View(ctx, func(tx ports.Tx) error {
		itemID, err := parseItemID(id)
		if err != nil {
			return err
		}
		item, err := tx.Item(itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return pkgerrors.NewNotFoundError("item", id)
		}

		var reversed []PathNode
		for {
			reversed = append(reversed, PathNode{ID: item.ID().String(), Value: item.Value()})
			if item.IsRoot() {
				break
			}
			parent, err := tx.Item(item.ParentID())
			if err != nil {
				return err
			}
			if parent == nil {
				return pkgerrors.NewIllegalStateError(
					fmt.Sprintf("item %s has a dangling parent edge", item.ID().String()))
			}
			item = parent
		}
		path = make([]PathNode, 0, len(reversed))
		for i := len(reversed) - 1; i >= 0; i-- {
			path = append(path, reversed[i])
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("load item path", err)
	}
	return path, nil
}

// checkItemAndChildrenVersions verifies the caller's expected version
// vector against the live subtree. Every live node must be present in
// the expectation with its exact version; a node the caller never saw is
// itself a concurrent modification.
func (s *BookService) checkItemAndChildrenVersions(tx ports.Tx, live *entities.Item, expected ItemView) error {
	if live.Version() != expected.Version {
		return pkgerrors.NewConcurrentModificationError(live.ID().String(), expected.Version, live.Version())
	}
	children, err := tx.ChildrenOf(live.ID())
	if err != nil {
		return err
	}
	byID := make(map[string]ItemView, len(expected.Children))
	for _, c := range expected.Children {
		byID[c.ID] = c
	}
	for _, child := range children {
		exp, ok := byID[child.ID().String()]
		if !ok {
			return pkgerrors.NewConcurrentModificationError(child.ID().String(), -1, child.Version())
		}
		if err := s.checkItemAndChildrenVersions(tx, child, exp); err != nil {
			return err
		}
	}
	return nil
}

// checkSiblingValue enforces value uniqueness among a parent's live
// children, comparing trimmed values
func (s *BookService) checkSiblingValue(tx ports.Tx, parent *entities.Item, value string, exclude valueobjects.ItemID) error {
	children, err := tx.ChildrenOf(parent.ID())
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(value)
	for _, child := range children {
		if child.Deleted() || child.ID().Equals(exclude) {
			continue
		}
		if strings.TrimSpace(child.Value()) == trimmed {
			return pkgerrors.NewChildExistsError(parent.ID().String(), trimmed)
		}
	}
	return nil
}

// checkForMoving rejects moves that would break the tree: moving an item
// under itself or under any of its descendants
func (s *BookService) checkForMoving(tx ports.Tx, src, tgt *entities.Item) error {
	if tgt.ID().Equals(src.ID()) {
		return pkgerrors.NewMoveImpossibleError(src.ID().String(), tgt.ID().String())
	}
	cur := tgt
	for !cur.ParentID().IsZero() {
		if cur.ParentID().Equals(src.ID()) {
			return pkgerrors.NewMoveImpossibleError(src.ID().String(), tgt.ID().String())
		}
		next, err := tx.Item(cur.ParentID())
		if err != nil {
			return err
		}
		if next == nil {
			return pkgerrors.NewIllegalStateError(
				fmt.Sprintf("item %s has a dangling parent edge", cur.ID().String()))
		}
		cur = next
	}
	return nil
}

// deleteSubtree physically removes an item and all its descendants
func (s *BookService) deleteSubtree(tx ports.Tx, id valueobjects.ItemID) error {
	children, err := tx.ChildrenOf(id)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.deleteSubtree(tx, child.ID()); err != nil {
			return err
		}
	}
	return tx.DeleteItem(id)
}

// buildItemView loads an item's subtree into its read model, children
// ordered by value then id
func (s *BookService) buildItemView(tx ports.Tx, item *entities.Item) (ItemView, error) {
	children, err := tx.ChildrenOf(item.ID())
	if err != nil {
		return ItemView{}, err
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].Value() != children[j].Value() {
			return children[i].Value() < children[j].Value()
		}
		return children[i].ID().String() < children[j].ID().String()
	})
	views := make([]ItemView, 0, len(children))
	for _, child := range children {
		childView, err := s.buildItemView(tx, child)
		if err != nil {
			return ItemView{}, err
		}
		views = append(views, childView)
	}
	return ItemView{
		ID:          item.ID().String(),
		Value:       item.Value(),
		Description: item.Description(),
		Version:     item.Version(),
		Deleted:     item.Deleted(),
		Children:    views,
	}, nil
}

// buildBookView loads a root item's subtree into the book read model
func (s *BookService) buildBookView(tx ports.Tx, root *entities.Item) (*BookView, error) {
	if root.OwnerID() == "" {
		return nil, pkgerrors.NewIllegalStateError(
			fmt.Sprintf("book root %s has no owning aspect", root.ID().String()))
	}
	iv, err := s.buildItemView(tx, root)
	if err != nil {
		return nil, err
	}
	return &BookView{
		OwnerID:     root.OwnerID(),
		ID:          iv.ID,
		Name:        iv.Value,
		Description: iv.Description,
		Version:     iv.Version,
		Deleted:     iv.Deleted,
		Children:    iv.Children,
	}, nil
}

// parseItemID converts a raw id into an ItemID, mapping parse failures
// to a validation error
func parseItemID(raw string) (valueobjects.ItemID, error) {
	id, err := valueobjects.NewItemIDFromString(raw)
	if err != nil {
		return valueobjects.ItemID{}, pkgerrors.NewIllegalArgumentError("invalid item id: " + raw)
	}
	return id, nil
}

// storeErr passes typed domain errors through and wraps everything else
// as a storage failure
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.IsAppError(err) {
		return err
	}
	return pkgerrors.NewDatabaseError(op, err)
}
