package services

import (
	"sort"

	"go.uber.org/zap"

	"refdata-backend/application/ports"
	"refdata-backend/domain/core/valueobjects"
)

// LinkageIndex answers one question for destructive operations: which
// items of a subtree are referenced by entities outside the tree. A
// non-empty answer gates hard deletion.
type LinkageIndex struct {
	logger *zap.Logger
}

// NewLinkageIndex creates a linkage index
func NewLinkageIndex(logger *zap.Logger) *LinkageIndex {
	return &LinkageIndex{logger: logger}
}

// ExternalReferences walks the subtree rooted at rootID and returns the
// sorted ids of items referenced by external entities. Soft-deleted
// descendants are included: a reference to a hidden item still blocks
// physical removal.
func (l *LinkageIndex) ExternalReferences(tx ports.Tx, rootID valueobjects.ItemID) ([]string, error) {
	var linked []string

	stack := []valueobjects.ItemID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		refs, err := tx.ReferrersOf(id)
		if err != nil {
			return nil, err
		}
		if len(refs) > 0 {
			linked = append(linked, id.String())
		}

		children, err := tx.ChildrenOf(id)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			stack = append(stack, child.ID())
		}
	}

	sort.Strings(linked)
	if len(linked) > 0 {
		l.logger.Debug("subtree has external references",
			zap.String("root_id", rootID.String()),
			zap.Strings("linked_ids", linked))
	}
	return linked, nil
}
