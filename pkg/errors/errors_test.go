package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryTypeAndDetails(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		check    func(err error) bool
	}{
		{"validation", NewValidationError("bad input"), ErrorTypeValidation, IsValidation},
		{"not found", NewNotFoundError("item", "id-1"), ErrorTypeNotFound, IsNotFound},
		{"book exists", NewBookExistsError("aspect-1"), ErrorTypeAlreadyExists, IsAlreadyExists},
		{"child exists", NewChildExistsError("p-1", "alpha"), ErrorTypeAlreadyExists, IsAlreadyExists},
		{"concurrent", NewConcurrentModificationError("id-1", 1, 2), ErrorTypeConcurrent, IsConcurrentModification},
		{"linked", NewLinkedEntitiesError([]string{"a", "b"}), ErrorTypeLinked, IsLinkedEntities},
		{"move", NewMoveImpossibleError("s", "t"), ErrorTypeMove, IsMoveImpossible},
		{"no-op", NewNoOpChangeError("id-1"), ErrorTypeNoOp, IsNoOpChange},
		{"precondition", NewPreconditionFailedError("nope"), ErrorTypePrecondition, IsPreconditionFailed},
		{"removed", NewRemovedError("id-1"), ErrorTypeRemoved, IsRemoved},
		{"illegal state", NewIllegalStateError("broken"), ErrorTypeIllegalState, IsIllegalState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.True(t, tt.check(tt.err))
			assert.True(t, IsAppError(tt.err))
		})
	}
}

func TestConcurrentModificationDetails(t *testing.T) {
	err := NewConcurrentModificationError("id-1", 3, 5)
	require.NotNil(t, err.Details)
	assert.Equal(t, "id-1", err.Details["id"])
	assert.Equal(t, 3, err.Details["observed_version"])
	assert.Equal(t, 5, err.Details["actual_version"])
}

func TestLinkedIDs(t *testing.T) {
	err := NewLinkedEntitiesError([]string{"b", "a"})
	assert.Equal(t, []string{"b", "a"}, LinkedIDs(err))

	assert.Nil(t, LinkedIDs(NewNotFoundError("item", "x")))
	assert.Nil(t, LinkedIDs(errors.New("plain")))
}

func TestHelpersTraverseWrapping(t *testing.T) {
	inner := NewNotFoundError("item", "id-1")
	wrapped := fmt.Errorf("loading view: %w", inner)

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, inner, GetAppError(wrapped))
	assert.False(t, IsConcurrentModification(wrapped))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))

	appErr := Wrap(errors.New("db closed"), "saving item")
	require.True(t, IsAppError(appErr))
	assert.Equal(t, ErrorTypeInternal, GetAppError(appErr).Type)
	assert.Contains(t, appErr.Error(), "saving item")

	// Wrapping an AppError keeps its type
	rewrapped := Wrap(NewRemovedError("id-1"), "updating")
	assert.True(t, IsRemoved(rewrapped))
	assert.Contains(t, rewrapped.Error(), "updating")
}

func TestDatabaseErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDatabaseError("save item", cause)

	assert.Equal(t, ErrorTypeDatabase, err.Type)
	assert.ErrorIs(t, err, cause)
}
