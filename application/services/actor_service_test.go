package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"refdata-backend/infrastructure/persistence/memory"
	pkgerrors "refdata-backend/pkg/errors"
)

func TestActorService_Resolve(t *testing.T) {
	svc := NewActorService(memory.NewStore(), zap.NewNop())
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID())
	assert.Equal(t, "alice", first.Name())

	// the same username keeps its id across resolutions
	second, err := svc.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())

	// surrounding whitespace does not mint a new actor
	third, err := svc.Resolve(ctx, "  alice  ")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), third.ID())

	other, err := svc.Resolve(ctx, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), other.ID())
}

func TestActorService_Resolve_EmptyUsername(t *testing.T) {
	svc := NewActorService(memory.NewStore(), zap.NewNop())

	_, err := svc.Resolve(context.Background(), "   ")
	assert.True(t, pkgerrors.IsValidation(err), "got %v", err)
}
