package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"refdata-backend/application/ports"
	"refdata-backend/domain/core/valueobjects"
	pkgerrors "refdata-backend/pkg/errors"
)

// ActorService resolves opaque usernames into stable actor references.
// First sight of a username registers it, so actor ids stay stable
// across sessions and fact attribution survives renames upstream.
type ActorService struct {
	store  ports.Store
	logger *zap.Logger
}

var _ ports.ActorResolver = (*ActorService)(nil)

// NewActorService creates an actor service over the given store
func NewActorService(store ports.Store, logger *zap.Logger) *ActorService {
	return &ActorService{store: store, logger: logger}
}

// Resolve returns the actor registered under the username, registering a
// new one on first sight
func (s *ActorService) Resolve(ctx context.Context, username string) (valueobjects.Actor, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return valueobjects.Actor{}, pkgerrors.NewValidationError("username cannot be empty")
	}

	var resolved valueobjects.Actor
	err := s.store.Execute(ctx, func(tx ports.Tx) error {
		existing, found, err := tx.ActorByName(username)
		if err != nil {
			return err
		}
		if found {
			resolved = existing
			return nil
		}

		created, err := valueobjects.NewActor(uuid.New().String(), username)
		if err != nil {
			return err
		}
		if err := tx.SaveActor(created); err != nil {
			return err
		}
		s.logger.Debug("actor registered",
			zap.String("actor_id", created.ID()),
			zap.String("username", username))
		resolved = created
		return nil
	})
	if err != nil {
		return valueobjects.Actor{}, storeErr("resolve actor", err)
	}
	return resolved, nil
}
