package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"refdata-backend/application/ports"
	"refdata-backend/domain/core/valueobjects"
	pkgerrors "refdata-backend/pkg/errors"
)

type contextKey string

const actorContextKey contextKey = "actor"

// UserHeader names the request header carrying the caller's username.
// Authentication happens upstream; this service only attributes changes.
const UserHeader = "X-User-Name"

// ActorResolution resolves the caller's username into an actor and puts
// it on the request context. Requests without a username are rejected;
// every mutation must be attributable.
func ActorResolution(resolver ports.ActorResolver, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := r.Header.Get(UserHeader)
			if username == "" {
				http.Error(w, `{"error":true,"message":"missing `+UserHeader+` header"}`, http.StatusUnauthorized)
				return
			}

			actor, err := resolver.Resolve(r.Context(), username)
			if err != nil {
				logger.Warn("actor resolution failed",
					zap.String("username", username),
					zap.Error(err))
				http.Error(w, `{"error":true,"message":"actor resolution failed"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), actorContextKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the actor placed on the context by
// ActorResolution
func ActorFromContext(ctx context.Context) (valueobjects.Actor, error) {
	actor, ok := ctx.Value(actorContextKey).(valueobjects.Actor)
	if !ok || actor.IsZero() {
		return valueobjects.Actor{}, pkgerrors.NewIllegalStateError("no actor on request context")
	}
	return actor, nil
}
