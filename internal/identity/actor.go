package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type actorKey struct{}

// WithActor returns a context carrying the identity responsible for writes made with it.
func WithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the actor stored by WithActor.
func ActorFrom(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(actorKey{}).(string)
	return actor, ok && actor != ""
}

// NormalizeEmail is the form under which emails are stored and compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// prepareInsert assigns an id and audit metadata to a user about to be stored.
// Without an actor in ctx the record is attributed to the registering email.
func prepareInsert(ctx context.Context, user User, now time.Time) User {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = NormalizeEmail(user.Email)
	actor, ok := ActorFrom(ctx)
	if !ok {
		actor = user.Email
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	user.CreatedBy = actor
	user.UpdatedBy = actor
	return user
}
