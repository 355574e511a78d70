package accounts

import (
	"context"

	"github.com/goliatone/go-accounts/store"
)

var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// WithActor sets the actor attributed to mutations made with ctx
func WithActor(ctx context.Context, actor store.ActorRef) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext finds the actor in the context.
func ActorFromContext(ctx context.Context) (store.ActorRef, bool) {
	actor, ok := ctx.Value(actorCtxKey).(store.ActorRef)
	return actor, ok
}

func auditFrom(ctx context.Context, reason string, meta map[string]any) store.Audit {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = store.SystemActor
	}
	return store.Audit{
		Actor:    actor,
		Reason:   reason,
		Metadata: meta,
	}
}
