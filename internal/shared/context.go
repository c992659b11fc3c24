package shared

import (
	"context"
	"strings"
)

// Actor is the principal performing a lifecycle transition.
type Actor struct {
	ID      ID
	Role    string
	StaffID ID
}

// Validate ensures the actor carries both identity and role.
func (a Actor) Validate() error {
	if a.ID <= 0 {
		return Validation("actor", "actor id is required")
	}
	if strings.TrimSpace(a.Role) == "" {
		return Validation("actor", "actor role is required")
	}
	return nil
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
