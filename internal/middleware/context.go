package middleware

import (
	"context"
	"time"
)

// Actor is the authenticated principal attached to a request.
type Actor struct {
	SessionID        string
	UserID           string
	OrganizationID   string
	Role             string
	Email            string
	FullName         string
	OrganizationSlug string
	OrganizationName string
	CSRFToken        string
	ExpiresAt        time.Time
}

type contextKey string

const actorKey contextKey = "actor"

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	v, ok := ctx.Value(actorKey).(Actor)
	return v, ok
}
