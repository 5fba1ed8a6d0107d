package shared

import "context"

// ActorHeader carries the acting administrator's identifier on API requests.
// Authentication happens upstream; the gateway injects this header.
const ActorHeader = "X-Actor-ID"

type contextKey string

const actorContextKey contextKey = "meridian.actor"

// ContextWithActor stores the acting user id on the context.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey, actorID)
}

// ActorFromContext returns the acting user id, or zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(actorContextKey).(int64); ok {
		return v
	}
	return 0
}
