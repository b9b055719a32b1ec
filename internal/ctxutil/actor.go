// Package ctxutil carries request-scoped values that cross layer
// boundaries. It has no internal dependencies so any package can import
// it without cycles.
package ctxutil

import "context"

// ActorKey keys the audit actor in a context.
type ActorKey struct{}

// WithActorID returns a context carrying the given actor. The audit log
// writer reads it back when recording who performed a mutation.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorKey{}, actorID)
}

// ActorFromContext returns the actor from the context, or "" when none
// was set.
func ActorFromContext(ctx context.Context) string {
	if v := ctx.Value(ActorKey{}); v != nil {
		return v.(string)
	}
	return ""
}
