package auth

import "context"

type contextKey struct{}

var ownerKey contextKey

// ContextWithOwner stores the authenticated owner id on the context.
func ContextWithOwner(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerFromContext returns the authenticated owner id, if any.
func OwnerFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ownerKey).(int64)
	return id, ok
}

// Owner returns the authenticated owner id, or zero when absent. Handlers
// mounted behind Middleware can rely on it being set.
func Owner(ctx context.Context) int64 {
	id, _ := OwnerFromContext(ctx)
	return id
}
