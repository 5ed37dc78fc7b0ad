package shared

import "context"

type ownerContextKey struct{}

// ContextWithOwner stores the authenticated owner id in context.
func ContextWithOwner(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

// OwnerFromContext extracts the owner id, failing with ErrOwnerMissing.
func OwnerFromContext(ctx context.Context) (int64, error) {
	ownerID, ok := ctx.Value(ownerContextKey{}).(int64)
	if !ok || ownerID <= 0 {
		return 0, ErrOwnerMissing
	}
	return ownerID, nil
}
