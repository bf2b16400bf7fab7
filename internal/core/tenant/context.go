// Package tenant carries the workshop (tenant) scope of a request.
//
// Every part, movement and service order row belongs to exactly one tenant.
// The tenant id is threaded through context.Context by the request layer and
// read back by repositories; it is never held in package state.
package tenant

import (
	"context"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
)

type ctxKey struct{}

// WithID stores the tenant id in context.
func WithID(ctx context.Context, tenantID id.ID) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// ID returns the tenant id from context and whether it was present.
func ID(ctx context.Context) (id.ID, bool) {
	v, ok := ctx.Value(ctxKey{}).(id.ID)
	if !ok || id.IsNil(v) {
		return id.Nil(), false
	}
	return v, true
}

// RequireID returns the tenant id or a validation error when the request is unscoped.
func RequireID(ctx context.Context) (id.ID, error) {
	v, ok := ID(ctx)
	if !ok {
		return id.Nil(), apperror.NewValidation("tenant is not set for this request")
	}
	return v, nil
}

// GetTenantID returns the tenant id as a string, or empty string.
// Used for log fields and cache keys.
func GetTenantID(ctx context.Context) string {
	if v, ok := ID(ctx); ok {
		return v.String()
	}
	return ""
}
