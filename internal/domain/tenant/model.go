package tenant

import (
	"context"
)

// TenantContext identifies the caller of a request. TenantID is the entity
// that owns the books being read.
type TenantContext struct {
	TenantID string
	UserID   string
}

type contextKey struct{}

// WithContext returns a copy of ctx carrying tenantCtx.
func WithContext(ctx context.Context, tenantCtx *TenantContext) context.Context {
	return context.WithValue(ctx, contextKey{}, tenantCtx)
}

// FromContext returns the tenant context stored by WithContext, if any.
func FromContext(ctx context.Context) (*TenantContext, bool) {
	tenantCtx, ok := ctx.Value(contextKey{}).(*TenantContext)
	if !ok || tenantCtx == nil || tenantCtx.TenantID == "" {
		return nil, false
	}
	return tenantCtx, true
}
