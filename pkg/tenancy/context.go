package tenancy

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/pkg/domain"
)

type contextKey string

const tenantContextKey contextKey = "tenant_context"

// WithTenantContext returns a copy of ctx carrying tc.
func WithTenantContext(ctx context.Context, tc domain.TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// FromContext returns the TenantContext attached by the tenant middleware.
func FromContext(ctx context.Context) (domain.TenantContext, bool) {
	tc, ok := ctx.Value(tenantContextKey).(domain.TenantContext)
	return tc, ok
}

// MustFromContext is FromContext for handlers mounted behind the tenant
// middleware; a missing value yields the explicit no-tenant state.
func MustFromContext(ctx context.Context) domain.TenantContext {
	if tc, ok := FromContext(ctx); ok {
		return tc
	}
	return domain.NoTenant(uuid.Nil, false)
}
