package gateway

import "context"

type adminToolingKey struct{}

// WithAdminTooling marks ctx as belonging to an operator command rather
// than a request handler. Only cmd/tenantctl calls it.
func WithAdminTooling(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminToolingKey{}, true)
}

// IsAdminTooling reports whether ctx was marked by WithAdminTooling.
func IsAdminTooling(ctx context.Context) bool {
	v, _ := ctx.Value(adminToolingKey{}).(bool)
	return v
}
