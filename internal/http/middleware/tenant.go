package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-tenant/internal/httputil"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/tenancy"
)

// TenantResolver binds a request to a tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, req tenancy.Request) (domain.TenantContext, error)
}

// Tenant resolves the request's tenant and stores the TenantContext.
// Rejected selectors become a bare 403; the body never names the tenant.
func Tenant(resolver TenantResolver, selectorHeader string, logger *slog.Logger) func(http.Handler) http.Handler {
	if selectorHeader == "" {
		selectorHeader = tenancy.DefaultSelectorHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := GetUser(r.Context())
			tc, err := resolver.Resolve(r.Context(), tenancy.Request{
				Selector: r.Header.Get(selectorHeader),
				Host:     r.Host,
				Identity: user,
			})
			if err != nil {
				var rerr *domain.ResolutionError
				switch {
				case errors.As(err, &rerr):
					logger.Warn("tenant selector rejected", "reason", rerr.Reason, "path", r.URL.Path)
					httputil.Error(w, http.StatusForbidden, "forbidden")
				case errors.Is(err, domain.ErrForbidden):
					httputil.Error(w, http.StatusForbidden, "forbidden")
				default:
					logger.Error("tenant resolution failed", "error", err)
					httputil.Error(w, http.StatusInternalServerError, "internal error")
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithTenantContext(r.Context(), tc)))
		})
	}
}

// RequireTenant rejects requests that resolved no tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tc, ok := tenancy.FromContext(r.Context()); !ok || !tc.HasTenant() {
			httputil.Error(w, http.StatusBadRequest, "no tenant selected")
			return
		}
		next.ServeHTTP(w, r)
	})
}
