package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-tenant/internal/config"
	"github.com/tendant/simple-tenant/internal/http/features/me"
	"github.com/tendant/simple-tenant/internal/http/features/records"
	"github.com/tendant/simple-tenant/internal/http/features/session"
	"github.com/tendant/simple-tenant/internal/http/features/tenant"
	"github.com/tendant/simple-tenant/internal/http/middleware"
	"github.com/tendant/simple-tenant/internal/httputil"
	"github.com/tendant/simple-tenant/pkg/auth"
	recstore "github.com/tendant/simple-tenant/pkg/records"
	"github.com/tendant/simple-tenant/pkg/repository"
	"github.com/tendant/simple-tenant/pkg/tenancy"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	PasswordService *auth.PasswordService
	TokenService    *auth.TokenService
	Resolver        *tenancy.Resolver
	Permissions     *tenancy.Permissions
	UsersRepo       *repository.UsersRepository
	TenantsRepo     *repository.TenantsRepository
	TenantUsersRepo *repository.TenantUsersRepository
	Stores          *recstore.Stores
	SelectorHeader  string
	MaxBodyBytes    int64
	HSTSMaxAge      int
	RateLimit       config.RateLimitConfig
	Cookie          httputil.CookieConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.HSTSMaxAge))
	r.Use(middleware.RequestSizeLimit(cfg.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	sessionHandler := session.NewHandler(cfg.Logger, cfg.PasswordService, cfg.TokenService, cfg.Cookie)
	r.With(middleware.LoginRateLimit(cfg.RateLimit, cfg.Logger)).Post("/v1/auth/login", sessionHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.TokenService, cfg.UsersRepo))
		r.Use(middleware.RequireUser)
		r.Use(middleware.Tenant(cfg.Resolver, cfg.SelectorHeader, cfg.Logger))

		r.Get("/v1/me", me.NewHandler(cfg.Logger, cfg.TenantUsersRepo).GetMe)
		r.Get("/v1/tenant", tenant.NewHandler(cfg.Logger, cfg.TenantsRepo).Current)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTenant)
			mountRecords(r, "/v1", cfg, records.RoleAuthorizer)
			mountRecords(r, "/v1/admin", cfg, records.GrantAuthorizer(cfg.Permissions))
		})
	})

	return r
}

func mountRecords(r chi.Router, prefix string, cfg RouterConfig, authorize records.Authorizer) {
	records.NewHandler(cfg.Logger, cfg.Stores.Suppliers, authorize).Mount(r, prefix+"/suppliers")
	records.NewHandler(cfg.Logger, cfg.Stores.Customers, authorize).Mount(r, prefix+"/customers")
	records.NewHandler(cfg.Logger, cfg.Stores.PurchaseOrders, authorize).Mount(r, prefix+"/purchase-orders")
	records.NewHandler(cfg.Logger, cfg.Stores.Invoices, authorize).Mount(r, prefix+"/invoices")
}
