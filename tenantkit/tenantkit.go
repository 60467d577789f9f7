// Package tenantkit wires the tenant resolver, access validator, scoped
// record stores and bootstrap reconciler over one database.
//
// Setup:
//
//  1. Apply the schema with `tenantctl migrate` (or repository.Migrate)
//  2. Provision identities with `tenantctl bootstrap sync`
//  3. Create a Kit and mount its router
//
// Basic usage:
//
//	db, _ := repository.NewDB(repository.Config{Driver: "postgres", ...})
//
//	kit, err := tenantkit.New(tenantkit.Config{
//	    DB:        db,
//	    JWTSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err) // fails if migrations haven't been run
//	}
//	http.ListenAndServe(":8080", kit.Router())
//
// Embedding in an existing chi router:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(kit.Middleware()...)
//	    r.Get("/reports", func(w http.ResponseWriter, r *http.Request) {
//	        tc, _ := tenantkit.TenantContext(r)
//	        ...
//	    })
//	})
package tenantkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/internal/config"
	apihttp "github.com/tendant/simple-tenant/internal/http"
	"github.com/tendant/simple-tenant/internal/http/middleware"
	"github.com/tendant/simple-tenant/internal/httputil"
	"github.com/tendant/simple-tenant/pkg/auth"
	"github.com/tendant/simple-tenant/pkg/bootstrap"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/gateway"
	"github.com/tendant/simple-tenant/pkg/records"
	"github.com/tendant/simple-tenant/pkg/repository"
	"github.com/tendant/simple-tenant/pkg/tenancy"
)

// Config configures a Kit.
type Config struct {
	DB *sqlx.DB

	// JWTSecret signs access tokens. At least 32 characters.
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	// BaseDomain enables subdomain resolution: acme.BaseDomain selects acme.
	BaseDomain     string
	SelectorHeader string

	// UnscopedDebug lets tenant-less requests read every row. Only honored
	// by binaries built with -tags tenantdebug.
	UnscopedDebug bool

	MaxBodyBytes int64
	HSTSMaxAge   int
	RateLimit    config.RateLimitConfig
	CookieSecure bool

	// Hasher overrides Argon2id, mainly for tests.
	Hasher auth.Hasher
	Logger *slog.Logger
}

// Kit holds the wired components.
type Kit struct {
	config      Config
	users       *repository.UsersRepository
	tenants     *repository.TenantsRepository
	members     *repository.TenantUsersRepository
	grants      *repository.GrantsRepository
	passwords   *auth.PasswordService
	tokens      *auth.TokenService
	resolver    *tenancy.Resolver
	permissions *tenancy.Permissions
	stores      *records.Stores
}

// New validates cfg and the schema, then wires every component.
func New(cfg Config) (*Kit, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := validateSchema(context.Background(), cfg.DB); err != nil {
		return nil, err
	}

	db := cfg.DB
	k := &Kit{
		config:  cfg,
		users:   repository.NewUsersRepository(db),
		tenants: repository.NewTenantsRepository(db),
		members: repository.NewTenantUsersRepository(db),
		grants:  repository.NewGrantsRepository(db),
		tokens: auth.NewTokenService(auth.TokenConfig{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
			TTL:    cfg.AccessTokenTTL,
		}),
	}
	k.passwords = auth.NewPasswordService(db, k.users, repository.NewCredentialsRepository(db), cfg.Hasher, nil)
	k.resolver = tenancy.NewResolver(k.tenants, k.members, tenancy.NewValidator(k.members), cfg.BaseDomain, cfg.Logger)
	k.permissions = tenancy.NewPermissions(k.grants)

	stores, err := records.NewStores(db, k.tenants, gateway.Options{
		UnscopedWhenNoTenant: cfg.UnscopedDebug,
		Logger:               cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("tenantkit: %w", err)
	}
	k.stores = stores
	return k, nil
}

// Router returns the full HTTP API.
func (k *Kit) Router() http.Handler {
	cookie := httputil.DefaultCookieConfig()
	cookie.Secure = k.config.CookieSecure
	return apihttp.NewRouter(apihttp.RouterConfig{
		Logger:          k.config.Logger,
		PasswordService: k.passwords,
		TokenService:    k.tokens,
		Resolver:        k.resolver,
		Permissions:     k.permissions,
		UsersRepo:       k.users,
		TenantsRepo:     k.tenants,
		TenantUsersRepo: k.members,
		Stores:          k.stores,
		SelectorHeader:  k.config.SelectorHeader,
		MaxBodyBytes:    k.config.MaxBodyBytes,
		HSTSMaxAge:      k.config.HSTSMaxAge,
		RateLimit:       k.config.RateLimit,
		Cookie:          cookie,
	})
}

// Middleware authenticates the caller and binds the request's tenant, for
// mounting host-application routes next to the kit's own.
func (k *Kit) Middleware() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.Authenticate(k.tokens, k.users),
		middleware.Tenant(k.resolver, k.config.SelectorHeader, k.config.Logger),
	}
}

// Stores returns the tenant-scoped record stores.
func (k *Kit) Stores() *records.Stores {
	return k.stores
}

// Reconciler returns a bootstrap reconciler sharing the kit's database.
func (k *Kit) Reconciler() *bootstrap.Reconciler {
	return bootstrap.New(k.config.DB, k.config.Hasher, k.config.Logger)
}

// TenantContext returns the binding Middleware stored on r.
func TenantContext(r *http.Request) (domain.TenantContext, bool) {
	return tenancy.FromContext(r.Context())
}

// User returns the authenticated user, if any.
func User(r *http.Request) (*domain.User, bool) {
	return middleware.GetUser(r.Context())
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("tenantkit: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("tenantkit: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("tenantkit: JWTSecret must be at least 32 characters")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "simple-tenant"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = auth.DefaultAccessTokenTTL
	}
	if cfg.SelectorHeader == "" {
		cfg.SelectorHeader = tenancy.DefaultSelectorHeader
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.Hasher == nil {
		cfg.Hasher = auth.Argon2Hasher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}

var requiredTables = []string{
	"users", "user_password", "tenants", "tenant_users", "permission_grants",
	"suppliers", "customers", "purchase_orders", "invoices",
}

// validateSchema checks that required tables exist. The check selects no
// rows so it works on both drivers.
func validateSchema(ctx context.Context, db *sqlx.DB) error {
	for _, table := range requiredTables {
		rows, err := db.QueryContext(ctx, "SELECT 1 FROM "+table+" WHERE 1 = 0")
		if err != nil {
			return fmt.Errorf("tenantkit: missing table %q - run `tenantctl migrate` first: %w", table, err)
		}
		rows.Close()
	}
	return nil
}
