package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/pkg/domain"
)

// DefaultSelectorHeader carries an explicit tenant ID or slug.
const DefaultSelectorHeader = "X-Tenant-ID"

var slugRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidSlug reports whether s is a well-formed tenant slug.
func ValidSlug(s string) bool {
	return slugRegex.MatchString(s)
}

// TenantStore reads tenants.
type TenantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

// Request holds the raw signals available for resolution.
type Request struct {
	Selector string
	Host     string
	Identity *domain.User
}

// Resolver determines the active tenant for a request. It only reads.
type Resolver struct {
	tenants    TenantStore
	members    MembershipStore
	validator  *Validator
	baseDomain string
	logger     *slog.Logger
}

// NewResolver creates a new tenant resolver. baseDomain is the parent
// domain whose first-level subdomains name tenants; empty disables host
// resolution.
func NewResolver(tenants TenantStore, members MembershipStore, validator *Validator, baseDomain string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tenants:    tenants,
		members:    members,
		validator:  validator,
		baseDomain: strings.ToLower(strings.Trim(baseDomain, ". ")),
		logger:     logger,
	}
}

// Resolve runs selector, host, identity default, then none. An explicit
// selector that cannot be honored is an error; it never falls through.
func (r *Resolver) Resolve(ctx context.Context, req Request) (domain.TenantContext, error) {
	if sel := strings.TrimSpace(req.Selector); sel != "" {
		return r.fromSelector(ctx, sel, req.Identity)
	}

	if slug := r.hostSlug(req.Host); slug != "" {
		tc, ok, err := r.fromHost(ctx, slug, req.Identity)
		if err != nil || ok {
			return tc, err
		}
	}

	if req.Identity != nil {
		tc, ok, err := r.fromDefault(ctx, req.Identity)
		if err != nil || ok {
			return tc, err
		}
	}

	tc := domain.NoTenant(identityID(req.Identity), isSuperuser(req.Identity))
	r.record(ctx, tc, "")
	return tc, nil
}

func (r *Resolver) fromSelector(ctx context.Context, sel string, user *domain.User) (domain.TenantContext, error) {
	tenant, err := r.lookupSelector(ctx, sel)
	if err != nil {
		return domain.TenantContext{}, err
	}
	if user == nil {
		return domain.TenantContext{}, &domain.ResolutionError{Selector: sel, Reason: "authentication required"}
	}

	decision, err := r.validator.Authorize(ctx, user, tenant.ID)
	if errors.Is(err, domain.ErrForbidden) {
		return domain.TenantContext{}, &domain.ResolutionError{Selector: sel, Reason: "not a member"}
	}
	if err != nil {
		return domain.TenantContext{}, err
	}

	tc := bind(tenant.ID, user, decision, domain.SourceSelector)
	r.record(ctx, tc, tenant.Slug)
	return tc, nil
}

func (r *Resolver) lookupSelector(ctx context.Context, sel string) (*domain.Tenant, error) {
	var (
		tenant *domain.Tenant
		err    error
	)
	if id, perr := uuid.Parse(sel); perr == nil {
		tenant, err = r.tenants.GetByID(ctx, id)
	} else if ValidSlug(sel) {
		tenant, err = r.tenants.GetBySlug(ctx, sel)
	} else {
		return nil, &domain.ResolutionError{Selector: sel, Reason: "malformed selector"}
	}

	if errors.Is(err, domain.ErrTenantNotFound) {
		return nil, &domain.ResolutionError{Selector: sel, Reason: "unknown tenant"}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve selector: %w", err)
	}
	if !tenant.IsActive {
		return nil, &domain.ResolutionError{Selector: sel, Reason: "tenant inactive"}
	}
	return tenant, nil
}

func (r *Resolver) fromHost(ctx context.Context, slug string, user *domain.User) (domain.TenantContext, bool, error) {
	tenant, err := r.tenants.GetBySlug(ctx, slug)
	if errors.Is(err, domain.ErrTenantNotFound) {
		return domain.TenantContext{}, false, nil
	}
	if err != nil {
		return domain.TenantContext{}, false, fmt.Errorf("resolve host: %w", err)
	}
	if !tenant.IsActive {
		return domain.TenantContext{}, false, nil
	}

	if user == nil {
		tc := domain.TenantContext{TenantID: tenant.ID, Source: domain.SourceHost}
		r.record(ctx, tc, tenant.Slug)
		return tc, true, nil
	}

	decision, err := r.validator.Authorize(ctx, user, tenant.ID)
	if errors.Is(err, domain.ErrForbidden) {
		return domain.TenantContext{}, false, &domain.ResolutionError{Selector: slug, Reason: "not a member of host tenant"}
	}
	if err != nil {
		return domain.TenantContext{}, false, err
	}

	tc := bind(tenant.ID, user, decision, domain.SourceHost)
	r.record(ctx, tc, tenant.Slug)
	return tc, true, nil
}

// fromDefault picks the identity's only membership, else the primary one,
// else the earliest. The store returns them in that order.
func (r *Resolver) fromDefault(ctx context.Context, user *domain.User) (domain.TenantContext, bool, error) {
	if !user.IsActive {
		return domain.TenantContext{}, false, nil
	}
	memberships, err := r.members.ListActiveWithTenants(ctx, user.ID)
	if err != nil {
		return domain.TenantContext{}, false, fmt.Errorf("resolve default: %w", err)
	}
	if len(memberships) == 0 {
		return domain.TenantContext{}, false, nil
	}

	m := memberships[0]
	decision := Decision{Authority: domain.AuthorityTenant, Role: m.TenantUser.Role}
	if user.IsSuperuser {
		decision = Decision{Authority: domain.AuthoritySystem, Role: domain.RoleOwner}
	}

	tc := bind(m.Tenant.ID, user, decision, domain.SourceDefault)
	r.record(ctx, tc, m.Tenant.Slug)
	return tc, true, nil
}

func (r *Resolver) record(ctx context.Context, tc domain.TenantContext, slug string) {
	recordResolution(tc.Source)
	r.logger.LogAttrs(ctx, slog.LevelInfo, "tenant resolved",
		slog.String("source", string(tc.Source)),
		slog.String("tenant_id", tenantIDString(tc)),
		slog.String("tenant_slug", slug),
		slog.String("authority", tc.Authority().String()),
		slog.String("user_id", userIDString(tc)),
	)
}

// hostSlug maps "acme.example.com" to "acme" when baseDomain is
// "example.com". Only one subdomain level is considered.
func (r *Resolver) hostSlug(raw string) string {
	if r.baseDomain == "" {
		return ""
	}
	host := normalizeHost(raw)
	suffix := "." + r.baseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	label := strings.TrimSuffix(host, suffix)
	if strings.Contains(label, ".") || !ValidSlug(label) || label == "www" {
		return ""
	}
	return label
}

func normalizeHost(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if h, _, err := net.SplitHostPort(raw); err == nil {
		raw = h
	}
	return strings.TrimSuffix(raw, ".")
}

func bind(tenantID uuid.UUID, user *domain.User, d Decision, source domain.ResolutionSource) domain.TenantContext {
	return domain.TenantContext{
		TenantID:          tenantID,
		Role:              d.Role,
		IsSystemAuthority: d.Authority == domain.AuthoritySystem,
		Source:            source,
		UserID:            user.ID,
	}
}

func identityID(u *domain.User) uuid.UUID {
	if u == nil {
		return uuid.Nil
	}
	return u.ID
}

func isSuperuser(u *domain.User) bool {
	return u != nil && u.IsActive && u.IsSuperuser
}

func tenantIDString(tc domain.TenantContext) string {
	if !tc.HasTenant() {
		return ""
	}
	return tc.TenantID.String()
}

func userIDString(tc domain.TenantContext) string {
	if tc.UserID == uuid.Nil {
		return ""
	}
	return tc.UserID.String()
}
