package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/gateway"
)

// TenantLookup loads a tenant for quota evaluation.
type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// Quota enforces per-tenant record caps from tenant settings.
type Quota struct {
	tenants TenantLookup
}

// NewQuota creates a quota reading caps from tenant settings.
func NewQuota(tenants TenantLookup) *Quota {
	return &Quota{tenants: tenants}
}

// Check returns ErrQuotaExceeded when adding one more model row would pass
// the tenant's cap. count must run in the same transaction as the insert.
func (q *Quota) Check(ctx context.Context, tc domain.TenantContext, model string, count func(context.Context) (int, error)) error {
	if q == nil || !tc.HasTenant() {
		return nil
	}
	tenant, err := q.tenants.GetByID(ctx, tc.TenantID)
	if err != nil {
		return err
	}
	limit, ok := tenant.Settings.QuotaFor(model)
	if !ok {
		return nil
	}
	n, err := count(ctx)
	if err != nil {
		return err
	}
	if n >= limit {
		return fmt.Errorf("%w: %s limit %d", domain.ErrQuotaExceeded, model, limit)
	}
	return nil
}

// Entity is a record type the stores can persist.
type Entity[T any] interface {
	gateway.RecordPtr[T]
	Model() string
}

// Store is the CRUD surface for one entity type. Every call is scoped by
// the TenantContext it is given.
type Store[T any, PT Entity[T]] struct {
	gw     *gateway.Gateway[T, PT]
	quota  *Quota
	model  string
	logger *slog.Logger

	// before validates rec against other tenant data ahead of a write
	before func(ctx context.Context, tc domain.TenantContext, rec PT) error
}

// NewStore builds a store. quota may be nil.
func NewStore[T any, PT Entity[T]](gw *gateway.Gateway[T, PT], quota *Quota, logger *slog.Logger) *Store[T, PT] {
	if logger == nil {
		logger = slog.Default()
	}
	var zero T
	model := PT(&zero).Model()
	return &Store[T, PT]{gw: gw, quota: quota, model: model, logger: logger.With("model", model)}
}

// Model returns the entity's model name.
func (s *Store[T, PT]) Model() string {
	return s.model
}

// Gateway exposes the underlying gateway for callers building their own
// queries.
func (s *Store[T, PT]) Gateway() *gateway.Gateway[T, PT] {
	return s.gw
}

// List returns tc's rows oldest first. A zero limit returns every row.
func (s *Store[T, PT]) List(ctx context.Context, tc domain.TenantContext, limit, offset uint64) ([]T, error) {
	q := s.gw.ForTenant(tc).OrderBy("created_at", "id")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	return q.List(ctx)
}

// Get returns one of tc's rows by id.
func (s *Store[T, PT]) Get(ctx context.Context, tc domain.TenantContext, id uuid.UUID) (*T, error) {
	return s.gw.ForTenant(tc).Get(ctx, id)
}

// Count counts tc's rows.
func (s *Store[T, PT]) Count(ctx context.Context, tc domain.TenantContext) (int, error) {
	return s.gw.ForTenant(tc).Count(ctx)
}

// CountAll counts rows across every tenant. It needs system authority and
// an admin tooling context.
func (s *Store[T, PT]) CountAll(ctx context.Context, tc domain.TenantContext) (int, error) {
	q, err := s.gw.AllTenants(ctx, tc)
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}

// Create inserts rec for tc's tenant. The quota count and the insert share
// one transaction.
func (s *Store[T, PT]) Create(ctx context.Context, tc domain.TenantContext, rec PT) error {
	if s.before != nil {
		if err := s.before(ctx, tc, rec); err != nil {
			return err
		}
	}
	err := s.gw.InTx(ctx, func(g *gateway.Gateway[T, PT]) error {
		if err := s.quota.Check(ctx, tc, s.model, g.ForTenant(tc).Count); err != nil {
			return err
		}
		return g.CreateFor(ctx, tc, rec)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "record created", "id", gateway.BaseOf(rec).ID, "tenant_id", tc.TenantID)
	return nil
}

// Update validates and rewrites rec within tc's tenant.
func (s *Store[T, PT]) Update(ctx context.Context, tc domain.TenantContext, rec PT) error {
	if s.before != nil {
		if err := s.before(ctx, tc, rec); err != nil {
			return err
		}
	}
	return s.gw.ForTenant(tc).Update(ctx, rec)
}

// Delete removes one of tc's rows by id.
func (s *Store[T, PT]) Delete(ctx context.Context, tc domain.TenantContext, id uuid.UUID) error {
	return s.gw.ForTenant(tc).Delete(ctx, id)
}
