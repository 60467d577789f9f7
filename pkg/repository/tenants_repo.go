package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/pkg/domain"
)

const tenantColumns = `id, slug, name, contact_email, is_active, is_trial, settings, created_at, updated_at`

// TenantsRepository handles tenant data persistence.
type TenantsRepository struct {
	db *sqlx.DB
}

// NewTenantsRepository creates a new tenants repository.
func NewTenantsRepository(db *sqlx.DB) *TenantsRepository {
	return &TenantsRepository{db: db}
}

// Create creates a new tenant.
func (r *TenantsRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	return r.CreateTx(ctx, r.db, tenant)
}

// CreateTx creates a new tenant within a transaction.
func (r *TenantsRepository) CreateTx(ctx context.Context, q Querier, tenant *domain.Tenant) error {
	query := q.Rebind(`
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query,
		tenant.ID, tenant.Slug, tenant.Name, tenant.ContactEmail, tenant.IsActive,
		tenant.IsTrial, tenant.Settings, tenant.CreatedAt, tenant.UpdatedAt,
	)
	return err
}

// GetOrCreateTx returns the tenant with tenant.Slug, inserting tenant when
// no such row exists. The second result reports whether a row was inserted.
// A concurrent insert of the same slug is absorbed by ON CONFLICT.
func (r *TenantsRepository) GetOrCreateTx(ctx context.Context, q Querier, tenant *domain.Tenant) (*domain.Tenant, bool, error) {
	query := q.Rebind(`
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO NOTHING
	`)
	result, err := q.ExecContext(ctx, query,
		tenant.ID, tenant.Slug, tenant.Name, tenant.ContactEmail, tenant.IsActive,
		tenant.IsTrial, tenant.Settings, tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		return nil, false, err
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	got, err := r.getBy(ctx, q, "slug", tenant.Slug)
	if err != nil {
		return nil, false, err
	}
	return got, inserted > 0, nil
}

// GetByID retrieves a tenant by ID.
func (r *TenantsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return r.getBy(ctx, r.db, "id", id)
}

// GetBySlug retrieves a tenant by slug.
func (r *TenantsRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return r.getBy(ctx, r.db, "slug", slug)
}

// column is always a literal from this file
func (r *TenantsRepository) getBy(ctx context.Context, q Querier, column string, value any) (*domain.Tenant, error) {
	var tenant domain.Tenant
	query := q.Rebind(`SELECT ` + tenantColumns + ` FROM tenants WHERE ` + column + ` = ?`)
	err := sqlx.GetContext(ctx, q, &tenant, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// UpdateSettingsTx replaces the settings document of a tenant.
func (r *TenantsRepository) UpdateSettingsTx(ctx context.Context, q Querier, id uuid.UUID, settings domain.TenantSettings) error {
	query := q.Rebind(`UPDATE tenants SET settings = ?, updated_at = ? WHERE id = ?`)
	result, err := q.ExecContext(ctx, query, settings, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRows(result, domain.ErrTenantNotFound)
}

// Deactivate soft-deletes a tenant. Tenants are never hard-deleted.
func (r *TenantsRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`UPDATE tenants SET is_active = FALSE, updated_at = ? WHERE id = ? AND is_active = TRUE`)
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRows(result, domain.ErrTenantNotFound)
}

// CountBySlug returns the number of tenants with slug.
func (r *TenantsRepository) CountBySlug(ctx context.Context, slug string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM tenants WHERE slug = ?`), slug)
	return n, err
}
