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

const tenantUserColumns = `id, tenant_id, user_id, role, is_active, is_primary, created_at, updated_at`

// TenantUsersRepository handles tenant membership persistence.
type TenantUsersRepository struct {
	db *sqlx.DB
}

// NewTenantUsersRepository creates a new tenant users repository.
func NewTenantUsersRepository(db *sqlx.DB) *TenantUsersRepository {
	return &TenantUsersRepository{db: db}
}

// GetActive returns the active membership of user in tenant.
func (r *TenantUsersRepository) GetActive(ctx context.Context, userID, tenantID uuid.UUID) (*domain.TenantUser, error) {
	query := r.db.Rebind(`
		SELECT ` + tenantUserColumns + `
		FROM tenant_users
		WHERE user_id = ? AND tenant_id = ? AND is_active = TRUE
		ORDER BY created_at, id
		LIMIT 1
	`)
	var tu domain.TenantUser
	err := r.db.GetContext(ctx, &tu, query, userID, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTenantUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tu, nil
}

// tenantUserTenantRow flattens the membership/tenant join for scanning.
type tenantUserTenantRow struct {
	domain.TenantUser
	TSlug     string                `db:"t_slug"`
	TName     string                `db:"t_name"`
	TEmail    string                `db:"t_contact_email"`
	TActive   bool                  `db:"t_is_active"`
	TTrial    bool                  `db:"t_is_trial"`
	TSettings domain.TenantSettings `db:"t_settings"`
	TCreated  time.Time             `db:"t_created_at"`
	TUpdated  time.Time             `db:"t_updated_at"`
}

// ListActiveWithTenants returns the active memberships of a user in active
// tenants, primary first, then earliest-created.
func (r *TenantUsersRepository) ListActiveWithTenants(ctx context.Context, userID uuid.UUID) ([]domain.TenantUserWithTenant, error) {
	query := r.db.Rebind(`
		SELECT tu.id, tu.tenant_id, tu.user_id, tu.role, tu.is_active, tu.is_primary,
		       tu.created_at, tu.updated_at,
		       t.slug AS t_slug, t.name AS t_name, t.contact_email AS t_contact_email,
		       t.is_active AS t_is_active, t.is_trial AS t_is_trial, t.settings AS t_settings,
		       t.created_at AS t_created_at, t.updated_at AS t_updated_at
		FROM tenant_users tu
		JOIN tenants t ON t.id = tu.tenant_id
		WHERE tu.user_id = ? AND tu.is_active = TRUE AND t.is_active = TRUE
		ORDER BY tu.is_primary DESC, tu.created_at, tu.id
	`)
	var rows []tenantUserTenantRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	out := make([]domain.TenantUserWithTenant, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.TenantUserWithTenant{
			TenantUser: row.TenantUser,
			Tenant: domain.Tenant{
				ID:           row.TenantID,
				Slug:         row.TSlug,
				Name:         row.TName,
				ContactEmail: row.TEmail,
				IsActive:     row.TActive,
				IsTrial:      row.TTrial,
				Settings:     row.TSettings,
				CreatedAt:    row.TCreated,
				UpdatedAt:    row.TUpdated,
			},
		})
	}
	return out, nil
}

// ListActiveForPairTx returns every active row for (user, tenant), earliest
// first. More than one row violates the single-association invariant.
func (r *TenantUsersRepository) ListActiveForPairTx(ctx context.Context, q Querier, userID, tenantID uuid.UUID) ([]domain.TenantUser, error) {
	query := q.Rebind(`
		SELECT ` + tenantUserColumns + `
		FROM tenant_users
		WHERE user_id = ? AND tenant_id = ? AND is_active = TRUE
		ORDER BY created_at, id
	`)
	var out []domain.TenantUser
	if err := sqlx.SelectContext(ctx, q, &out, query, userID, tenantID); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTx creates a membership within a transaction.
func (r *TenantUsersRepository) CreateTx(ctx context.Context, q Querier, tu *domain.TenantUser) error {
	query := q.Rebind(`
		INSERT INTO tenant_users (` + tenantUserColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query,
		tu.ID, tu.TenantID, tu.UserID, tu.Role, tu.IsActive, tu.IsPrimary, tu.CreatedAt, tu.UpdatedAt,
	)
	return err
}

// UpdateRoleTx changes the role of a membership.
func (r *TenantUsersRepository) UpdateRoleTx(ctx context.Context, q Querier, id uuid.UUID, role domain.Role) error {
	query := q.Rebind(`UPDATE tenant_users SET role = ?, updated_at = ? WHERE id = ?`)
	result, err := q.ExecContext(ctx, query, role, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRows(result, domain.ErrTenantUserNotFound)
}

// DeactivateTx removes a member without deleting the row.
func (r *TenantUsersRepository) DeactivateTx(ctx context.Context, q Querier, id uuid.UUID) error {
	query := q.Rebind(`UPDATE tenant_users SET is_active = FALSE, updated_at = ? WHERE id = ?`)
	result, err := q.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRows(result, domain.ErrTenantUserNotFound)
}

// ReassignUserTx moves every membership of from onto to. Memberships that
// would duplicate an active row already held by to are deactivated first.
func (r *TenantUsersRepository) ReassignUserTx(ctx context.Context, q Querier, from, to uuid.UUID) error {
	now := time.Now().UTC()
	deactivate := q.Rebind(`
		UPDATE tenant_users
		SET is_active = FALSE, updated_at = ?
		WHERE user_id = ? AND is_active = TRUE AND tenant_id IN (
			SELECT tenant_id FROM tenant_users WHERE user_id = ? AND is_active = TRUE
		)
	`)
	if _, err := q.ExecContext(ctx, deactivate, now, from, to); err != nil {
		return err
	}
	move := q.Rebind(`UPDATE tenant_users SET user_id = ?, updated_at = ? WHERE user_id = ?`)
	_, err := q.ExecContext(ctx, move, to, now, from)
	return err
}

// CountActiveForPair returns the number of active rows for (user, tenant).
func (r *TenantUsersRepository) CountActiveForPair(ctx context.Context, userID, tenantID uuid.UUID) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM tenant_users WHERE user_id = ? AND tenant_id = ? AND is_active = TRUE`)
	var n int
	err := r.db.GetContext(ctx, &n, query, userID, tenantID)
	return n, err
}
