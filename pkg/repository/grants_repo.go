package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/pkg/domain"
)

// GrantsRepository handles explicit per-model permission grants.
type GrantsRepository struct {
	db *sqlx.DB
}

// NewGrantsRepository creates a new grants repository.
func NewGrantsRepository(db *sqlx.DB) *GrantsRepository {
	return &GrantsRepository{db: db}
}

// HasGrant reports whether user holds action on model within tenant.
func (r *GrantsRepository) HasGrant(ctx context.Context, tenantID, userID uuid.UUID, model string, action domain.Action) (bool, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM permission_grants
		WHERE tenant_id = ? AND user_id = ? AND model = ? AND action = ?
	`)
	var n int
	if err := r.db.GetContext(ctx, &n, query, tenantID, userID, model, action); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GrantTx inserts the given permissions, skipping ones already held.
func (r *GrantsRepository) GrantTx(ctx context.Context, q Querier, tenantID, userID uuid.UUID, perms []domain.Permission) error {
	query := q.Rebind(`
		INSERT INTO permission_grants (id, tenant_id, user_id, model, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, user_id, model, action) DO NOTHING
	`)
	now := time.Now().UTC()
	for _, p := range perms {
		if _, err := q.ExecContext(ctx, query, uuid.New(), tenantID, userID, p.Model, p.Action, now); err != nil {
			return err
		}
	}
	return nil
}

// ListForUser returns the grants a user holds within tenant.
func (r *GrantsRepository) ListForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.PermissionGrant, error) {
	query := r.db.Rebind(`
		SELECT id, tenant_id, user_id, model, action, created_at
		FROM permission_grants
		WHERE tenant_id = ? AND user_id = ?
		ORDER BY model, action
	`)
	var out []domain.PermissionGrant
	if err := r.db.SelectContext(ctx, &out, query, tenantID, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByUserTx drops every grant held by user. Used when a duplicate
// identity is removed.
func (r *GrantsRepository) DeleteByUserTx(ctx context.Context, q Querier, userID uuid.UUID) error {
	_, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM permission_grants WHERE user_id = ?`), userID)
	return err
}

// compile-time check that both handles satisfy Querier
var (
	_ Querier = (*sqlx.DB)(nil)
	_ Querier = (*sqlx.Tx)(nil)
)
