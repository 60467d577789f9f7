package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/pkg/domain"
)

// CredentialsRepository handles password credential persistence.
type CredentialsRepository struct {
	db *sqlx.DB
}

// NewCredentialsRepository creates a new credentials repository.
func NewCredentialsRepository(db *sqlx.DB) *CredentialsRepository {
	return &CredentialsRepository{db: db}
}

// GetByUserID retrieves the password credential for a user.
func (r *CredentialsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserPassword, error) {
	return r.GetByUserIDTx(ctx, r.db, userID)
}

// GetByUserIDTx retrieves the password credential within a transaction.
func (r *CredentialsRepository) GetByUserIDTx(ctx context.Context, q Querier, userID uuid.UUID) (*domain.UserPassword, error) {
	query := q.Rebind(`
		SELECT user_id, password_hash, password_updated_at
		FROM user_password
		WHERE user_id = ?
	`)
	var cred domain.UserPassword
	err := sqlx.GetContext(ctx, q, &cred, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// UpsertTx creates or replaces the password credential for a user.
func (r *CredentialsRepository) UpsertTx(ctx context.Context, q Querier, cred *domain.UserPassword) error {
	query := q.Rebind(`
		INSERT INTO user_password (user_id, password_hash, password_updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET password_hash = excluded.password_hash,
		    password_updated_at = excluded.password_updated_at
	`)
	_, err := q.ExecContext(ctx, query, cred.UserID, cred.PasswordHash, cred.PasswordUpdatedAt)
	return err
}
