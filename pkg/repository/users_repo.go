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

const userColumns = `id, username, email, is_staff, is_superuser, is_active, created_at, updated_at`

// UsersRepository handles user persistence.
type UsersRepository struct {
	db *sqlx.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sqlx.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// Create creates a new user.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	return r.CreateTx(ctx, r.db, user)
}

// CreateTx creates a new user within a transaction.
func (r *UsersRepository) CreateTx(ctx context.Context, q Querier, user *domain.User) error {
	query := q.Rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.IsStaff, user.IsSuperuser,
		user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

// GetByIDTx retrieves a user by ID within a transaction.
func (r *UsersRepository) GetByIDTx(ctx context.Context, q Querier, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := sqlx.GetContext(ctx, q, &user, q.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmailOrUsername retrieves an active user by email or username.
// When legacy duplicates exist the earliest-created row wins.
func (r *UsersRepository) GetByEmailOrUsername(ctx context.Context, identifier string) (*domain.User, error) {
	query := r.db.Rebind(`
		SELECT ` + userColumns + `
		FROM users
		WHERE (email = ? OR username = ?) AND is_active = TRUE
		ORDER BY created_at, id
		LIMIT 1
	`)
	var user domain.User
	err := r.db.GetContext(ctx, &user, query, identifier, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LookupByUsernameTx returns every row carrying username, earliest first.
// More than one row is an integrity defect the caller must repair.
func (r *UsersRepository) LookupByUsernameTx(ctx context.Context, q Querier, username string) (domain.UserLookup, error) {
	query := q.Rebind(`
		SELECT ` + userColumns + `
		FROM users
		WHERE username = ?
		ORDER BY created_at, id
	`)
	var users []*domain.User
	if err := sqlx.SelectContext(ctx, q, &users, query, username); err != nil {
		return domain.UserLookup{}, err
	}
	return domain.NewUserLookup(users), nil
}

// UpdateTx overwrites the profile fields of a user.
func (r *UsersRepository) UpdateTx(ctx context.Context, q Querier, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	query := q.Rebind(`
		UPDATE users
		SET username = ?, email = ?, is_staff = ?, is_superuser = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := q.ExecContext(ctx, query,
		user.Username, user.Email, user.IsStaff, user.IsSuperuser, user.IsActive, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return err
	}
	return expectRows(result, domain.ErrUserNotFound)
}

// DeleteTx permanently deletes a user. Credentials cascade.
func (r *UsersRepository) DeleteTx(ctx context.Context, q Querier, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectRows(result, domain.ErrUserNotFound)
}

// CountByUsername returns the number of rows carrying username.
func (r *UsersRepository) CountByUsername(ctx context.Context, username string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM users WHERE username = ?`), username)
	return n, err
}

func expectRows(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
