package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tenant/internal/testdb"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/repository"
)

func newUser(username string, createdAt time.Time) *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "-" + uuid.NewString()[:8] + "@example.com",
		IsActive:  true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestUsersRepository_CreateAndGet(t *testing.T) {
	db := testdb.New(t)
	repo := repository.NewUsersRepository(db)
	ctx := context.Background()

	u := newUser("alice", time.Now().UTC())
	u.IsStaff = true
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.IsStaff)
	assert.False(t, got.IsSuperuser)

	byEmail, err := repo.GetByEmailOrUsername(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUsersRepository_UniqueUsername(t *testing.T) {
	db := testdb.New(t)
	repo := repository.NewUsersRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("bob", time.Now().UTC())))
	err := repo.Create(ctx, newUser("bob", time.Now().UTC()))
	require.Error(t, err)
	assert.True(t, repository.IsUniqueViolation(err), "got %v", err)
}

func TestUsersRepository_LookupByUsername(t *testing.T) {
	db := testdb.New(t)
	testdb.DropUsernameUniqueness(t, db)
	repo := repository.NewUsersRepository(db)
	ctx := context.Background()

	lookup, err := repo.LookupByUsernameTx(ctx, db, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.LookupNotFound, lookup.Kind)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	later := newUser("admin", day.Add(9*time.Hour+5*time.Minute))
	earlier := newUser("admin", day.Add(9*time.Hour))
	require.NoError(t, repo.Create(ctx, later))

	lookup, err = repo.LookupByUsernameTx(ctx, db, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.LookupFound, lookup.Kind)

	require.NoError(t, repo.Create(ctx, earlier))
	lookup, err = repo.LookupByUsernameTx(ctx, db, "admin")
	require.NoError(t, err)
	require.Equal(t, domain.LookupDuplicates, lookup.Kind)
	assert.Equal(t, earlier.ID, lookup.Survivor().ID)
	require.Len(t, lookup.Extras(), 1)
	assert.Equal(t, later.ID, lookup.Extras()[0].ID)
}

func TestUsersRepository_UpdateAndDelete(t *testing.T) {
	db := testdb.New(t)
	users := repository.NewUsersRepository(db)
	creds := repository.NewCredentialsRepository(db)
	ctx := context.Background()

	u := newUser("carol", time.Now().UTC())
	require.NoError(t, users.Create(ctx, u))
	require.NoError(t, creds.UpsertTx(ctx, db, &domain.UserPassword{
		UserID: u.ID, PasswordHash: "h1", PasswordUpdatedAt: time.Now().UTC(),
	}))

	u.Email = "carol@acme.test"
	u.IsSuperuser = true
	require.NoError(t, users.UpdateTx(ctx, db, u))
	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol@acme.test", got.Email)
	assert.True(t, got.IsSuperuser)

	require.NoError(t, users.DeleteTx(ctx, db, u.ID))
	_, err = creds.GetByUserID(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound, "credentials should cascade")
	assert.ErrorIs(t, users.DeleteTx(ctx, db, u.ID), domain.ErrUserNotFound)
}

func TestCredentialsRepository_Upsert(t *testing.T) {
	db := testdb.New(t)
	users := repository.NewUsersRepository(db)
	creds := repository.NewCredentialsRepository(db)
	ctx := context.Background()

	u := newUser("dave", time.Now().UTC())
	require.NoError(t, users.Create(ctx, u))

	require.NoError(t, creds.UpsertTx(ctx, db, &domain.UserPassword{UserID: u.ID, PasswordHash: "first", PasswordUpdatedAt: time.Now().UTC()}))
	require.NoError(t, creds.UpsertTx(ctx, db, &domain.UserPassword{UserID: u.ID, PasswordHash: "second", PasswordUpdatedAt: time.Now().UTC()}))

	got, err := creds.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.PasswordHash)
}
