package bootstrap_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tenant/internal/testdb"
	"github.com/tendant/simple-tenant/pkg/bootstrap"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/repository"
)

// plainHasher keeps tests fast; argon2 is covered in pkg/auth.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "plain$" + pw, nil }
func (plainHasher) Verify(pw, enc string) bool     { return enc == "plain$"+pw }

// lossyHasher stores something its Verify never accepts.
type lossyHasher struct{ plainHasher }

func (lossyHasher) Verify(string, string) bool { return false }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testPlan() bootstrap.Plan {
	return bootstrap.Plan{
		Environment:     "test",
		Superuser:       bootstrap.Identity{Username: "admin", Email: "admin@example.com", Password: "first-password"},
		RootTenantSlug:  "root",
		RootTenantName:  "Root",
		GuestEnabled:    true,
		Guest:           bootstrap.Identity{Username: "guest", Email: "guest@example.com", Password: "guest-password"},
		GuestTenantSlug: "guest",
		GuestTenantName: "Guest",
		GuestMaxRecords: 100,
	}
}

type snapshot struct {
	Users, Tenants, ActiveMembers, Grants int
	Hashes                                string
}

func snap(t *testing.T, db *sqlx.DB) snapshot {
	t.Helper()
	var s snapshot
	require.NoError(t, db.Get(&s.Users, `SELECT COUNT(*) FROM users`))
	require.NoError(t, db.Get(&s.Tenants, `SELECT COUNT(*) FROM tenants`))
	require.NoError(t, db.Get(&s.ActiveMembers, `SELECT COUNT(*) FROM tenant_users WHERE is_active = TRUE`))
	require.NoError(t, db.Get(&s.Grants, `SELECT COUNT(*) FROM permission_grants`))
	var hashes []string
	require.NoError(t, db.Select(&hashes, `SELECT password_hash FROM user_password ORDER BY user_id`))
	s.Hashes = strings.Join(hashes, ",")
	return s
}

func TestReconciler_Idempotent(t *testing.T) {
	for _, mode := range []string{"sync", "ensure"} {
		t.Run(mode, func(t *testing.T) {
			db := testdb.New(t)
			r := bootstrap.New(db, plainHasher{}, quiet)
			ctx := context.Background()
			run := r.Sync
			if mode == "ensure" {
				run = r.EnsureCreated
			}

			first, err := run(ctx, testPlan())
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"user:admin", "tenant:root", "user:guest", "tenant:guest"}, first.Created)
			want := snap(t, db)
			assert.Equal(t, snapshot{Users: 2, Tenants: 2, ActiveMembers: 2, Grants: 16, Hashes: want.Hashes}, want)

			for i := 0; i < 3; i++ {
				again, err := run(ctx, testPlan())
				require.NoError(t, err)
				assert.Empty(t, again.Created)
				assert.Equal(t, first.SuperuserID, again.SuperuserID)
				assert.Equal(t, first.GuestTenantID, again.GuestTenantID)
				assert.Equal(t, want, snap(t, db))
			}
		})
	}
}

func TestReconciler_ConcurrentRunsConverge(t *testing.T) {
	ctx := context.Background()

	want := testdb.New(t)
	_, err := bootstrap.New(want, plainHasher{}, quiet).Sync(ctx, testPlan())
	require.NoError(t, err)

	db := testdb.New(t)
	const runs = 6
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := range runs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = bootstrap.New(db, plainHasher{}, quiet).Sync(ctx, testPlan())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "run %d", i)
	}
	got, exp := snap(t, db), snap(t, want)
	assert.Equal(t, exp.Users, got.Users)
	assert.Equal(t, exp.Tenants, got.Tenants)
	assert.Equal(t, exp.ActiveMembers, got.ActiveMembers)
	assert.Equal(t, exp.Grants, got.Grants)
}

func TestReconciler_SyncRotatesEnsureKeeps(t *testing.T) {
	db := testdb.New(t)
	r := bootstrap.New(db, plainHasher{}, quiet)
	ctx := context.Background()
	creds := repository.NewCredentialsRepository(db)

	res, err := r.Sync(ctx, testPlan())
	require.NoError(t, err)

	rotated := testPlan()
	rotated.Superuser.Password = "second-password"
	rotated.Superuser.Email = "Root@Example.com"

	_, err = r.EnsureCreated(ctx, rotated)
	require.NoError(t, err)
	cred, err := creds.GetByUserID(ctx, res.SuperuserID)
	require.NoError(t, err)
	assert.Equal(t, "plain$first-password", cred.PasswordHash)

	_, err = r.Sync(ctx, rotated)
	require.NoError(t, err)
	cred, err = creds.GetByUserID(ctx, res.SuperuserID)
	require.NoError(t, err)
	assert.Equal(t, "plain$second-password", cred.PasswordHash)

	user, err := repository.NewUsersRepository(db).GetByID(ctx, res.SuperuserID)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", user.Email)
	assert.True(t, user.IsSuperuser)
}

func TestReconciler_RepairsDuplicates(t *testing.T) {
	db := testdb.New(t)
	testdb.DropUsernameUniqueness(t, db)
	ctx := context.Background()
	users := repository.NewUsersRepository(db)
	members := repository.NewTenantUsersRepository(db)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	early := &domain.User{ID: uuid.New(), Username: "admin", Email: "admin@example.com", IsSuperuser: true, IsStaff: true, IsActive: true,
		CreatedAt: day.Add(9 * time.Hour), UpdatedAt: day.Add(9 * time.Hour)}
	late := &domain.User{ID: uuid.New(), Username: "admin", Email: "admin@example.com", IsSuperuser: true, IsStaff: true, IsActive: true,
		CreatedAt: day.Add(9*time.Hour + 5*time.Minute), UpdatedAt: day.Add(9*time.Hour + 5*time.Minute)}
	require.NoError(t, users.Create(ctx, late))
	require.NoError(t, users.Create(ctx, early))

	// the later duplicate holds the only root membership
	root := &domain.Tenant{ID: uuid.New(), Slug: "root", Name: "Root", IsActive: true, CreatedAt: day, UpdatedAt: day}
	require.NoError(t, repository.NewTenantsRepository(db).Create(ctx, root))
	require.NoError(t, members.CreateTx(ctx, db, &domain.TenantUser{
		ID: uuid.New(), TenantID: root.ID, UserID: late.ID, Role: domain.RoleUser, IsActive: true, CreatedAt: day, UpdatedAt: day,
	}))

	plan := testPlan()
	plan.GuestEnabled = false
	res, err := bootstrap.New(db, plainHasher{}, quiet).Sync(ctx, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, res.DuplicatesRemoved)
	assert.Equal(t, early.ID, res.SuperuserID)
	assert.Equal(t, root.ID, res.RootTenantID)

	n, err := users.CountByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = users.GetByID(ctx, late.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	tu, err := members.GetActive(ctx, early.ID, root.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, tu.Role)
	n, err = members.CountActiveForPair(ctx, early.ID, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconciler_VerificationFailureRollsBack(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	_, err := bootstrap.New(db, lossyHasher{}, quiet).Sync(ctx, testPlan())
	assert.ErrorIs(t, err, domain.ErrBootstrapVerification)

	assert.Equal(t, snapshot{}, snap(t, db))
}

func TestReconciler_StrictEnvironment(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	r := bootstrap.New(db, plainHasher{}, quiet)

	plan := testPlan()
	plan.Environment = "production"
	plan.Superuser.Password = ""
	_, err := r.Sync(ctx, plan)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)

	plan.Superuser.Password = "short"
	_, err = r.Sync(ctx, plan)
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	plan.Superuser.Password = "Rotate-Me-2026"
	plan.Guest.Password = "Guest-Pass-2026"
	_, err = r.Sync(ctx, plan)
	require.NoError(t, err)
}

func TestReconciler_LenientDefaults(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	plan := bootstrap.Plan{Environment: "development", RootTenantSlug: "root", RootTenantName: "Root"}
	res, err := bootstrap.New(db, plainHasher{}, quiet).EnsureCreated(ctx, plan)
	require.NoError(t, err)

	user, err := repository.NewUsersRepository(db).GetByID(ctx, res.SuperuserID)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, uuid.Nil, res.GuestTenantID)
}

func TestReconciler_GuestTenantSettings(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()
	res, err := bootstrap.New(db, plainHasher{}, quiet).Sync(ctx, testPlan())
	require.NoError(t, err)

	tenant, err := repository.NewTenantsRepository(db).GetByID(ctx, res.GuestTenantID)
	require.NoError(t, err)
	assert.True(t, tenant.IsGuest())
	assert.True(t, tenant.Settings.AllowDataReset)
	limit, ok := tenant.Settings.QuotaFor(domain.ModelCustomer)
	assert.True(t, ok)
	assert.Equal(t, 100, limit)

	grants := repository.NewGrantsRepository(db)
	for _, model := range domain.DomainModels {
		ok, err := grants.HasGrant(ctx, res.GuestTenantID, res.GuestUserID, model, domain.ActionDelete)
		require.NoError(t, err)
		assert.True(t, ok, model)
	}
	ok, err = grants.HasGrant(ctx, res.RootTenantID, res.GuestUserID, domain.ModelCustomer, domain.ActionView)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadPlan(t *testing.T) {
	plan, err := bootstrap.LoadPlan("acme", map[string]string{
		"ENVIRONMENT_NAME":        "staging",
		"ACME_SUPERUSER_USERNAME": "ops",
		"ACME_SUPERUSER_EMAIL":    "ops@acme.test",
		"ACME_SUPERUSER_PASSWORD": "Rotate-Me-2026",
		"ACME_GUEST_ENABLED":      "true",
		"ACME_GUEST_MAX_RECORDS":  "25",
		"APP_SUPERUSER_USERNAME":  "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "staging", plan.Environment)
	assert.True(t, plan.Strict())
	assert.Equal(t, "ops", plan.Superuser.Username)
	assert.Equal(t, "Rotate-Me-2026", plan.Superuser.Password)
	assert.True(t, plan.GuestEnabled)
	assert.Equal(t, 25, plan.GuestMaxRecords)
	assert.Equal(t, "root", plan.RootTenantSlug)
	assert.Equal(t, "guest", plan.GuestTenantSlug)

	plan, err = bootstrap.LoadPlan("", map[string]string{"ENVIRONMENT_NAME": "local"})
	require.NoError(t, err)
	assert.False(t, plan.Strict())
	assert.Nil(t, plan.PasswordPolicy())
}

func TestLoadPlan_MissingEnvironmentIsStrict(t *testing.T) {
	plan, err := bootstrap.LoadPlan("", map[string]string{})
	require.NoError(t, err)
	assert.Empty(t, plan.Environment)
	assert.True(t, plan.Strict())
	assert.NotNil(t, plan.PasswordPolicy())

	db := testdb.New(t)
	_, err = bootstrap.New(db, plainHasher{}, quiet).Sync(context.Background(), plan)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Equal(t, snapshot{}, snap(t, db))
}
