// Package bootstrap provisions the superuser, the root tenant and the
// optional guest tenant. Runs are idempotent and may race each other;
// unique constraints plus detect-and-repair keep the end state converged.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/pkg/auth"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/repository"
)

const maxAttempts = 3

// Mode selects how an existing identity is treated.
type Mode int

const (
	// ModeSync overwrites username, email and password on every run.
	ModeSync Mode = iota
	// ModeEnsure creates missing identities and never overwrites an
	// existing password.
	ModeEnsure
)

func (m Mode) String() string {
	if m == ModeEnsure {
		return "ensure"
	}
	return "sync"
}

// Result summarizes a run.
type Result struct {
	Mode              string    `json:"mode"`
	SuperuserID       uuid.UUID `json:"superuser_id"`
	RootTenantID      uuid.UUID `json:"root_tenant_id"`
	GuestUserID       uuid.UUID `json:"guest_user_id"`
	GuestTenantID     uuid.UUID `json:"guest_tenant_id"`
	Created           []string  `json:"created"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	Attempts          int       `json:"attempts"`
}

// Reconciler converges the identity store to a Plan.
type Reconciler struct {
	db      *sqlx.DB
	users   *repository.UsersRepository
	creds   *repository.CredentialsRepository
	tenants *repository.TenantsRepository
	members *repository.TenantUsersRepository
	grants  *repository.GrantsRepository
	hasher  auth.Hasher
	logger  *slog.Logger
}

// New creates a reconciler. A nil hasher selects argon2id.
func New(db *sqlx.DB, hasher auth.Hasher, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		db:      db,
		users:   repository.NewUsersRepository(db),
		creds:   repository.NewCredentialsRepository(db),
		tenants: repository.NewTenantsRepository(db),
		members: repository.NewTenantUsersRepository(db),
		grants:  repository.NewGrantsRepository(db),
		hasher:  hasher,
		logger:  logger,
	}
}

// Sync provisions the plan, overwriting existing credentials.
func (r *Reconciler) Sync(ctx context.Context, plan Plan) (*Result, error) {
	return r.run(ctx, plan, ModeSync)
}

// EnsureCreated provisions the plan, leaving existing passwords alone.
func (r *Reconciler) EnsureCreated(ctx context.Context, plan Plan) (*Result, error) {
	return r.run(ctx, plan, ModeEnsure)
}

func (r *Reconciler) run(ctx context.Context, plan Plan, mode Mode) (*Result, error) {
	plan, err := plan.complete(r.logger)
	if err != nil {
		return nil, err
	}
	svc := auth.NewPasswordService(r.db, r.users, r.creds, r.hasher, plan.PasswordPolicy())
	logger := r.logger.With("mode", mode.String(), "environment", plan.Environment)

	for attempt := 1; ; attempt++ {
		res := &Result{Mode: mode.String(), Attempts: attempt}
		err := repository.Tx(ctx, r.db, func(tx *sqlx.Tx) error {
			return r.apply(ctx, tx, svc, plan, mode, res)
		})
		if err == nil {
			logger.Info("bootstrap complete",
				"superuser_id", res.SuperuserID,
				"root_tenant_id", res.RootTenantID,
				"created", res.Created,
				"duplicates_removed", res.DuplicatesRemoved,
			)
			return res, nil
		}
		if !retryable(err) || attempt >= maxAttempts {
			return nil, err
		}
		// a concurrent run won the insert or held the lock; the next attempt
		// will find its rows
		logger.Warn("bootstrap raced a concurrent run, retrying", "attempt", attempt, "error", err)
	}
}

func retryable(err error) bool {
	return repository.IsUniqueViolation(err) || repository.IsBusy(err)
}

func (r *Reconciler) apply(ctx context.Context, tx *sqlx.Tx, svc *auth.PasswordService, plan Plan, mode Mode, res *Result) error {
	su, err := r.ensureIdentity(ctx, tx, svc, plan.Superuser, accountFlags{superuser: true, staff: true}, mode, res)
	if err != nil {
		return err
	}
	res.SuperuserID = su.ID

	root, err := r.ensureTenant(ctx, tx, plan.RootTenantSlug, plan.RootTenantName, nil, res)
	if err != nil {
		return err
	}
	res.RootTenantID = root.ID
	if err := r.ensureMembership(ctx, tx, su.ID, root.ID, domain.RoleOwner); err != nil {
		return err
	}

	if !plan.GuestEnabled {
		return nil
	}

	guest, err := r.ensureIdentity(ctx, tx, svc, plan.Guest, accountFlags{staff: true}, mode, res)
	if err != nil {
		return err
	}
	res.GuestUserID = guest.ID

	limit := plan.GuestMaxRecords
	guestTenant, err := r.ensureTenant(ctx, tx, plan.GuestTenantSlug, plan.GuestTenantName, func(s *domain.TenantSettings) {
		s.IsGuestTenant = true
		s.MaxRecords = &limit
		s.AllowDataReset = true
	}, res)
	if err != nil {
		return err
	}
	res.GuestTenantID = guestTenant.ID

	if err := r.ensureMembership(ctx, tx, guest.ID, guestTenant.ID, domain.RoleAdmin); err != nil {
		return err
	}
	return r.grants.GrantTx(ctx, tx, guestTenant.ID, guest.ID, domain.ModelPermissions(domain.DomainModels, domain.AllActions))
}

type accountFlags struct {
	superuser bool
	staff     bool
}

func (r *Reconciler) ensureIdentity(ctx context.Context, tx *sqlx.Tx, svc *auth.PasswordService, id Identity, flags accountFlags, mode Mode, res *Result) (*domain.User, error) {
	lookup, err := r.users.LookupByUsernameTx(ctx, tx, id.Username)
	if err != nil {
		return nil, err
	}

	switch lookup.Kind {
	case domain.LookupNotFound:
		user := &domain.User{
			Username:    id.Username,
			Email:       id.Email,
			IsStaff:     flags.staff,
			IsSuperuser: flags.superuser,
			IsActive:    true,
		}
		if err := svc.CreateUserTx(ctx, tx, user, id.Password); err != nil {
			return nil, fmt.Errorf("create %s: %w", id.Username, err)
		}
		res.Created = append(res.Created, "user:"+id.Username)
		return user, r.verify(ctx, tx, svc, user.ID, id)

	case domain.LookupDuplicates:
		if err := r.removeDuplicates(ctx, tx, lookup, res); err != nil {
			return nil, err
		}
	}

	user := lookup.Survivor()
	changed := user.IsSuperuser != flags.superuser || user.IsStaff != flags.staff || !user.IsActive
	user.IsSuperuser, user.IsStaff, user.IsActive = flags.superuser, flags.staff, true

	if mode == ModeSync {
		if err := auth.ValidateEmail(id.Email); err != nil {
			return nil, err
		}
		if email := auth.NormalizeEmail(id.Email); email != user.Email {
			user.Email, changed = email, true
		}
	}
	if changed {
		if err := r.users.UpdateTx(ctx, tx, user); err != nil {
			return nil, err
		}
	}

	writePassword := mode == ModeSync
	if !writePassword {
		_, err := r.creds.GetByUserIDTx(ctx, tx, user.ID)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			// an identity without a credential cannot log in; give it one
			writePassword = true
		case err != nil:
			return nil, err
		}
	}
	if !writePassword {
		return user, nil
	}

	if err := svc.CheckPolicy(id.Password); err != nil {
		return nil, err
	}
	if err := svc.SetPasswordTx(ctx, tx, user.ID, id.Password); err != nil {
		return nil, err
	}
	return user, r.verify(ctx, tx, svc, user.ID, id)
}

// verify re-reads the stored identity and checks the password just written.
func (r *Reconciler) verify(ctx context.Context, tx *sqlx.Tx, svc *auth.PasswordService, userID uuid.UUID, id Identity) error {
	stored, err := r.users.GetByIDTx(ctx, tx, userID)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrBootstrapVerification, id.Username, err)
	}
	ok, err := svc.CheckPasswordTx(ctx, tx, stored.ID, id.Password)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrBootstrapVerification, id.Username, err)
	}
	if !ok || !stored.IsActive {
		return fmt.Errorf("%w: %s", domain.ErrBootstrapVerification, id.Username)
	}
	return nil
}

// removeDuplicates keeps the earliest row of lookup and folds the rest
// into it.
func (r *Reconciler) removeDuplicates(ctx context.Context, tx *sqlx.Tx, lookup domain.UserLookup, res *Result) error {
	keep := lookup.Survivor()
	extras := lookup.Extras()
	for _, extra := range extras {
		if err := r.members.ReassignUserTx(ctx, tx, extra.ID, keep.ID); err != nil {
			return err
		}
		if err := r.grants.DeleteByUserTx(ctx, tx, extra.ID); err != nil {
			return err
		}
		if err := r.users.DeleteTx(ctx, tx, extra.ID); err != nil {
			return err
		}
	}
	res.DuplicatesRemoved += len(extras)
	r.logger.WarnContext(ctx, "duplicate identities removed",
		"username", keep.Username,
		"count", len(extras),
		"kept_id", keep.ID,
		"kept_created_at", keep.CreatedAt,
	)
	return nil
}

func (r *Reconciler) ensureTenant(ctx context.Context, tx *sqlx.Tx, slug, name string, configure func(*domain.TenantSettings), res *Result) (*domain.Tenant, error) {
	now := time.Now().UTC()
	candidate := &domain.Tenant{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      auth.SanitizeName(name),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if configure != nil {
		configure(&candidate.Settings)
	}

	tenant, inserted, err := r.tenants.GetOrCreateTx(ctx, tx, candidate)
	if err != nil {
		return nil, err
	}
	if inserted {
		res.Created = append(res.Created, "tenant:"+slug)
		return tenant, nil
	}
	if !tenant.IsActive {
		r.logger.WarnContext(ctx, "bootstrap tenant is inactive", "tenant_slug", slug)
	}
	if configure == nil {
		return tenant, nil
	}

	settings := tenant.Settings
	configure(&settings)
	if !sameSettings(settings, tenant.Settings) {
		if err := r.tenants.UpdateSettingsTx(ctx, tx, tenant.ID, settings); err != nil {
			return nil, err
		}
		tenant.Settings = settings
	}
	return tenant, nil
}

// ensureMembership leaves exactly one active row for (user, tenant).
func (r *Reconciler) ensureMembership(ctx context.Context, tx *sqlx.Tx, userID, tenantID uuid.UUID, role domain.Role) error {
	rows, err := r.members.ListActiveForPairTx(ctx, tx, userID, tenantID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		now := time.Now().UTC()
		return r.members.CreateTx(ctx, tx, &domain.TenantUser{
			ID:        uuid.New(),
			TenantID:  tenantID,
			UserID:    userID,
			Role:      role,
			IsActive:  true,
			IsPrimary: true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	for _, extra := range rows[1:] {
		if err := r.members.DeactivateTx(ctx, tx, extra.ID); err != nil {
			return err
		}
	}
	if len(rows) > 1 {
		r.logger.WarnContext(ctx, "extra active memberships deactivated",
			"user_id", userID, "tenant_id", tenantID, "count", len(rows)-1)
	}
	if rows[0].Role != role {
		return r.members.UpdateRoleTx(ctx, tx, rows[0].ID, role)
	}
	return nil
}

func sameSettings(a, b domain.TenantSettings) bool {
	av, err := a.Value()
	if err != nil {
		return false
	}
	bv, err := b.Value()
	if err != nil {
		return false
	}
	return av == bv
}
