package tenancy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/pkg/domain"
)

// GrantStore reads explicit per-model permission grants.
type GrantStore interface {
	HasGrant(ctx context.Context, tenantID, userID uuid.UUID, model string, action domain.Action) (bool, error)
}

// Permissions gates the administrative surface.
type Permissions struct {
	grants GrantStore
}

// NewPermissions creates a permission checker.
func NewPermissions(grants GrantStore) *Permissions {
	return &Permissions{grants: grants}
}

// Check allows system authority outright. Otherwise the user must be staff,
// hold a role in the resolved tenant, and hold an explicit grant for
// (model, action) in that same tenant.
func (p *Permissions) Check(ctx context.Context, tc domain.TenantContext, user *domain.User, model string, action domain.Action) error {
	if tc.IsSystemAuthority {
		return nil
	}
	if !tc.HasTenant() {
		return domain.ErrNoTenant
	}
	if user == nil || user.ID != tc.UserID || !user.IsStaff || tc.Authority() != domain.AuthorityTenant {
		return domain.ErrForbidden
	}

	ok, err := p.grants.HasGrant(ctx, tc.TenantID, user.ID, model, action)
	if err != nil {
		return fmt.Errorf("permission check: %w", err)
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

// Require checks a role capability against the resolved tenant.
func Require(tc domain.TenantContext, c domain.Capability) error {
	if !tc.IsSystemAuthority && !tc.HasTenant() {
		return domain.ErrNoTenant
	}
	if !tc.Can(c) {
		return domain.ErrForbidden
	}
	return nil
}
