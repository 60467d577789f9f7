package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/pkg/domain"
)

// MembershipStore reads tenant memberships.
type MembershipStore interface {
	GetActive(ctx context.Context, userID, tenantID uuid.UUID) (*domain.TenantUser, error)
	ListActiveWithTenants(ctx context.Context, userID uuid.UUID) ([]domain.TenantUserWithTenant, error)
}

// Decision is the outcome of authorizing an identity for a tenant.
type Decision struct {
	Authority domain.Authority
	Role      domain.Role
}

// Validator decides whether an identity may act within a tenant.
type Validator struct {
	members MembershipStore
}

// NewValidator creates a new access validator.
func NewValidator(members MembershipStore) *Validator {
	return &Validator{members: members}
}

// Authorize evaluates user against tenantID. Superusers get system
// authority without any membership row; everyone else needs an active
// TenantUser. Staff status grants nothing here.
func (v *Validator) Authorize(ctx context.Context, user *domain.User, tenantID uuid.UUID) (Decision, error) {
	if user == nil || !user.IsActive {
		return Decision{}, domain.ErrForbidden
	}
	if user.IsSuperuser {
		return Decision{Authority: domain.AuthoritySystem, Role: domain.RoleOwner}, nil
	}
	if tenantID == uuid.Nil {
		return Decision{}, domain.ErrNoTenant
	}

	tu, err := v.members.GetActive(ctx, user.ID, tenantID)
	if errors.Is(err, domain.ErrTenantUserNotFound) {
		return Decision{}, domain.ErrForbidden
	}
	if err != nil {
		return Decision{}, fmt.Errorf("authorize: %w", err)
	}
	if !tu.Role.Valid() {
		return Decision{}, fmt.Errorf("authorize: membership %s: %w", tu.ID, domain.ErrInvalidRole)
	}
	return Decision{Authority: domain.AuthorityTenant, Role: tu.Role}, nil
}
