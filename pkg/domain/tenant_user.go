package domain

import (
	"time"

	"github.com/google/uuid"
)

// TenantUser binds one user to one tenant with a role.
// At most one active row may exist per (user, tenant) pair.
type TenantUser struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	UserID    uuid.UUID `db:"user_id"`
	Role      Role      `db:"role"`
	IsActive  bool      `db:"is_active"`
	IsPrimary bool      `db:"is_primary"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TenantUserWithTenant combines an association and its tenant for resolution.
type TenantUserWithTenant struct {
	TenantUser TenantUser
	Tenant     Tenant
}
