package domain

import "fmt"

// Role is a tenant-scoped capability level.
// Roles are ordered: owner ⊃ admin ⊃ manager ⊃ user ⊃ readonly.
type Role string

const (
	RoleReadonly Role = "readonly"
	RoleUser     Role = "user"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

var roleRank = map[Role]int{
	RoleReadonly: 1,
	RoleUser:     2,
	RoleManager:  3,
	RoleAdmin:    4,
	RoleOwner:    5,
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Includes reports whether r carries every capability of other.
func (r Role) Includes(other Role) bool {
	if !r.Valid() || !other.Valid() {
		return false
	}
	return roleRank[r] >= roleRank[other]
}

// Capability is a tenant-level action gated by role.
type Capability string

const (
	CapView          Capability = "view"
	CapAdd           Capability = "add"
	CapChange        Capability = "change"
	CapDelete        Capability = "delete"
	CapManageMembers Capability = "manage_members"
	CapManageTenant  Capability = "manage_tenant"
	CapTransferOwner Capability = "transfer_ownership"
)

// minimum role holding each capability
var capabilityFloor = map[Capability]Role{
	CapView:          RoleReadonly,
	CapAdd:           RoleUser,
	CapChange:        RoleUser,
	CapDelete:        RoleManager,
	CapManageMembers: RoleAdmin,
	CapManageTenant:  RoleOwner,
	CapTransferOwner: RoleOwner,
}

// Can reports whether r grants capability c.
func (r Role) Can(c Capability) bool {
	floor, ok := capabilityFloor[c]
	if !ok {
		return false
	}
	return r.Includes(floor)
}
