package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ResolutionSource names the resolution step that produced a tenant.
type ResolutionSource string

const (
	SourceSelector ResolutionSource = "selector"
	SourceHost     ResolutionSource = "host"
	SourceDefault  ResolutionSource = "default"
	SourceNone     ResolutionSource = "none"
)

// Authority is the outcome of evaluating an identity against a tenant.
type Authority int

const (
	AuthorityUnauthorized Authority = iota
	AuthorityTenant
	AuthoritySystem
)

func (a Authority) String() string {
	switch a {
	case AuthoritySystem:
		return "system"
	case AuthorityTenant:
		return "tenant"
	default:
		return "unauthorized"
	}
}

// TenantContext is the immutable per-request tenant binding handed to
// downstream handlers. TenantID is uuid.Nil when no tenant was resolved.
type TenantContext struct {
	TenantID          uuid.UUID        `json:"tenant_id,omitempty"`
	Role              Role             `json:"role,omitempty"`
	IsSystemAuthority bool             `json:"is_system_authority"`
	Source            ResolutionSource `json:"source"`
	UserID            uuid.UUID        `json:"user_id,omitempty"`
}

// MarshalJSON leaves out tenant_id and user_id when they are unset.
// uuid.UUID is an array, which omitempty never treats as empty.
func (c TenantContext) MarshalJSON() ([]byte, error) {
	type plain TenantContext
	out := struct {
		plain
		TenantID *uuid.UUID `json:"tenant_id,omitempty"`
		UserID   *uuid.UUID `json:"user_id,omitempty"`
	}{plain: plain(c)}
	if c.TenantID != uuid.Nil {
		out.TenantID = &c.TenantID
	}
	if c.UserID != uuid.Nil {
		out.UserID = &c.UserID
	}
	return json.Marshal(out)
}

// NoTenant is the explicit terminal state of resolution.
func NoTenant(userID uuid.UUID, system bool) TenantContext {
	tc := TenantContext{Source: SourceNone, UserID: userID, IsSystemAuthority: system}
	if system {
		tc.Role = RoleOwner
	}
	return tc
}

// HasTenant reports whether a tenant was resolved.
func (c TenantContext) HasTenant() bool {
	return c.TenantID != uuid.Nil
}

// Authority derives the authority state from the context.
func (c TenantContext) Authority() Authority {
	switch {
	case c.IsSystemAuthority:
		return AuthoritySystem
	case c.HasTenant() && c.Role.Valid():
		return AuthorityTenant
	default:
		return AuthorityUnauthorized
	}
}

// Can reports whether the context's role grants capability.
// System authority grants everything.
func (c TenantContext) Can(capability Capability) bool {
	if c.IsSystemAuthority {
		return true
	}
	return c.HasTenant() && c.Role.Can(capability)
}
