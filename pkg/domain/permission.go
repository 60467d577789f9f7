package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action is a per-model permission verb on the administrative surface.
type Action string

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
)

// AllActions lists every action in grant order.
var AllActions = []Action{ActionView, ActionAdd, ActionChange, ActionDelete}

// Domain model names used in permission grants and quotas.
const (
	ModelSupplier      = "supplier"
	ModelCustomer      = "customer"
	ModelPurchaseOrder = "purchase_order"
	ModelInvoice       = "invoice"
)

// DomainModels lists the tenant-scoped business models.
var DomainModels = []string{ModelSupplier, ModelCustomer, ModelPurchaseOrder, ModelInvoice}

// PermissionGrant is an explicit (user, tenant, model, action) grant.
// Staff status alone never implies a grant.
type PermissionGrant struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	UserID    uuid.UUID `db:"user_id"`
	Model     string    `db:"model"`
	Action    Action    `db:"action"`
	CreatedAt time.Time `db:"created_at"`
}

// Permission is a (model, action) pair.
type Permission struct {
	Model  string
	Action Action
}

// ModelPermissions expands models × actions into a grant list.
func ModelPermissions(models []string, actions []Action) []Permission {
	out := make([]Permission, 0, len(models)*len(actions))
	for _, m := range models {
		for _, a := range actions {
			out = append(out, Permission{Model: m, Action: a})
		}
	}
	return out
}
