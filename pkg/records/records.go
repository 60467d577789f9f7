// Package records holds the tenant-scoped business entities and the stores
// that persist them through the gateway.
package records

import (
	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/gateway"
)

// Purchase order statuses.
const (
	StatusDraft    = "draft"
	StatusOpen     = "open"
	StatusReceived = "received"
	StatusCanceled = "canceled"
)

type Supplier struct {
	gateway.Base
	Name         string `db:"name" json:"name"`
	ContactEmail string `db:"contact_email" json:"contact_email"`
}

func (*Supplier) Table() string { return "suppliers" }
func (*Supplier) Model() string { return domain.ModelSupplier }

func (s *Supplier) Fields() map[string]any {
	return map[string]any{"name": s.Name, "contact_email": s.ContactEmail}
}

type Customer struct {
	gateway.Base
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

func (*Customer) Table() string { return "customers" }
func (*Customer) Model() string { return domain.ModelCustomer }

func (c *Customer) Fields() map[string]any {
	return map[string]any{"name": c.Name, "email": c.Email}
}

// PurchaseOrder references a Supplier of the same tenant.
type PurchaseOrder struct {
	gateway.Base
	SupplierID uuid.UUID `db:"supplier_id" json:"supplier_id"`
	Number     string    `db:"number" json:"number"`
	Status     string    `db:"status" json:"status"`
}

func (*PurchaseOrder) Table() string { return "purchase_orders" }
func (*PurchaseOrder) Model() string { return domain.ModelPurchaseOrder }

func (p *PurchaseOrder) Fields() map[string]any {
	return map[string]any{"supplier_id": p.SupplierID.String(), "number": p.Number, "status": p.Status}
}

// Invoice references a Customer of the same tenant.
type Invoice struct {
	gateway.Base
	CustomerID  uuid.UUID `db:"customer_id" json:"customer_id"`
	Number      string    `db:"number" json:"number"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
}

func (*Invoice) Table() string { return "invoices" }
func (*Invoice) Model() string { return domain.ModelInvoice }

func (i *Invoice) Fields() map[string]any {
	return map[string]any{"customer_id": i.CustomerID.String(), "number": i.Number, "amount_cents": i.AmountCents}
}
