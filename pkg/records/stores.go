package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/pkg/auth"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/gateway"
)

// ErrInvalidReference is returned when a record points at a row that does
// not exist in the caller's tenant.
var ErrInvalidReference = errors.New("referenced record not found in tenant")

// ErrInvalidRecord is returned when a record's fields fail validation.
var ErrInvalidRecord = errors.New("invalid record")

// Stores bundles one store per business entity.
type Stores struct {
	Suppliers      *Store[Supplier, *Supplier]
	Customers      *Store[Customer, *Customer]
	PurchaseOrders *Store[PurchaseOrder, *PurchaseOrder]
	Invoices       *Store[Invoice, *Invoice]

	db *sqlx.DB
}

// NewStores builds every store over db.
func NewStores(db *sqlx.DB, tenants TenantLookup, opts gateway.Options) (*Stores, error) {
	quota := NewQuota(tenants)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	suppliers, err := gateway.New[Supplier](db, opts)
	if err != nil {
		return nil, err
	}
	customers, err := gateway.New[Customer](db, opts)
	if err != nil {
		return nil, err
	}
	orders, err := gateway.New[PurchaseOrder](db, opts)
	if err != nil {
		return nil, err
	}
	invoices, err := gateway.New[Invoice](db, opts)
	if err != nil {
		return nil, err
	}

	s := &Stores{
		Suppliers:      NewStore(suppliers, quota, logger),
		Customers:      NewStore(customers, quota, logger),
		PurchaseOrders: NewStore(orders, quota, logger),
		Invoices:       NewStore(invoices, quota, logger),
		db:             db,
	}

	s.Suppliers.before = func(_ context.Context, _ domain.TenantContext, sp *Supplier) error {
		return requireName(&sp.Name)
	}
	s.Customers.before = func(_ context.Context, _ domain.TenantContext, c *Customer) error {
		return requireName(&c.Name)
	}
	s.PurchaseOrders.before = func(ctx context.Context, tc domain.TenantContext, po *PurchaseOrder) error {
		if po.Status == "" {
			po.Status = StatusDraft
		}
		if !validStatus(po.Status) {
			return fmt.Errorf("%w: unknown purchase order status %q", ErrInvalidRecord, po.Status)
		}
		return requireRef(func() error {
			_, err := s.Suppliers.Get(ctx, tc, po.SupplierID)
			return err
		})
	}
	s.Invoices.before = func(ctx context.Context, tc domain.TenantContext, inv *Invoice) error {
		if inv.AmountCents < 0 {
			return fmt.Errorf("%w: negative invoice amount %d", ErrInvalidRecord, inv.AmountCents)
		}
		return requireRef(func() error {
			_, err := s.Customers.Get(ctx, tc, inv.CustomerID)
			return err
		})
	}
	return s, nil
}

func requireName(name *string) error {
	*name = auth.SanitizeName(*name)
	if *name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	return nil
}

func requireRef(get func() error) error {
	err := get()
	if errors.Is(err, domain.ErrRecordNotFound) {
		return ErrInvalidReference
	}
	return err
}

func validStatus(status string) bool {
	switch status {
	case StatusDraft, StatusOpen, StatusReceived, StatusCanceled:
		return true
	}
	return false
}
