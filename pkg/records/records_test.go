package records_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tenant/internal/testdb"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/gateway"
	"github.com/tendant/simple-tenant/pkg/records"
	"github.com/tendant/simple-tenant/pkg/repository"
)

type env struct {
	stores  *records.Stores
	tenants *repository.TenantsRepository
}

func setup(t *testing.T) env {
	t.Helper()
	db := testdb.New(t)
	tenants := repository.NewTenantsRepository(db)
	stores, err := records.NewStores(db, tenants, gateway.Options{})
	require.NoError(t, err)
	return env{stores: stores, tenants: tenants}
}

func (e env) tenant(t *testing.T, slug string, settings domain.TenantSettings) domain.TenantContext {
	t.Helper()
	now := time.Now().UTC()
	tenant := &domain.Tenant{
		ID: uuid.New(), Slug: slug, Name: slug, IsActive: true,
		Settings: settings, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, e.tenants.Create(context.Background(), tenant))
	return domain.TenantContext{TenantID: tenant.ID, Role: domain.RoleAdmin, Source: domain.SourceSelector, UserID: uuid.New()}
}

func TestQuota_GuestTenantCapsRecords(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	limit := 100
	guest := e.tenant(t, "guest", domain.TenantSettings{IsGuestTenant: true, MaxRecords: &limit})
	open := e.tenant(t, "acme", domain.TenantSettings{})

	for i := 0; i < limit; i++ {
		require.NoError(t, e.stores.Customers.Create(ctx, guest, &records.Customer{Name: fmt.Sprintf("c%03d", i)}))
	}
	err := e.stores.Customers.Create(ctx, guest, &records.Customer{Name: "one too many"})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	n, err := e.stores.Customers.Count(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, limit, n)

	// the cap counts per model
	require.NoError(t, e.stores.Suppliers.Create(ctx, guest, &records.Supplier{Name: "s"}))

	for i := 0; i <= limit; i++ {
		require.NoError(t, e.stores.Customers.Create(ctx, open, &records.Customer{Name: fmt.Sprintf("c%03d", i)}))
	}
}

func TestQuota_ModelOverride(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	limit := 50
	tc := e.tenant(t, "acme", domain.TenantSettings{MaxRecords: &limit, ModelQuotas: map[string]int{domain.ModelSupplier: 1}})

	require.NoError(t, e.stores.Suppliers.Create(ctx, tc, &records.Supplier{Name: "first"}))
	assert.ErrorIs(t, e.stores.Suppliers.Create(ctx, tc, &records.Supplier{Name: "second"}), domain.ErrQuotaExceeded)
	require.NoError(t, e.stores.Customers.Create(ctx, tc, &records.Customer{Name: "fine"}))
}

func TestStores_CrossTenantReference(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	acme := e.tenant(t, "acme", domain.TenantSettings{})
	beta := e.tenant(t, "beta", domain.TenantSettings{})

	supplier := &records.Supplier{Name: "Widgets Inc"}
	require.NoError(t, e.stores.Suppliers.Create(ctx, acme, supplier))

	err := e.stores.PurchaseOrders.Create(ctx, beta, &records.PurchaseOrder{SupplierID: supplier.ID, Number: "PO-1"})
	assert.ErrorIs(t, err, records.ErrInvalidReference)

	po := &records.PurchaseOrder{SupplierID: supplier.ID, Number: "PO-1"}
	require.NoError(t, e.stores.PurchaseOrders.Create(ctx, acme, po))
	assert.Equal(t, records.StatusDraft, po.Status)

	got, err := e.stores.PurchaseOrders.Get(ctx, acme, po.ID)
	require.NoError(t, err)
	assert.Equal(t, supplier.ID, got.SupplierID)
	assert.Equal(t, acme.TenantID, got.TenantID.UUID)

	po.Status = "shipped-ish"
	assert.Error(t, e.stores.PurchaseOrders.Update(ctx, acme, po))
}

func TestStores_InvoiceLifecycle(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	acme := e.tenant(t, "acme", domain.TenantSettings{})
	beta := e.tenant(t, "beta", domain.TenantSettings{})

	customer := &records.Customer{Name: "Jane", Email: "jane@example.com"}
	require.NoError(t, e.stores.Customers.Create(ctx, acme, customer))

	inv := &records.Invoice{CustomerID: customer.ID, Number: "INV-1", AmountCents: 1250}
	require.NoError(t, e.stores.Invoices.Create(ctx, acme, inv))

	assert.ErrorIs(t, e.stores.Invoices.Create(ctx, acme, &records.Invoice{CustomerID: customer.ID, AmountCents: -1}), records.ErrInvalidRecord)

	inv.AmountCents = 2000
	require.NoError(t, e.stores.Invoices.Update(ctx, acme, inv))

	list, err := e.stores.Invoices.List(ctx, acme, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2000), list[0].AmountCents)

	empty, err := e.stores.Invoices.List(ctx, beta, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.ErrorIs(t, e.stores.Invoices.Delete(ctx, beta, inv.ID), domain.ErrRecordNotFound)
	require.NoError(t, e.stores.Invoices.Delete(ctx, acme, inv.ID))
}

func TestResetTenant(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	guest := e.tenant(t, "guest", domain.TenantSettings{IsGuestTenant: true, AllowDataReset: true})
	acme := e.tenant(t, "acme", domain.TenantSettings{})

	for _, tc := range []domain.TenantContext{guest, acme} {
		supplier := &records.Supplier{Name: "s"}
		require.NoError(t, e.stores.Suppliers.Create(ctx, tc, supplier))
		require.NoError(t, e.stores.PurchaseOrders.Create(ctx, tc, &records.PurchaseOrder{SupplierID: supplier.ID, Number: "PO-1"}))
		require.NoError(t, e.stores.Customers.Create(ctx, tc, &records.Customer{Name: "c"}))
	}

	guestTenant, err := e.tenants.GetByID(ctx, guest.TenantID)
	require.NoError(t, err)
	acmeTenant, err := e.tenants.GetByID(ctx, acme.TenantID)
	require.NoError(t, err)

	_, err = e.stores.ResetTenant(ctx, acme, acmeTenant)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.stores.ResetTenant(ctx, acme, guestTenant)
	assert.ErrorIs(t, err, domain.ErrIsolationViolation)

	counts, err := e.stores.ResetTenant(ctx, guest, guestTenant)
	require.NoError(t, err)
	assert.Equal(t, []records.ModelCount{
		{Model: domain.ModelInvoice, Rows: 0},
		{Model: domain.ModelPurchaseOrder, Rows: 1},
		{Model: domain.ModelCustomer, Rows: 1},
		{Model: domain.ModelSupplier, Rows: 1},
	}, counts)

	n, err := e.stores.Suppliers.Count(ctx, guest)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = e.stores.Suppliers.Count(ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other tenants are untouched")
}

func TestTotals_NeedsAdminTooling(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	for _, slug := range []string{"acme", "beta"} {
		tc := e.tenant(t, slug, domain.TenantSettings{})
		require.NoError(t, e.stores.Customers.Create(ctx, tc, &records.Customer{Name: slug}))
	}

	system := domain.NoTenant(uuid.New(), true)
	_, err := e.stores.Totals(ctx, system)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	totals, err := e.stores.Totals(gateway.WithAdminTooling(ctx), system)
	require.NoError(t, err)
	require.Len(t, totals, 4)
	assert.Equal(t, records.ModelCount{Model: domain.ModelCustomer, Rows: 2}, totals[1])
}
