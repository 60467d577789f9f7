package records

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/repository"
)

// ModelCount is the row count of one model.
type ModelCount struct {
	Model string `json:"model"`
	Rows  int64  `json:"rows"`
}

// Totals counts every model across all tenants.
func (s *Stores) Totals(ctx context.Context, tc domain.TenantContext) ([]ModelCount, error) {
	counters := []struct {
		model string
		count func(context.Context, domain.TenantContext) (int, error)
	}{
		{s.Suppliers.Model(), s.Suppliers.CountAll},
		{s.Customers.Model(), s.Customers.CountAll},
		{s.PurchaseOrders.Model(), s.PurchaseOrders.CountAll},
		{s.Invoices.Model(), s.Invoices.CountAll},
	}
	out := make([]ModelCount, 0, len(counters))
	for _, c := range counters {
		n, err := c.count(ctx, tc)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.model, err)
		}
		out = append(out, ModelCount{Model: c.model, Rows: int64(n)})
	}
	return out, nil
}

// ResetTenant deletes every record of tenant in one transaction. Only
// tenants with AllowDataReset set may be reset; the guest tenant is
// provisioned that way.
func (s *Stores) ResetTenant(ctx context.Context, tc domain.TenantContext, tenant *domain.Tenant) ([]ModelCount, error) {
	if !tenant.Settings.AllowDataReset {
		return nil, fmt.Errorf("reset tenant %s: %w", tenant.Slug, domain.ErrForbidden)
	}
	if tc.TenantID != tenant.ID {
		return nil, fmt.Errorf("reset tenant %s: %w", tenant.Slug, domain.ErrIsolationViolation)
	}

	var out []ModelCount
	err := repository.Tx(ctx, s.db, func(tx *sqlx.Tx) error {
		out = out[:0]
		// children before parents
		purges := []struct {
			model string
			purge func() (int64, error)
		}{
			{s.Invoices.Model(), func() (int64, error) { return s.Invoices.gw.WithTx(tx).ForTenant(tc).Purge(ctx) }},
			{s.PurchaseOrders.Model(), func() (int64, error) { return s.PurchaseOrders.gw.WithTx(tx).ForTenant(tc).Purge(ctx) }},
			{s.Customers.Model(), func() (int64, error) { return s.Customers.gw.WithTx(tx).ForTenant(tc).Purge(ctx) }},
			{s.Suppliers.Model(), func() (int64, error) { return s.Suppliers.gw.WithTx(tx).ForTenant(tc).Purge(ctx) }},
		}
		for _, p := range purges {
			n, err := p.purge()
			if err != nil {
				return fmt.Errorf("purge %s: %w", p.model, err)
			}
			out = append(out, ModelCount{Model: p.model, Rows: n})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
