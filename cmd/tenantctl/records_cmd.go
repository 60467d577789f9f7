package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/gateway"
	"github.com/tendant/simple-tenant/pkg/records"
	"github.com/tendant/simple-tenant/pkg/repository"
)

func newRecordsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect tenant-scoped records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "totals",
		Short: "Count every model across all tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := gateway.WithAdminTooling(cmd.Context())
			return c.withStores(ctx, func(stores *records.Stores, _ *repository.TenantsRepository) error {
				totals, err := stores.Totals(ctx, domain.NoTenant(uuid.Nil, true))
				if err != nil {
					return err
				}
				return c.writeJSON(totals)
			})
		},
	})
	return cmd
}

func newGuestCmd(c *cli) *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "guest",
		Short: "Manage the guest tenant",
	}
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete every record in the guest tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := gateway.WithAdminTooling(cmd.Context())
			return c.withStores(ctx, func(stores *records.Stores, tenants *repository.TenantsRepository) error {
				t, err := tenants.GetBySlug(ctx, slug)
				if errors.Is(err, domain.ErrTenantNotFound) {
					return fmt.Errorf("no tenant with slug %q", slug)
				}
				if err != nil {
					return err
				}
				tc := domain.TenantContext{
					TenantID:          t.ID,
					Role:              domain.RoleOwner,
					IsSystemAuthority: true,
					Source:            domain.SourceSelector,
				}
				counts, err := stores.ResetTenant(ctx, tc, t)
				if err != nil {
					return err
				}
				c.logger().InfoContext(ctx, "tenant reset", "tenant_slug", t.Slug)
				return c.writeJSON(counts)
			})
		},
	}
	reset.Flags().StringVar(&slug, "slug", "guest", "Slug of the tenant to reset")
	cmd.AddCommand(reset)
	return cmd
}

func (c *cli) withStores(ctx context.Context, fn func(*records.Stores, *repository.TenantsRepository) error) error {
	db, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tenants := repository.NewTenantsRepository(db)
	stores, err := records.NewStores(db, tenants, gateway.Options{Logger: c.logger()})
	if err != nil {
		return err
	}
	return fn(stores, tenants)
}
