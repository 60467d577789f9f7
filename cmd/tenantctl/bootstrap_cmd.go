package main

import (
	"context"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-tenant/pkg/auth"
	"github.com/tendant/simple-tenant/pkg/bootstrap"
	"github.com/tendant/simple-tenant/pkg/gateway"
	"github.com/tendant/simple-tenant/pkg/repository"
)

type bootstrapFlags struct {
	scope    string
	username string
	email    string
	password string
	guest    bool
	migrate  bool
}

func newBootstrapCmd(c *cli) *cobra.Command {
	var f bootstrapFlags
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Provision the superuser, root tenant and optional guest tenant",
		Long: `Provision the superuser, root tenant and optional guest tenant.

Credentials come from {SCOPE}_SUPERUSER_USERNAME, {SCOPE}_SUPERUSER_EMAIL and
{SCOPE}_SUPERUSER_PASSWORD (and the GUEST_ equivalents); flags override them.
Outside development, local and test environments missing credentials are
fatal and passwords must satisfy the strict policy.`,
	}
	cmd.PersistentFlags().StringVar(&f.scope, "scope", bootstrap.DefaultScope, "Environment variable prefix")
	cmd.PersistentFlags().StringVar(&f.username, "username", "", "Superuser username")
	cmd.PersistentFlags().StringVar(&f.email, "email", "", "Superuser email")
	cmd.PersistentFlags().StringVar(&f.password, "password", "", "Superuser password")
	cmd.PersistentFlags().BoolVar(&f.guest, "guest", false, "Also provision the guest user and tenant")
	cmd.PersistentFlags().BoolVar(&f.migrate, "migrate", false, "Apply migrations first")

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Create or overwrite identities to match the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.bootstrap(cmd.Context(), f, bootstrap.ModeSync)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create missing identities; never overwrite an existing password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.bootstrap(cmd.Context(), f, bootstrap.ModeEnsure)
		},
	})
	return cmd
}

func (c *cli) bootstrap(ctx context.Context, f bootstrapFlags, mode bootstrap.Mode) error {
	plan, err := bootstrap.LoadPlan(f.scope, f.environ())
	if err != nil {
		return err
	}

	db, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if f.migrate {
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
	}

	ctx = gateway.WithAdminTooling(ctx)
	r := bootstrap.New(db, auth.Argon2Hasher{}, c.logger())

	var res *bootstrap.Result
	if mode == bootstrap.ModeEnsure {
		res, err = r.EnsureCreated(ctx, plan)
	} else {
		res, err = r.Sync(ctx, plan)
	}
	if err != nil {
		return err
	}
	return c.writeJSON(res)
}

// environ overlays the flags onto the process environment under the scope
// prefix, so the plan loader sees a single source.
func (f bootstrapFlags) environ() map[string]string {
	environ := env.ToMap(os.Environ())
	prefix := strings.ToUpper(f.scope) + "_"
	set := func(key, value string) {
		if value != "" {
			environ[prefix+key] = value
		}
	}
	set("SUPERUSER_USERNAME", f.username)
	set("SUPERUSER_EMAIL", f.email)
	set("SUPERUSER_PASSWORD", f.password)
	if f.guest {
		environ[prefix+"GUEST_ENABLED"] = "true"
	}
	return environ
}
