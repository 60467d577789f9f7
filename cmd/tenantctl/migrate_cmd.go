package main

import (
	"github.com/spf13/cobra"
	"github.com/tendant/simple-tenant/pkg/repository"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			c.logger().InfoContext(cmd.Context(), "migrations applied")
			return nil
		},
	}
}
