package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-tenant/internal/config"
	"github.com/tendant/simple-tenant/pkg/repository"
)

type cli struct {
	stdout    io.Writer
	stderr    io.Writer
	verbosity int
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Provision and maintain a simple-tenant database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(c.stdout)
	cmd.SetErr(c.stderr)
	cmd.PersistentFlags().CountVarP(&c.verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")

	cmd.AddCommand(newMigrateCmd(c))
	cmd.AddCommand(newBootstrapCmd(c))
	cmd.AddCommand(newRecordsCmd(c))
	cmd.AddCommand(newGuestCmd(c))
	return cmd
}

func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	cmd := newRootCmd(c)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "tenantctl: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) logger() *slog.Logger {
	level := slog.LevelWarn
	switch {
	case c.verbosity >= 2:
		level = slog.LevelDebug
	case c.verbosity == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
}

func (c *cli) openDB(ctx context.Context) (*sqlx.DB, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}
	db, err := repository.NewDB(cfg.Repository())
	if err != nil {
		return nil, err
	}
	c.logger().DebugContext(ctx, "connected to database", "driver", cfg.Driver)
	return db, nil
}

func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
