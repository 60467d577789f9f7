// Package gateway is the only sanctioned path to tenant-scoped tables.
// Every statement it builds carries a tenant_id predicate derived from the
// request's TenantContext.
package gateway

import (
	"context"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/repository"
	"github.com/tendant/simple-tenant/pkg/tenancy"
)

// Options configures a Gateway.
type Options struct {
	// UnscopedWhenNoTenant makes ForTenant return every row when no tenant
	// was resolved. It is honored only in binaries built with the
	// tenantdebug tag; elsewhere New refuses it.
	UnscopedWhenNoTenant bool
	Logger               *slog.Logger
}

// Gateway reads and writes records of type T on behalf of a tenant.
type Gateway[T any, PT RecordPtr[T]] struct {
	db       *sqlx.DB
	q        repository.Querier
	table    string
	builder  sq.StatementBuilderType
	unscoped bool
	logger   *slog.Logger
}

// New builds a gateway for T.
func New[T any, PT RecordPtr[T]](db *sqlx.DB, opts Options) (*Gateway[T, PT], error) {
	if opts.UnscopedWhenNoTenant && !debugBuild {
		return nil, domain.ErrDebugUnavailable
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var zero T
	g := &Gateway[T, PT]{
		db:       db,
		q:        db,
		table:    PT(&zero).Table(),
		builder:  sq.StatementBuilder.PlaceholderFormat(placeholderFor(db.DriverName())),
		unscoped: opts.UnscopedWhenNoTenant,
		logger:   logger.With("table", PT(&zero).Table()),
	}
	if g.unscoped {
		g.logger.Warn("gateway returns unscoped rows when no tenant resolves (tenantdebug build)")
	}
	return g, nil
}

func placeholderFor(driver string) sq.PlaceholderFormat {
	if driver == repository.DriverPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Table returns the backing table name.
func (g *Gateway[T, PT]) Table() string {
	return g.table
}

// WithTx returns a gateway bound to tx.
func (g *Gateway[T, PT]) WithTx(tx *sqlx.Tx) *Gateway[T, PT] {
	c := *g
	c.q = tx
	return &c
}

// InTx runs fn with a gateway bound to a fresh transaction.
func (g *Gateway[T, PT]) InTx(ctx context.Context, fn func(g *Gateway[T, PT]) error) error {
	return repository.Tx(ctx, g.db, func(tx *sqlx.Tx) error {
		return fn(g.WithTx(tx))
	})
}

// ForTenant returns a query restricted to tc's tenant. With no tenant the
// query is empty and issues no SQL.
func (g *Gateway[T, PT]) ForTenant(tc domain.TenantContext) *Query[T, PT] {
	q := &Query[T, PT]{g: g, tc: tc, sel: g.builder.Select("*").From(g.table)}
	switch {
	case tc.HasTenant():
		q.sel = q.sel.Where(sq.Eq{"tenant_id": tc.TenantID.String()})
	case g.unscoped:
		q.unscoped = true
	default:
		q.empty = true
	}
	return q
}

// AllTenants returns an unfiltered query for operator tooling. It requires
// system authority and a context marked by WithAdminTooling.
func (g *Gateway[T, PT]) AllTenants(ctx context.Context, tc domain.TenantContext) (*Query[T, PT], error) {
	if !tc.IsSystemAuthority || !IsAdminTooling(ctx) {
		return nil, domain.ErrForbidden
	}
	g.logger.InfoContext(ctx, "cross-tenant query", "user_id", tc.UserID)
	return &Query[T, PT]{g: g, tc: tc, sel: g.builder.Select("*").From(g.table), unscoped: true}, nil
}

// CreateFor stamps rec with tc's tenant and inserts it. A record already
// stamped with another tenant is an isolation violation.
func (g *Gateway[T, PT]) CreateFor(ctx context.Context, tc domain.TenantContext, rec PT) error {
	b := rec.base()
	switch {
	case tc.HasTenant():
		if b.TenantID.Valid && b.TenantID.UUID != tc.TenantID {
			return g.violation(ctx, tc, b.TenantID.UUID, "create")
		}
		b.TenantID = uuid.NullUUID{UUID: tc.TenantID, Valid: true}
	case !g.unscoped:
		return domain.ErrNoTenant
	}

	now := time.Now().UTC()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt, b.UpdatedAt = now, now

	values := rec.Fields()
	values["id"] = b.ID
	values["tenant_id"] = b.TenantID
	values["created_at"] = b.CreatedAt
	values["updated_at"] = b.UpdatedAt

	query, args, err := g.builder.Insert(g.table).SetMap(values).ToSql()
	if err != nil {
		return err
	}
	_, err = g.q.ExecContext(ctx, query, args...)
	return err
}

func (g *Gateway[T, PT]) violation(ctx context.Context, tc domain.TenantContext, other uuid.UUID, op string) error {
	tenancy.RecordIsolationViolation()
	g.logger.ErrorContext(ctx, "tenant isolation violation blocked",
		"op", op,
		"tenant_id", tc.TenantID,
		"record_tenant_id", other,
		"user_id", tc.UserID,
	)
	return domain.ErrIsolationViolation
}
