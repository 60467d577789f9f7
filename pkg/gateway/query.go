package gateway

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/pkg/domain"
)

// Query is an immutable, tenant-restricted statement under construction.
// Each builder method returns a new Query.
type Query[T any, PT RecordPtr[T]] struct {
	g        *Gateway[T, PT]
	tc       domain.TenantContext
	sel      sq.SelectBuilder
	empty    bool
	unscoped bool
	filters  []sq.Sqlizer
}

func (q *Query[T, PT]) clone() *Query[T, PT] {
	c := *q
	c.filters = append([]sq.Sqlizer(nil), q.filters...)
	return &c
}

// Where adds a predicate. String predicates are parenthesized so an OR
// inside them cannot escape the tenant restriction.
func (q *Query[T, PT]) Where(pred any, args ...any) *Query[T, PT] {
	c := q.clone()
	var s sq.Sqlizer
	switch p := pred.(type) {
	case string:
		s = sq.Expr("("+p+")", args...)
	case sq.Sqlizer:
		s = p
	default:
		// unsupported predicate types match nothing
		s = sq.Expr("1 = 0")
	}
	c.filters = append(c.filters, s)
	c.sel = c.sel.Where(s)
	return c
}

// OrderBy adds ORDER BY clauses.
func (q *Query[T, PT]) OrderBy(orderBys ...string) *Query[T, PT] {
	c := q.clone()
	c.sel = c.sel.OrderBy(orderBys...)
	return c
}

// Limit sets a LIMIT.
func (q *Query[T, PT]) Limit(n uint64) *Query[T, PT] {
	c := q.clone()
	c.sel = c.sel.Limit(n)
	return c
}

// Offset sets an OFFSET.
func (q *Query[T, PT]) Offset(n uint64) *Query[T, PT] {
	c := q.clone()
	c.sel = c.sel.Offset(n)
	return c
}

// IsEmpty reports whether the query is the deterministic empty set.
func (q *Query[T, PT]) IsEmpty() bool {
	return q.empty
}

// List returns every matching row.
func (q *Query[T, PT]) List(ctx context.Context) ([]T, error) {
	if q.empty {
		return []T{}, nil
	}
	query, args, err := q.sel.ToSql()
	if err != nil {
		return nil, err
	}

	out := []T{}
	if err := sqlx.SelectContext(ctx, q.g.q, &out, query, args...); err != nil {
		return nil, err
	}
	for i := range out {
		if err := q.check(ctx, PT(&out[i])); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get returns the row with id, or ErrRecordNotFound when it does not exist
// within the tenant.
func (q *Query[T, PT]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	if q.empty {
		return nil, domain.ErrRecordNotFound
	}
	query, args, err := q.sel.Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, err
	}

	var rec T
	err = sqlx.GetContext(ctx, q.g.q, &rec, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := q.check(ctx, PT(&rec)); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Count returns the number of matching rows.
func (q *Query[T, PT]) Count(ctx context.Context) (int, error) {
	if q.empty {
		return 0, nil
	}
	b := q.g.builder.Select("COUNT(*)").From(q.g.table)
	if q.tc.HasTenant() && !q.unscoped {
		b = b.Where(sq.Eq{"tenant_id": q.tc.TenantID.String()})
	}
	for _, f := range q.filters {
		b = b.Where(f)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = sqlx.GetContext(ctx, q.g.q, &n, query, args...)
	return n, err
}

// Update writes rec's fields. The row must belong to the query's tenant.
func (q *Query[T, PT]) Update(ctx context.Context, rec PT) error {
	if q.empty {
		return domain.ErrNoTenant
	}
	b := rec.base()
	if q.tc.HasTenant() && b.TenantID.Valid && b.TenantID.UUID != q.tc.TenantID {
		return q.g.violation(ctx, q.tc, b.TenantID.UUID, "update")
	}

	b.UpdatedAt = time.Now().UTC()
	values := rec.Fields()
	values["updated_at"] = b.UpdatedAt

	upd := q.g.builder.Update(q.g.table).SetMap(values).Where(sq.Eq{"id": b.ID.String()})
	if q.tc.HasTenant() && !q.unscoped {
		upd = upd.Where(sq.Eq{"tenant_id": q.tc.TenantID.String()})
	}
	query, args, err := upd.ToSql()
	if err != nil {
		return err
	}
	result, err := q.g.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return rowsOrNotFound(result)
}

// Delete removes the row with id from the query's tenant.
func (q *Query[T, PT]) Delete(ctx context.Context, id uuid.UUID) error {
	if q.empty {
		return domain.ErrNoTenant
	}
	del := q.g.builder.Delete(q.g.table).Where(sq.Eq{"id": id.String()})
	if q.tc.HasTenant() && !q.unscoped {
		del = del.Where(sq.Eq{"tenant_id": q.tc.TenantID.String()})
	}
	query, args, err := del.ToSql()
	if err != nil {
		return err
	}
	result, err := q.g.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return rowsOrNotFound(result)
}

// Purge removes every matching row in the query's tenant and returns the
// count. Cross-tenant queries cannot purge.
func (q *Query[T, PT]) Purge(ctx context.Context) (int64, error) {
	if q.empty {
		return 0, domain.ErrNoTenant
	}
	if q.unscoped || !q.tc.HasTenant() {
		return 0, domain.ErrForbidden
	}
	del := q.g.builder.Delete(q.g.table).Where(sq.Eq{"tenant_id": q.tc.TenantID.String()})
	for _, f := range q.filters {
		del = del.Where(f)
	}
	query, args, err := del.ToSql()
	if err != nil {
		return 0, err
	}
	result, err := q.g.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// check re-verifies a scanned row against the tenant. A mismatch means a
// predicate was bypassed somewhere and is reported, never returned.
func (q *Query[T, PT]) check(ctx context.Context, rec PT) error {
	if q.unscoped || !q.tc.HasTenant() {
		return nil
	}
	b := rec.base()
	if !b.TenantID.Valid || b.TenantID.UUID != q.tc.TenantID {
		return q.g.violation(ctx, q.tc, b.TenantID.UUID, "read")
	}
	return nil
}

func rowsOrNotFound(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
