// Package testdb opens throwaway sqlite databases with the production schema
// applied, for tests that need real constraint behavior.
package testdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tenant/pkg/repository"
)

// New returns a migrated sqlite database that is closed when t finishes.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := repository.NewDB(repository.Config{
		Driver: repository.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.Migrate(context.Background(), db))
	return db
}

// DropUsernameUniqueness removes the username and email unique indexes so a
// test can reproduce rows written before the constraints existed.
func DropUsernameUniqueness(t testing.TB, db *sqlx.DB) {
	t.Helper()
	_, err := db.Exec(`DROP INDEX users_username_uniq`)
	require.NoError(t, err)
	_, err = db.Exec(`DROP INDEX users_email_uniq`)
	require.NoError(t, err)
}
