package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds database connection settings.
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the sqlite database file (or ":memory:").
	Path string

	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns the driver-specific data source name.
func (c Config) DSN() string {
	if c.Driver == DriverSQLite {
		// immediate transactions take the write lock at BEGIN so two writers
		// wait on busy_timeout instead of deadlocking on lock upgrade
		return c.Path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// NewDB opens and pings a database connection.
func NewDB(cfg Config) (*sqlx.DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type Querier = sqlx.ExtContext

// Tx runs fn inside a transaction, committing on success and rolling back
// on error or panic.
func Tx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rErr := tx.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit()
}
