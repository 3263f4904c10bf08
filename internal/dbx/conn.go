package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/licensegate/internal/filex"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Conn is the one store handle of the process. All store interactions are
// serialized by mu; the underlying pool is capped at a single connection.
type Conn struct {
	mu     sync.Mutex
	db     *sql.DB
	driver string
}

// NewConn wraps an already opened database.
func NewConn(db *sql.DB, driver string) *Conn {
	return &Conn{db: db, driver: driver}
}

// Open opens the database for driver, restricts the pool to one connection
// and verifies it is reachable.
func Open(ctx context.Context, driver, dsn string) (*Conn, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		if err := filex.EnsureParentDir(dsn); err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return NewConn(db, driver), nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// DB exposes the raw handle for migrations. Callers must not use it while
// the service is serving traffic.
func (c *Conn) DB() *sql.DB { return c.db }

// Driver reports the driver name the connection was opened with.
func (c *Conn) Driver() string { return c.driver }

// Do runs fn against the connection while holding the store lock.
func (c *Conn) Do(ctx context.Context, fn func(ctx context.Context, db DBTX) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(ctx, c.db)
}

// Tx runs fn inside a transaction while holding the store lock.
func (c *Conn) Tx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WithTx(ctx, c.db, nil, fn)
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure from either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}
