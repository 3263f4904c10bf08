// Package repomanager provides a concrete RepositoryManager for the SQL
// drivers, wiring together repository constructors and database migrations
// (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/server/migrations"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager vends SQL-backed repository implementations and
// exposes a schema migration hook for its driver.
type SQLRepositoryManager struct {
	dialect goose.Dialect
	dir     string
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Challenges(db dbx.DBTX) challenges.Repository {
	return challenges.NewSQLRepository(db)
}

// gooseUp is a seam for testing the goose provider.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// RunMigrations applies the embedded migrations of the manager's driver.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := migrations.For(m.dir)
	if err != nil {
		return err
	}
	if err := gooseUp(ctx, m.dialect, db, fsys); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// NewSQLRepositoryManager constructs a RepositoryManager for the given
// database/sql driver name.
func NewSQLRepositoryManager(driver string) (RepositoryManager, error) {
	switch driver {
	case dbx.DriverPostgres:
		return &SQLRepositoryManager{dialect: goose.DialectPostgres, dir: "postgres"}, nil
	case dbx.DriverSQLite:
		return &SQLRepositoryManager{dialect: goose.DialectSQLite3, dir: "sqlite"}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
