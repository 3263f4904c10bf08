package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Challenges(db dbx.DBTX) challenges.Repository
}
