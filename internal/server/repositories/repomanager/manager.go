// Package repomanager wires concrete repository implementations to database
// handles. A manager hands out repositories bound to either a *sql.DB or a
// transaction, which lets services compose multi-repository units of work.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/buddy/internal/dbx"
	"github.com/dmitrijs2005/buddy/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/buddy/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
