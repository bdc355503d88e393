package repomanager

import (
	"context"
	"database/sql"

	"github.com/sciencehabits/sciencehabits/internal/dbx"
	"github.com/sciencehabits/sciencehabits/internal/server/repositories/content"
	"github.com/sciencehabits/sciencehabits/internal/server/repositories/refreshtokens"
	syncrepo "github.com/sciencehabits/sciencehabits/internal/server/repositories/sync"
	"github.com/sciencehabits/sciencehabits/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Content(db dbx.DBTX) content.Repository
	Sync(db dbx.DBTX) syncrepo.Repository
}
