package repomanager

import (
	"context"

	"github.com/dmitrijs2005/userhub/internal/server/repositories/users"
	"gorm.io/gorm"
)

// RepositoryManager vends repositories bound to a handle, which may be the
// pool or a transaction, and owns schema bootstrap.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *gorm.DB) error
	Users(db *gorm.DB) users.Repository
}
