// Package repomanager provides the gorm-backed RepositoryManager, wiring
// repository constructors and table bootstrap together.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/users"
	"gorm.io/gorm"
)

// GormRepositoryManager vends gorm repository implementations.
type GormRepositoryManager struct{}

func NewGormRepositoryManager() *GormRepositoryManager {
	return &GormRepositoryManager{}
}

// Users returns a users.Repository bound to db.
func (m *GormRepositoryManager) Users(db *gorm.DB) users.Repository {
	return users.NewGormRepository(db)
}

// RunMigrations creates the users table and its indexes when missing.
func (m *GormRepositoryManager) RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("automigrate error: %w", err)
	}
	return nil
}
