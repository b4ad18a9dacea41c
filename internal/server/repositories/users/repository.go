package users

import (
	"context"

	"github.com/dmitrijs2005/userhub/internal/server/models"
)

// ListFilter selects a page of users. Name, when not empty, is matched as a
// case-insensitive substring.
type ListFilter struct {
	Name   string
	Limit  int
	Offset int
}

// Repository is the data-access contract for users. Lookups by id report
// common.ErrorNotFound; writes that would duplicate an email report
// common.ErrEmailRegistered.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePartial(ctx context.Context, id uint, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id uint) error
}
