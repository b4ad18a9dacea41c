package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/dbx"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/events"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/users"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

const tracerName = "github.com/dmitrijs2005/userhub/internal/server/services"

// UserService implements the user lifecycle: listing, lookups, creation with
// the email uniqueness check, partial updates and deletion.
type UserService struct {
	db          *gorm.DB
	repomanager repomanager.RepositoryManager
	publisher   events.Publisher
	logger      logging.Logger
	tracer      trace.Tracer
}

func NewUserService(db *gorm.DB, m repomanager.RepositoryManager, p events.Publisher, l logging.Logger) *UserService {
	if p == nil {
		p = events.Nop{}
	}
	return &UserService{
		db:          db,
		repomanager: m,
		publisher:   p,
		logger:      l.With("module", "user_service"),
		tracer:      otel.Tracer(tracerName),
	}
}

// List returns at most pageSize users whose name contains name, skipping the
// first startIndex matches. Users are ordered by id.
func (s *UserService) List(ctx context.Context, name string, pageSize, startIndex int) ([]models.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.List", trace.WithAttributes(
		attribute.String("user.filter.name", name),
		attribute.Int("page.size", pageSize),
		attribute.Int("page.start", startIndex),
	))
	defer span.End()

	if pageSize < 1 || pageSize > MaxPageSize || startIndex < 0 {
		return nil, fmt.Errorf("%w: pageSize must be in [1, %d] and startIndex >= 0", common.ErrInvalidInput, MaxPageSize)
	}

	repo := s.repomanager.Users(s.db)

	result, err := repo.List(ctx, users.ListFilter{Name: name, Limit: pageSize, Offset: startIndex})
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("error listing users: %w", err))
	}

	return result, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Get", trace.WithAttributes(attribute.Int64("user.id", int64(id))))
	defer span.End()

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, s.fail(span, fmt.Errorf("error getting user: %w", err))
	}

	return user, nil
}

// GetByEmail returns the user registered with email, or nil when there is
// none. Absence is not an error here.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.GetByEmail")
	defer span.End()

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, s.fail(span, fmt.Errorf("error searching user by email: %w", err))
	}

	return user, nil
}

// Create registers the user carried by the envelope. When the email is
// already taken it returns common.ErrEmailRegistered and inserts nothing.
// The unique index on email settles concurrent creations; the lookup before
// the insert only answers the common case early.
func (s *UserService) Create(ctx context.Context, envelope models.ChallengeSchema) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Create")
	defer span.End()

	if envelope.User == nil {
		return nil, fmt.Errorf("%w: missing user", common.ErrInvalidInput)
	}

	candidate := envelope.User.ToUser()

	existing, err := s.GetByEmail(ctx, candidate.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info(ctx, "email already registered", "email", candidate.Email)
		return nil, common.ErrEmailRegistered
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.Create(ctx, candidate)
	if err != nil {
		if errors.Is(err, common.ErrEmailRegistered) {
			s.logger.Info(ctx, "email registered concurrently", "email", candidate.Email)
			return nil, err
		}
		return nil, s.fail(span, fmt.Errorf("error creating user: %w", err))
	}

	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	s.logger.Info(ctx, "user created", "id", user.ID)
	s.publish(ctx, events.NewUserEvent(common.EventUserCreated, user.ID, user))

	return user, nil
}

// Update applies the fields present in patch to user id and returns the
// result. Load and write share one transaction.
func (s *UserService) Update(ctx context.Context, id uint, patch models.UserPatch) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Update", trace.WithAttributes(attribute.Int64("user.id", int64(id))))
	defer span.End()

	var user *models.User

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		user, err = s.repomanager.Users(tx).UpdatePartial(ctx, id, patch)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrEmailRegistered) {
			return nil, err
		}
		return nil, s.fail(span, fmt.Errorf("error updating user: %w", err))
	}

	s.logger.Info(ctx, "user updated", "id", id)
	s.publish(ctx, events.NewUserEvent(common.EventUserUpdated, user.ID, user))

	return user, nil
}

// Delete removes user id permanently.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	ctx, span := s.tracer.Start(ctx, "UserService.Delete", trace.WithAttributes(attribute.Int64("user.id", int64(id))))
	defer span.End()

	repo := s.repomanager.Users(s.db)

	if err := repo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return s.fail(span, fmt.Errorf("error deleting user: %w", err))
	}

	s.logger.Info(ctx, "user deleted", "id", id)
	s.publish(ctx, events.NewUserEvent(common.EventUserDeleted, id, nil))

	return nil
}

// publish never fails the caller; a lost notification is logged.
func (s *UserService) publish(ctx context.Context, e events.UserEvent) {
	if err := s.publisher.Publish(ctx, e.Event, e); err != nil {
		s.logger.Warn(ctx, "event publish failed", "event", e.Event, "id", e.UserID, "error", err.Error())
	}
}

func (s *UserService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
