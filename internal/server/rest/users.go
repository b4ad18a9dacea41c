package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

// UserService is what the handlers need from the lifecycle layer.
type UserService interface {
	List(ctx context.Context, name string, pageSize, startIndex int) ([]models.User, error)
	Get(ctx context.Context, id uint) (*models.User, error)
	Create(ctx context.Context, envelope models.ChallengeSchema) (*models.User, error)
	Update(ctx context.Context, id uint, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id uint) error
}

type UserHandler struct {
	users  UserService
	logger logging.Logger
}

func NewUserHandler(us UserService, l logging.Logger) *UserHandler {
	return &UserHandler{users: us, logger: l}
}

type listQuery struct {
	Name       string `form:"name"`
	PageSize   int    `form:"pageSize,default=100" binding:"min=1,max=1000"`
	StartIndex int    `form:"startIndex,default=0" binding:"min=0"`
}

type idURI struct {
	ID uint `uri:"id" binding:"required"`
}

func (h *UserHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}

	list, err := h.users.List(c.Request.Context(), q.Name, q.PageSize, q.StartIndex)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NormalizeViews(list))
}

func (h *UserHandler) Get(c *gin.Context) {
	var in idURI
	if err := c.ShouldBindUri(&in); err != nil {
		invalid(c, err)
		return
	}

	user, err := h.users.Get(c.Request.Context(), in.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user.Normalize())
}

func (h *UserHandler) Create(c *gin.Context) {
	var envelope models.ChallengeSchema
	if err := c.ShouldBindJSON(&envelope); err != nil {
		invalid(c, err)
		return
	}

	user, err := h.users.Create(c.Request.Context(), envelope)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, user.Normalize())
}

func (h *UserHandler) Update(c *gin.Context) {
	var in idURI
	if err := c.ShouldBindUri(&in); err != nil {
		invalid(c, err)
		return
	}

	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		invalid(c, err)
		return
	}

	user, err := h.users.Update(c.Request.Context(), in.ID, patch)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user.Normalize())
}

func (h *UserHandler) Delete(c *gin.Context) {
	var in idURI
	if err := c.ShouldBindUri(&in); err != nil {
		invalid(c, err)
		return
	}

	if err := h.users.Delete(c.Request.Context(), in.ID); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// fail maps a service error onto a status and body.
func (h *UserHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	case errors.Is(err, common.ErrEmailRegistered):
		c.JSON(http.StatusConflict, gin.H{"message": "Email registered"})
	case errors.Is(err, common.ErrInvalidInput):
		invalid(c, err)
	default:
		h.logger.Error(c.Request.Context(), "request failed", "request_id", RequestIDFromContext(c), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

func invalid(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "invalid request", "detail": err.Error()})
}

var _ UserService = (*services.UserService)(nil)
