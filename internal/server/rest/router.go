// Package rest exposes the user operations over HTTP with gin.
package rest

import (
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/cache"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterConfig struct {
	AppName string
	Version string
	Users   UserService
	DB      Pinger
	Cache   *cache.ResponseCache
	Logger  logging.Logger
}

// NewRouter builds the engine. GET responses under /v1/users go through the
// cache; successful writes flush it.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		RequestID(),
		otelgin.Middleware(cfg.AppName),
		AccessLog(cfg.Logger),
		Recovery(cfg.Logger),
	)

	hh := NewHealthHandler(cfg.DB, cfg.AppName, cfg.Version)
	r.GET("/health", hh.Health)
	r.GET("/v1/status", hh.Status)

	uh := NewUserHandler(cfg.Users, cfg.Logger)
	users := r.Group("/v1/users")
	users.Use(cfg.Cache.InvalidateOnWrite(), cfg.Cache.Middleware())
	for _, root := range []string{"", "/"} {
		users.GET(root, uh.List)
		users.POST(root, uh.Create)
	}
	users.GET("/:id", uh.Get)
	users.PATCH("/:id", uh.Update)
	users.DELETE("/:id", uh.Delete)

	return r
}
