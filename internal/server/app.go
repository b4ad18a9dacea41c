// Package server wires the userhub process together: logging, tracing, the
// database, event publishing, the HTTP API and the gRPC health service.
// Everything is created in NewApp and released when Run returns.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/userhub/internal/dbx"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/cache"
	"github.com/dmitrijs2005/userhub/internal/server/config"
	"github.com/dmitrijs2005/userhub/internal/server/events"
	"github.com/dmitrijs2005/userhub/internal/server/obs"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userhub/internal/server/rest"
	"github.com/dmitrijs2005/userhub/internal/server/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	gs "github.com/dmitrijs2005/userhub/internal/server/grpc"
)

const teardownTimeout = 5 * time.Second

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *gorm.DB
	publisher      events.Publisher
	shutdownTracer obs.ShutdownFunc
	userService    *services.UserService
	cache          *cache.ResponseCache
}

func NewApp(c *config.Config) (*App, error) {

	sl := logging.NewJSON(os.Stdout, c.DebugMode)
	logger := logging.NewSlogLogger(sl)

	ctx := context.Background()

	shutdownTracer, err := obs.InitTracer(ctx, c.OTLPEndpoint, c.AppName, c.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("tracer init error: %w", err)
	}

	db, err := dbx.Open(c.DatabaseDialect, c.DSN(), logging.NewGormLogger(sl, c.DebugMode))
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewGormRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = dbx.Close(db)
		_ = shutdownTracer(ctx)
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if c.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(c.AMQPURL, c.AMQPExchange)
		if err != nil {
			_ = dbx.Close(db)
			_ = shutdownTracer(ctx)
			return nil, fmt.Errorf("amqp init error: %w", err)
		}
		publisher = p
	}

	us := services.NewUserService(db, rm, publisher, logger)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		publisher:      publisher,
		shutdownTracer: shutdownTracer,
		userService:    us,
		cache:          cache.New(c.CacheTTL),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	sqlDB, err := app.db.DB()
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if !app.config.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := rest.NewRouter(rest.RouterConfig{
		AppName: app.config.AppName,
		Version: app.config.APIVersion,
		Users:   app.userService,
		DB:      sqlDB,
		Cache:   app.cache,
		Logger:  app.logger,
	})

	s := rest.NewHTTPServer(app.config.HTTPAddr, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCHealthServer(ctx context.Context, cancelFunc context.CancelFunc) {

	sqlDB, err := app.db.DB()
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	s := gs.NewHealthServer(app.config.GRPCHealthAddr, sqlDB, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or a
// server fails, then releases everything NewApp acquired.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "name", app.config.AppName, "version", app.config.APIVersion)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCHealthAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCHealthServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.logger.Info(ctx, "Stopping app...")

	return app.close()
}

func (app *App) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	var errs []error
	if err := app.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("publisher close: %w", err))
	}
	if err := dbx.Close(app.db); err != nil {
		errs = append(errs, fmt.Errorf("db close: %w", err))
	}
	if err := app.shutdownTracer(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}

	return errors.Join(errs...)
}
