package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/blob"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/identity"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/store"
	mongostore "github.com/spec-kit/support-desk/internal/store/mongo"
	pgstore "github.com/spec-kit/support-desk/internal/store/postgres"
	"github.com/spec-kit/support-desk/internal/store/sequence"
	"github.com/spec-kit/support-desk/internal/ticket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version)

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	healthHandler.AddDependency("redis", redis)

	var backend store.Backend
	var directory identity.Directory

	switch cfg.Store.Driver {
	case "postgres":
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}

		backend = pgstore.NewBackend(pg.PoolHandle())
		directory = identity.NewPostgresDirectory(pg.PoolHandle())
		healthHandler.AddDependency("postgres", pg)
	case "mongo":
		mg, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			logger.Fatal("failed to connect mongo", zap.Error(err))
		}
		defer mg.Close(context.Background())

		backend, err = mongostore.NewBackend(ctx, mg.Database)
		if err != nil {
			logger.Fatal("failed to prepare mongo ticket store", zap.Error(err))
		}
		directory, err = identity.NewMongoDirectory(ctx, mg.Database)
		if err != nil {
			logger.Fatal("failed to prepare mongo account directory", zap.Error(err))
		}
		healthHandler.AddDependency("mongo", mg)
	default:
		logger.Warn("using in-memory stores; all data is lost on restart")
		backend = store.NewMemoryBackend()
		directory = identity.NewMemoryDirectory()
	}

	ticketStore := store.NewFacade(backend, sequence.NewRedisCounter(redis.ClientHandle()))

	blobs, err := blob.NewFileStore(cfg.Blob.Dir)
	if err != nil {
		logger.Fatal("failed to prepare attachment storage", zap.Error(err))
	}

	dispatcher := events.NewMemoryDispatcher()
	notify.NewNotifier(logger, cfg.Notification).Register(dispatcher)

	ticketService := ticket.NewService(ticket.Dependencies{
		Store:      ticketStore,
		Blobs:      blobs,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	identityService := identity.NewService(cfg.Auth, directory)
	authMiddleware := auth.NewMiddleware(identityService.TokenManager())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Users:          handlers.NewUsersHandler(identityService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store_driver", cfg.Store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
