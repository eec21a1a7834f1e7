package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/chat-support-backend/internal/api/http"
	"github.com/spec-kit/chat-support-backend/internal/api/http/handlers"
	"github.com/spec-kit/chat-support-backend/internal/auth"
	"github.com/spec-kit/chat-support-backend/internal/config"
	"github.com/spec-kit/chat-support-backend/internal/events"
	"github.com/spec-kit/chat-support-backend/internal/notify"
	"github.com/spec-kit/chat-support-backend/internal/observability"
	"github.com/spec-kit/chat-support-backend/internal/persistence"
	"github.com/spec-kit/chat-support-backend/internal/provider"
	"github.com/spec-kit/chat-support-backend/internal/repository"
	"github.com/spec-kit/chat-support-backend/internal/service"
	"github.com/spec-kit/chat-support-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("postgres_dsn", observability.MaskConnectionString(cfg.Postgres.DSN)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var workItemRepo repository.WorkItemRepository
	var historyRepo repository.HistoryRepository
	if pool := pg.PoolHandle(); pool != nil {
		workItemRepo = repository.NewPostgresWorkItemRepository(pool)
		historyRepo = repository.NewPostgresHistoryRepository(pool)
	} else {
		workItemRepo = repository.NewMemoryWorkItemRepository()
		historyRepo = repository.NewMemoryHistoryRepository()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	hub := ws.NewAgentHub(logger)
	notifier := notify.NewQueueNotifier(hub, redis.Client, cfg.Notify.RedisChannel, logger)
	notifier.RegisterHandlers(dispatcher)
	go notifier.Run(ctx)

	agentService := service.NewAgentService(service.AgentDependencies{
		WorkItemRepo: workItemRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	sessionService := service.NewSessionService(
		provider.NewNoopChatProvider(logger),
		provider.NewNoopMeetingProvider(logger),
		agentService,
		logger,
	)

	tokenManager := auth.NewTokenManager(cfg.Auth)
	agentMiddleware := auth.NewAgentMiddleware(tokenManager, cfg.Auth.Enabled)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Agent:           handlers.NewAgentHandler(agentService, metrics),
		Session:         handlers.NewSessionHandler(sessionService, agentService),
		WS:              handlers.NewWSHandler(hub),
		AgentMiddleware: agentMiddleware,
	})

	go func() {
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
