package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/raulk/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/cache"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/triage"
	"github.com/spec-kit/support-desk/internal/worker"
)

const (
	notificationQueueSize = 256
	shutdownTimeout       = 10 * time.Second
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	location, err := cfg.Triage.Location()
	if err != nil {
		logger.Fatal("invalid triage time zone", zap.Error(err))
	}
	policy, err := triage.PolicyByName(cfg.Triage.SeverityPolicy)
	if err != nil {
		logger.Fatal("invalid severity policy", zap.Error(err))
	}
	clk := clock.New()
	engine := triage.NewEngine(clk, policy, location)

	metrics := observability.NewMetrics()
	store := repository.NewStore(pg.PoolHandle())
	repos := store.Repositories()
	dispatcher := events.NewInMemoryDispatcher(logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), clk)
	authService := service.NewAuthService(service.AuthDependencies{UserRepo: repos.Users, TokenManager: tokens, Logger: logger})
	triageService := service.NewTriageService(service.TriageDependencies{Repos: repos, Engine: engine, Metrics: metrics, Logger: logger})
	alarmService := service.NewAlarmService(service.AlarmDependencies{
		Repos:    repos,
		Engine:   engine,
		Cache:    cache.NewRedisAlarmCache(redis.Client, cfg.App.Name+":alarm"),
		CacheTTL: cfg.Triage.AlarmCacheTTL(),
		Metrics:  metrics,
		Logger:   logger,
	})
	alarmService.RegisterHandlers(dispatcher)
	ticketService := service.NewTicketService(service.TicketDependencies{
		Repos: repos, Tx: store, Engine: engine, Dispatcher: dispatcher, Logger: logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Tx: store, Engine: engine, Dispatcher: dispatcher, Logger: logger,
	})
	catalogService := service.NewCatalogService(service.CatalogDependencies{Repos: repos, Tx: store, Engine: engine, Logger: logger})
	historyService := service.NewHistoryService(repos, logger)
	historyService.RegisterHandlers(dispatcher)
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Repos: repos, Logger: logger, Config: cfg.Notification,
	})

	notifications := worker.NewNotificationWorker(notificationService, notificationQueueSize, logger)
	notifications.Subscribe(dispatcher)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(authService),
		Triage:         handlers.NewTriageHandler(triageService, alarmService, logger),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService, historyService),
		Catalog:        handlers.NewCatalogHandler(catalogService, ticketService),
		Mail:           handlers.NewMailHandler(ticketService),
		MailToken:      cfg.Notification.InboundToken,
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.Users),
		Metrics:        metrics,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifications.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
