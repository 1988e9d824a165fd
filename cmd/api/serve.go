package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/suporte-central/pendentes/internal/api/http"
	"github.com/suporte-central/pendentes/internal/api/http/handlers"
	"github.com/suporte-central/pendentes/internal/auth"
	"github.com/suporte-central/pendentes/internal/events"
	"github.com/suporte-central/pendentes/internal/notify"
	"github.com/suporte-central/pendentes/internal/observability"
	"github.com/suporte-central/pendentes/internal/persistence"
	"github.com/suporte-central/pendentes/internal/repository"
	"github.com/suporte-central/pendentes/internal/service"
	"github.com/suporte-central/pendentes/internal/worker"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		return persistence.ErrNoDatabase
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	broadcaster := events.NewRedisBroadcaster(redis.Client, redis.Channel, logger)
	broadcaster.Attach(dispatcher)

	notifications := worker.NewPool("notifications", cfg.Notification.Workers, cfg.Notification.QueueSize, logger)
	notifier := notify.NewWebhookNotifier(resty.New(), cfg.Notification.WebhookURL, cfg.Notification.EmailFrom, cfg.Notification.Timeout(), logger)
	if notifier.Enabled() {
		service.NewNotificationService(dispatcher, notifications, notifier, logger, cfg.Notification).RegisterHandlers()
	} else {
		logger.Info("NOTIFY_WEBHOOK_URL not provided; ticket notifications disabled")
	}

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Config:      cfg.Tickets,
		Logger:      logger,
	})

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name, func(app *fiber.App) {
		httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	}, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis, Optional: true},
		),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Events:         handlers.NewEventsHandler(ctx, broadcaster, logger),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-listenErr:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := notifications.Stop(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained before shutdown deadline", zap.Error(err))
	}
	return nil
}
