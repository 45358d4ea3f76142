package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/roomswap-service/internal/api/http"
	"github.com/spec-kit/roomswap-service/internal/api/http/handlers"
	"github.com/spec-kit/roomswap-service/internal/auth"
	"github.com/spec-kit/roomswap-service/internal/config"
	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/observability"
	"github.com/spec-kit/roomswap-service/internal/persistence"
	"github.com/spec-kit/roomswap-service/internal/service"
	"github.com/spec-kit/roomswap-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.close()
		return serve(ctx, rt)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, rt *runtimeEnv) error {
	cfg, logger := rt.cfg, rt.logger

	var redis *persistence.Redis
	if cfg.Notification.Backend == config.NotifyBackendRedis {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
	}
	backend, err := notificationBackend(cfg.Notification, redis)
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close() //nolint:errcheck
	}

	dispatcher := events.NewAsyncDispatcher(cfg.Notification.DispatchBuffer, logger)
	swapDeps := service.SwapDependencies{
		Store:      rt.store,
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Swap,
	}
	preferenceService := service.NewPreferenceService(swapDeps)
	ledgerService := service.NewLedgerService(swapDeps)
	commitService := service.NewCommitService(swapDeps)
	authService := service.NewAuthService(cfg.Auth, rt.store.Users())
	notificationService := service.NewNotificationService(dispatcher, backend, logger.Named("notifier"), cfg.Notification)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	notifierDone := worker.StartNotificationWorker(workerCtx, notificationService, dispatcher)
	gcDone := worker.StartSyntheticGC(workerCtx, preferenceService, cfg.Swap.GCInterval(), logger)

	metrics := observability.NewMetrics()
	dependencies := map[string]handlers.Pinger{"store": rt.store}
	if redis != nil {
		dependencies["redis"] = redis
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Preferences:    handlers.NewPreferencesHandler(preferenceService, ledgerService),
		Requests:       handlers.NewRequestsHandler(ledgerService, commitService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), rt.store.Users()),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-listenErr:
		logger.Error("fiber listen", zap.Error(err))
	}

	if shutdownErr := app.ShutdownWithTimeout(shutdownTimeout); shutdownErr != nil {
		logger.Warn("http shutdown", zap.Error(shutdownErr))
	}
	stopWorkers()
	<-notifierDone
	<-gcDone
	return err
}
