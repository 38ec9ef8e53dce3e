package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cindycandyy/fe-kpl/internal/api"
	"github.com/cindycandyy/fe-kpl/internal/api/handler"
	"github.com/cindycandyy/fe-kpl/internal/api/middleware"
	"github.com/cindycandyy/fe-kpl/internal/application"
	"github.com/cindycandyy/fe-kpl/internal/config"
	"github.com/cindycandyy/fe-kpl/internal/infrastructure/messaging"
	"github.com/cindycandyy/fe-kpl/internal/infrastructure/postgres"
	redisinfra "github.com/cindycandyy/fe-kpl/internal/infrastructure/redis"
	"github.com/cindycandyy/fe-kpl/internal/pkg/logger"
	"github.com/cindycandyy/fe-kpl/internal/pkg/metrics"
	"github.com/cindycandyy/fe-kpl/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.App.Env)
	logger.Set(log)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("サーバー異常終了", zap.Error(err))
	}
	logger.Info("サーバーが正常にシャットダウンしました")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	// Redis
	redisClient := redisinfra.NewClient(&cfg.Redis)
	defer redisClient.Close()
	if err := redisinfra.Ping(ctx, redisClient); err != nil {
		return err
	}

	// 予約結果の通知（Redis Streams）
	publisher, err := messaging.NewRedisPublisher(redisClient, messaging.NewZapLoggerAdapter(logger.Get()))
	if err != nil {
		return err
	}
	defer publisher.Close()

	m := metrics.New()

	txm := postgres.NewTxManager(db)
	eventRepo := postgres.NewEventRepository(db, txm)
	bookingRepo := postgres.NewBookingRepository(db, txm)

	eventService := application.NewEventService(eventRepo, redisinfra.NewEventCache(redisClient), cfg.Booking.EventCacheTTL, m)
	bookingService := application.NewBookingService(eventService, bookingRepo, bookingRepo,
		application.WithSubmissionTimeout(cfg.Booking.SubmissionTimeout),
		application.WithSubmissionLock(redisinfra.NewSubmissionLocker(redisClient), cfg.Booking.SubmissionLockTTL),
		application.WithNotifier(messaging.NewBookingNotifier(publisher, cfg.Booking.NotificationTopic)),
		application.WithMetrics(m),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	middleware.SetupMiddleware(e, m)

	health := handler.NewHealthHandler(map[string]handler.Pinger{
		"postgres": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
		"redis":    func(ctx context.Context) error { return redisinfra.Ping(ctx, redisClient) },
	})
	handler.RegisterRoutes(e,
		handler.NewEventHandler(eventService),
		handler.NewBookingHandler(bookingService, eventService),
		health,
	)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))

	refresher := worker.NewSnapshotRefresher(eventService, cfg.Worker.SnapshotRefreshInterval, cfg.Worker.SnapshotRefreshLimit)

	addr := ":" + cfg.Server.Port
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("サーバー起動", zap.String("addr", addr), zap.String("env", cfg.App.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return refresher.Start(gctx)
	})

	// シグナル受信またはいずれかの異常終了でシャットダウン
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("サーバーをシャットダウンしています...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
