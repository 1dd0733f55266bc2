package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/api"
	"github.com/sanosuguru/go-train-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-train-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/config"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
	"github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-train-seat-reservation/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, ".env 読み込みエラー: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	flags := pflag.NewFlagSet("api", pflag.ExitOnError)
	flags.StringVar(&cfg.App.Storage, "storage", cfg.App.Storage, "ストレージ（postgres | memory）")
	flags.StringVar(&cfg.App.MigrationsPath, "migrations", cfg.App.MigrationsPath, "マイグレーションファイルのディレクトリ")
	flags.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "待ち受けポート")
	_ = flags.Parse(os.Args[1:])

	logger.Init(cfg.App.Env)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Fatal("サーバー起動エラー", zap.Error(err))
	}
}

// repositories はストレージ種別ごとのリポジトリ
type repositories struct {
	schedules    schedule.Repository
	reservations reservation.Repository
	checks       map[string]handler.HealthCheck
	closeFn      func() error
}

func openRepositories(cfg *config.Config) (*repositories, error) {
	switch cfg.App.Storage {
	case config.StorageMemory:
		logger.Info("インメモリストレージを使用します")
		return &repositories{
			schedules:    memory.NewScheduleRepository(),
			reservations: memory.NewReservationRepository(),
			checks:       map[string]handler.HealthCheck{},
			closeFn:      func() error { return nil },
		}, nil
	case config.StoragePostgres:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(db.DB, cfg.App.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("PostgreSQLに接続しました", zap.String("host", cfg.Database.Host))
		return &repositories{
			schedules:    postgres.NewScheduleRepository(db),
			reservations: postgres.NewReservationRepository(db),
			checks:       map[string]handler.HealthCheck{"postgres": postgres.Pinger(db)},
			closeFn:      db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("不明なストレージ: %s", cfg.App.Storage)
	}
}

func run(cfg *config.Config) error {
	m := metrics.Init()

	repos, err := openRepositories(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = repos.closeFn() }()

	var (
		cache  application.AvailabilityCache
		opts   = []application.ReservationOption{application.WithMetrics(m)}
		closer []func() error
	)

	// Redis は任意（残席キャッシュと旅行者ロック）
	if cfg.Redis.Enabled {
		rc, err := redisinfra.NewClient(&cfg.Redis)
		if err != nil {
			return err
		}
		closer = append(closer, rc.Close)
		repos.checks["redis"] = redisinfra.Pinger(rc)
		cache = redisinfra.NewScheduleCache(rc)
		lockManager := redisinfra.NewLockManager(rc, m).WithTTL(cfg.Reservation.TravelerLockTTL)
		opts = append(opts, application.WithTravelerLocker(lockManager))
		logger.Info("Redisに接続しました", zap.String("addr", cfg.Redis.Addr()))
	}

	// RabbitMQ は任意（予約イベント配信）
	if cfg.RabbitMQ.Enabled {
		publisher, err := rabbitmq.NewPublisher(&cfg.RabbitMQ)
		if err != nil {
			return err
		}
		closer = append(closer, publisher.Close)
		opts = append(opts, application.WithEventPublisher(publisher))
	}
	defer func() {
		for _, c := range closer {
			_ = c()
		}
	}()

	inventory := application.NewSeatInventoryCoordinator(repos.schedules, application.InventoryConfig{
		MaxRetries: cfg.Inventory.MaxRetries,
		RetryDelay: cfg.Inventory.RetryDelay,
	}, cache, m)
	reservationService := application.NewReservationService(repos.reservations, repos.schedules, inventory,
		application.ReservationConfig{
			Policy: window.Policy{
				MaxAdvanceDays: cfg.Reservation.MaxAdvanceDays,
				MinNoticeDays:  cfg.Reservation.MinNoticeDays,
			},
			MaxActivePerTraveler: cfg.Reservation.MaxActivePerTraveler,
			RepositoryTimeout:    cfg.Reservation.RepositoryTimeout,
		}, opts...)
	scheduleService := application.NewScheduleService(repos.schedules, cache)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	middleware.SetupMiddleware(e, m)

	handler.RegisterRoutes(e, handler.Handlers{
		Health:      handler.NewHealthHandler(repos.checks),
		Schedule:    handler.NewScheduleHandler(scheduleService),
		Reservation: handler.NewReservationHandler(reservationService),
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(middleware.LoadMetricsConfig()))

	// 乗車済み予約の完了処理
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper := worker.NewCompletionSweeper(reservationService, cfg.Worker.CompletionInterval)
	go sweeper.Start(ctx)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("サーバーを起動します", zap.String("addr", addr), zap.String("storage", cfg.App.Storage))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
	}

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}
