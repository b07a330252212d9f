package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qrave1/RoomPoint/internal/application/config"
	"github.com/qrave1/RoomPoint/internal/application/constant"
	"github.com/qrave1/RoomPoint/internal/application/metric"
	"github.com/qrave1/RoomPoint/internal/infra/adapters/memory"
	"github.com/qrave1/RoomPoint/internal/infra/adapters/objectstore"
	"github.com/qrave1/RoomPoint/internal/infra/adapters/postgres"
	"github.com/qrave1/RoomPoint/internal/infra/adapters/postgres/repository"
	"github.com/qrave1/RoomPoint/internal/infra/ports/http/handlers"
	"github.com/qrave1/RoomPoint/internal/infra/ports/http/server"
	"github.com/qrave1/RoomPoint/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: level},
			),
		),
	)

	slog.Info(
		"Running app",
		slog.Bool("debug", cfg.Debug),
		slog.Duration("grace_period", cfg.GracePeriod),
		slog.Bool("postgres", cfg.Postgres.Enabled),
		slog.Bool("s3", cfg.S3.Enabled),
	)

	var archive usecase.RevealArchive = memory.NewRevealRepository(cfg.RevealHistory)

	if cfg.Postgres.Enabled {
		dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			slog.Error("connect to postgres", slog.Any(constant.Error, err))
			os.Exit(1)
		}
		defer dbConn.Close()

		archive = repository.NewRevealRepo(dbConn)
	}

	if cfg.S3.Enabled {
		archive = objectstore.NewRevealRepo(objectstore.NewClient(cfg.S3), cfg.S3.Bucket, cfg.S3.Prefix)
	}

	roomRepo := memory.NewRoomRepository()
	wsConnRepo := memory.NewWSConnectionRepository()

	broadcastUsecase := usecase.NewBroadcastUsecase(wsConnRepo)
	roomUsecase := usecase.NewRoomUsecase(cfg, roomRepo, wsConnRepo, broadcastUsecase, archive)

	roomHandler := handlers.NewRoomHandler(roomUsecase)
	wsHandler := handlers.NewWebSocketHandler(cfg, roomUsecase, wsConnRepo)

	echoSrv := server.New(cfg, roomHandler, wsHandler)

	metricsSrv := metric.NewServer()

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	// Запускаем HTTP сервер
	go func() {
		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	// Запускаем сервер метрик
	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	slog.Info("HTTP server starting", slog.String("port", cfg.Port), slog.String("metric_port", cfg.MetricPort))

	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	case err := <-metricsSrvCh:
		slog.Error(
			"Metrics server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	}

	// Закрываем очереди соединений: write pump'ы отправят close frame
	roomUsecase.Shutdown()

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}
