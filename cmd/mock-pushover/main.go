package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/kursadbilgin/pushover/internal/config"
	infraredis "github.com/kursadbilgin/pushover/internal/infra/redis"
	"github.com/kursadbilgin/pushover/internal/mockapi"
	"github.com/kursadbilgin/pushover/internal/observability"
	"github.com/kursadbilgin/pushover/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to read .env file: %v", err)
	}

	cfg, err := config.LoadMock()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "mock-pushover")
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var quota ratelimit.Quota
	if cfg.RedisURL != "" {
		rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		quota, err = infraredis.NewRedisQuota(rdb, cfg.AppLimit)
		if err != nil {
			logger.Fatal("redis quota initialization failed", zap.Error(err))
		}
		logger.Info("using redis quota")
	}

	metrics := observability.NewMetrics()
	server := mockapi.New(mockapi.Options{
		AppLimit: cfg.AppLimit,
		Quota:    quota,
		Devices:  cfg.DeviceList(),
		Logger:   logger,
		Metrics:  metrics,
	})

	app := server.App()
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	logger.Info("mock-pushover listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.Int("appLimit", cfg.AppLimit),
		zap.Strings("devices", cfg.DeviceList()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down mock-pushover")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.Error("mock-pushover stopped with error", zap.Error(err))
	}
}
