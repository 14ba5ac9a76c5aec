package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kursadbilgin/pushover/internal/config"
	"github.com/kursadbilgin/pushover/internal/observability"
	"github.com/kursadbilgin/pushover/pkg/pushover"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to read .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "pushover-cli")
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	options := []pushover.Option{
		pushover.WithBaseURL(cfg.BaseURL),
		pushover.WithTimeout(cfg.Timeout()),
		pushover.WithLogger(logger),
	}
	var metrics *observability.Metrics
	if cfg.MetricsTextfile != "" {
		metrics = observability.NewMetrics()
		options = append(options, pushover.WithRecorder(metrics))
	}

	client, err := pushover.NewClient(cfg.AppToken, options...)
	if err != nil {
		logger.Fatal("pushover client initialization failed", zap.Error(err))
	}
	if cfg.SkipSSLVerify {
		logger.Warn("TLS certificate verification is disabled")
		client.DisableSSLVerification()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	correlationID := observability.NewCorrelationID()
	ctx = pushover.WithCorrelationID(ctx, correlationID)

	runErr := run(ctx, client, os.Args[1:], os.Stdout)

	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("metrics textfile not written",
				zap.String("path", cfg.MetricsTextfile),
				zap.Error(err),
			)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, flag.ErrHelp) || errors.Is(runErr, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		logger.Error("command failed",
			zap.String("correlationId", correlationID),
			zap.Bool("transient", pushover.IsTransient(runErr)),
			zap.Error(runErr),
		)
		os.Exit(1)
	}
}
