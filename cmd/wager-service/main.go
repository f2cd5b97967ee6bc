package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/shared/app"
	"github.com/radieske/wager-pipeline-poc/internal/shared/config"
	"github.com/radieske/wager-pipeline-poc/internal/shared/db"
	"github.com/radieske/wager-pipeline-poc/internal/shared/logger"
	"github.com/radieske/wager-pipeline-poc/internal/shared/metrics"
	whttp "github.com/radieske/wager-pipeline-poc/internal/wager-service/http"
	"github.com/radieske/wager-pipeline-poc/internal/wager-service/ledger"
	"github.com/radieske/wager-pipeline-poc/internal/wager-service/publisher"
	"github.com/radieske/wager-pipeline-poc/internal/wager-service/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config: %w", err))
	}

	log, err := logger.NewWithFile(cfg.ServiceName, cfg.Env, logger.FileOptions{
		Filename: cfg.LogFile, MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 7,
	})
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ledger store (Postgres)
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.DB)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected", zap.Int("max_open_conns", cfg.DB.MaxOpenConns))

	l := ledger.New(sqlx.NewDb(pg, "postgres"), log, ledger.WithTxTimeout(cfg.LedgerTxTimeout))

	// Batcher de eventos sobre o bus configurado
	batcher, err := publisher.NewBatcher(busDialer(cfg), publisher.BatcherConfig{
		Topic:               cfg.TopicWagerPlaced,
		MaxBatchSize:        cfg.Batch.MaxSize,
		Linger:              cfg.Batch.Linger,
		MaxMessageBytes:     cfg.Batch.MaxMessageBytes,
		SuspiciousSizeBytes: cfg.Batch.SuspiciousSizeBytes,
	}, log)
	if err != nil {
		log.Fatal("failed to connect message bus", zap.String("provider", cfg.BusProvider), zap.Error(err))
	}
	log.Info("event batcher ready",
		zap.String("provider", cfg.BusProvider),
		zap.String("topic", cfg.TopicWagerPlaced),
		zap.Int("max_batch", cfg.Batch.MaxSize),
		zap.Duration("linger", cfg.Batch.Linger))

	api := &whttp.API{Service: service.New(l, batcher, log), Log: log}

	a := app.New(log,
		&app.HTTPServer{Name: "wager-service", Log: log, Srv: &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           api.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}},
		&app.HTTPServer{Name: "metrics/health", Log: log, Srv: metrics.NewMetricsServer(cfg.MetricsPort,
			metrics.HealthCheck{Name: "postgres", Fn: pg.PingContext},
		)},
		// fecha por último: drena o que os handlers ainda publicaram
		&app.Worker{Close: batcher.Close},
	)

	if err := a.Run(ctx); err != nil {
		log.Fatal("wager-service stopped with error", zap.Error(err))
	}
	log.Info("wager-service stopped")
}

func busDialer(cfg config.Config) publisher.DialFunc {
	if cfg.BusProvider == "nats" {
		return publisher.DialNats(cfg.NatsURL, cfg.ServiceName)
	}
	return publisher.DialKafka(cfg.KafkaBrokers, cfg.Batch.MaxSize)
}
