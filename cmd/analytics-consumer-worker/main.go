package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/analytics-consumer/consumer"
	"github.com/radieske/wager-pipeline-poc/internal/analytics-consumer/writer"
	"github.com/radieske/wager-pipeline-poc/internal/shared/app"
	"github.com/radieske/wager-pipeline-poc/internal/shared/cache"
	"github.com/radieske/wager-pipeline-poc/internal/shared/config"
	"github.com/radieske/wager-pipeline-poc/internal/shared/db"
	"github.com/radieske/wager-pipeline-poc/internal/shared/kafka"
	"github.com/radieske/wager-pipeline-poc/internal/shared/logger"
	"github.com/radieske/wager-pipeline-poc/internal/shared/metrics"
	snats "github.com/radieske/wager-pipeline-poc/internal/shared/nats"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flavor := db.Flavor(cfg.AnalyticsFlavor)
	store, err := db.ConnectAnalytics(ctx, flavor, cfg.AnalyticsDSN, cfg.DB)
	if err != nil {
		log.Fatal("failed to connect analytics store", zap.Error(err))
	}
	defer store.Close()

	checks := []metrics.HealthCheck{{Name: string(flavor), Fn: store.PingContext}}

	// Estratégia de entrega: dedup exige Redis
	strategy := writer.AtLeastOnce()
	if cfg.DeliveryMode == string(writer.ModeAtLeastOnceDedup) {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		strategy = writer.AtLeastOnceDedup(writer.NewRedisDeduper(rdb, cfg.DedupTTL))
		checks = append(checks, metrics.HealthCheck{Name: "redis", Fn: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	w, err := writer.New(store, flavor, cfg.AnalyticsTable, strategy, log)
	if err != nil {
		log.Fatal("invalid writer config", zap.Error(err))
	}

	src, sink, closeBus, err := openBus(cfg)
	if err != nil {
		log.Fatal("failed to subscribe", zap.String("provider", cfg.BusProvider), zap.Error(err))
	}
	defer closeBus()

	var policy consumer.FailurePolicy = consumer.CommitAnyway{}
	if cfg.FailurePolicy == "retry-dead-letter" {
		policy = &consumer.RetryThenDeadLetter{
			Attempts: cfg.RetryAttempts,
			Backoff:  cfg.RetryBackoff,
			Sink:     sink,
			Log:      log,
			OnRetry:  func() { metrics.IncConsumerError("retry") },
		}
	}

	proc := consumer.New(src, w, policy, log)

	log.Info("analytics consumer started",
		zap.String("provider", cfg.BusProvider),
		zap.String("topic", cfg.TopicWagerPlaced),
		zap.String("group", cfg.ConsumerGroup),
		zap.String("delivery", string(strategy.Mode)),
		zap.String("failure_policy", cfg.FailurePolicy))

	a := app.New(log,
		&app.Worker{Run: proc.Run, Close: func(context.Context) error { return src.Close() }},
		&app.HTTPServer{Name: "metrics/health", Log: log, Srv: metrics.NewMetricsServer(cfg.MetricsPort, checks...)},
	)
	if err := a.Run(ctx); err != nil {
		log.Fatal("consumer stopped with error", zap.Error(err))
	}
	log.Info("analytics consumer stopped")
}

// openBus abre a assinatura e o destino de DLQ do provider configurado
func openBus(cfg config.Config) (consumer.Source, consumer.DeadLetterSink, func(), error) {
	if cfg.BusProvider == "nats" {
		nc, err := snats.Connect(cfg.NatsURL, cfg.ServiceName)
		if err != nil {
			return nil, nil, nil, err
		}
		src, err := consumer.NewNatsSource(nc, cfg.TopicWagerPlaced, cfg.ConsumerGroup)
		if err != nil {
			nc.Close()
			return nil, nil, nil, err
		}
		return src, &consumer.NatsDeadLetter{Conn: nc, Subject: cfg.TopicWagerPlacedDLQ}, nc.Close, nil
	}

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicWagerPlaced, cfg.ConsumerGroup)
	dlq := kafka.NewWriter(cfg.KafkaBrokers, 1)
	return consumer.NewKafkaSource(reader), &consumer.KafkaDeadLetter{Writer: dlq, Topic: cfg.TopicWagerPlacedDLQ},
		func() { _ = dlq.Close() }, nil
}
