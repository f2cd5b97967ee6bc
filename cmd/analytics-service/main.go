package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	ahttp "github.com/radieske/wager-pipeline-poc/internal/analytics-service/http"
	"github.com/radieske/wager-pipeline-poc/internal/analytics-service/query"
	"github.com/radieske/wager-pipeline-poc/internal/shared/app"
	"github.com/radieske/wager-pipeline-poc/internal/shared/config"
	"github.com/radieske/wager-pipeline-poc/internal/shared/db"
	"github.com/radieske/wager-pipeline-poc/internal/shared/logger"
	"github.com/radieske/wager-pipeline-poc/internal/shared/metrics"
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
	log.Info("analytics store connected", zap.String("flavor", string(flavor)))

	engine, err := query.NewEngine(store, flavor, cfg.AnalyticsTable)
	if err != nil {
		log.Fatal("invalid query engine config", zap.Error(err))
	}
	api := &ahttp.API{Engine: engine, Log: log}

	a := app.New(log,
		&app.HTTPServer{Name: "analytics-service", Log: log, Srv: &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           api.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}},
		&app.HTTPServer{Name: "metrics/health", Log: log, Srv: metrics.NewMetricsServer(cfg.MetricsPort,
			metrics.HealthCheck{Name: string(flavor), Fn: store.PingContext},
		)},
	)
	if err := a.Run(ctx); err != nil {
		log.Fatal("analytics-service stopped with error", zap.Error(err))
	}
	log.Info("analytics-service stopped")
}
