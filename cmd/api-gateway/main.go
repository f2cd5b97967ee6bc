package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/shared/app"
	"github.com/radieske/wager-pipeline-poc/internal/shared/config"
	"github.com/radieske/wager-pipeline-poc/internal/shared/logger"
	"github.com/radieske/wager-pipeline-poc/internal/shared/metrics"
)

func rp(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", to)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

// newRouter monta as rotas públicas: /api/wagers e /api/accounts -> wager-service,
// /api/analytics -> analytics-service
func newRouter(wagerURL, analyticsURL string) (http.Handler, error) {
	wager, err := rp(wagerURL)
	if err != nil {
		return nil, err
	}
	analytics, err := rp(analyticsURL)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// wagers (ex.: POST /api/wagers -> POST /wagers)
	mux.Handle("/api/wagers", http.StripPrefix("/api", wager))
	mux.Handle("/api/accounts/", http.StripPrefix("/api", wager))

	// analytics (ex.: /api/analytics/wagers -> /v1/analytics/wagers)
	mux.Handle("/api/analytics/", http.StripPrefix("/api", withPrefix("/v1", analytics)))

	return withCORS(mux), nil
}

func withPrefix(prefix string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2 := r.Clone(r.Context())
		r2.URL.Path = prefix + r.URL.Path
		r2.URL.RawPath = ""
		h.ServeHTTP(w, r2)
	})
}

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

	router, err := newRouter(cfg.WagerURL, cfg.AnalyticsURL)
	if err != nil {
		log.Fatal("invalid upstream", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(log,
		&app.HTTPServer{Name: "api-gateway", Log: log, Srv: &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}},
		&app.HTTPServer{Name: "metrics/health", Log: log, Srv: metrics.NewMetricsServer(cfg.MetricsPort)},
	)
	if err := a.Run(ctx); err != nil {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
