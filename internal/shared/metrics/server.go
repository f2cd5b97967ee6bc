package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck é uma verificação nomeada de dependência (pg, redis, kafka...)
type HealthCheck struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Handler monta o mux com /metrics e /healthz.
// /healthz executa as verificações em ordem e falha na primeira que der erro.
func Handler(checks ...HealthCheck) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("%s unhealthy: %v", c.Name, err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// NewMetricsServer cria o servidor HTTP leve só pra /metrics e /healthz.
// Quem chama decide como subir (errgroup no main de cada serviço).
func NewMetricsServer(port string, checks ...HealthCheck) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(checks...),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
