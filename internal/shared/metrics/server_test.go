package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthz(t *testing.T) {
	ok := HealthCheck{Name: "pg", Fn: func(context.Context) error { return nil }}
	down := HealthCheck{Name: "redis", Fn: func(context.Context) error { return errors.New("refused") }}

	rec := httptest.NewRecorder()
	Handler(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	Handler(ok, down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "redis unhealthy") {
		t.Errorf("Expected failing check name in body, got %q", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	RecordWager("accepted", "")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "wager_requests_total") {
		t.Error("Expected wager_requests_total to be exported")
	}
}
