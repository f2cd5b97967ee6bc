package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/analytics-service/query"
)

type Querier interface {
	QueryAggregates(ctx context.Context, q query.AnalyticsQuery) ([]query.Aggregate, error)
}

// API expõe a agregação de apostas por bucket de tempo
type API struct {
	Engine Querier
	Log    *zap.Logger
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/analytics/wagers", a.aggregates) // ?start=&end=&bucket=hour|day
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type aggregatesResponse struct {
	Bucket  query.Bucket      `json:"bucket"`
	Start   *time.Time        `json:"start,omitempty"`
	End     *time.Time        `json:"end,omitempty"`
	Buckets []query.Aggregate `json:"buckets"`
}

func (a *API) aggregates(w http.ResponseWriter, r *http.Request) {
	q := query.AnalyticsQuery{Bucket: query.Bucket(r.URL.Query().Get("bucket"))}
	if q.Bucket == "" {
		q.Bucket = query.BucketHour
	}

	var err error
	if q.Start, err = timeParam(r, "start"); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be RFC3339"})
		return
	}
	if q.End, err = timeParam(r, "end"); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be RFC3339"})
		return
	}

	aggs, err := a.Engine.QueryAggregates(r.Context(), q)
	if err != nil {
		if errors.Is(err, query.ErrInvalidBucket) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		a.Log.Error("aggregate query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	writeJSON(w, http.StatusOK, aggregatesResponse{Bucket: q.Bucket, Start: q.Start, End: q.End, Buckets: aggs})
}

func timeParam(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
