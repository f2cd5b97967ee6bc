package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/analytics-service/query"
)

type fakeEngine struct {
	last query.AnalyticsQuery
}

func (f *fakeEngine) QueryAggregates(_ context.Context, q query.AnalyticsQuery) ([]query.Aggregate, error) {
	f.last = q
	if q.Bucket != query.BucketHour && q.Bucket != query.BucketDay {
		return nil, query.ErrInvalidBucket
	}
	return []query.Aggregate{{Bucket: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), Count: 2, Sum: 30, Avg: 15}}, nil
}

func get(t *testing.T, e *fakeEngine, path string) *httptest.ResponseRecorder {
	t.Helper()
	api := &API{Engine: e, Log: zap.NewNop()}
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAggregates(t *testing.T) {
	e := &fakeEngine{}
	rec := get(t, e, "/v1/analytics/wagers?bucket=day&start=2025-03-01T00:00:00Z&end=2025-03-02T00:00:00-03:00")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if e.last.Bucket != query.BucketDay || e.last.Start == nil || e.last.End == nil {
		t.Fatalf("Unexpected query %+v", e.last)
	}
	if !e.last.End.Equal(time.Date(2025, 3, 2, 3, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected end normalized to UTC, got %v", e.last.End)
	}

	var resp aggregatesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(resp.Buckets) != 1 || resp.Buckets[0].Count != 2 || resp.Buckets[0].Avg != 15 {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestAggregates_Defaults(t *testing.T) {
	e := &fakeEngine{}
	if rec := get(t, e, "/v1/analytics/wagers"); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if e.last.Bucket != query.BucketHour || e.last.Start != nil || e.last.End != nil {
		t.Errorf("Expected all-time hourly query, got %+v", e.last)
	}
}

func TestAggregates_BadParams(t *testing.T) {
	for _, qs := range []string{"bucket=week", "start=yesterday", "end=2025-03-01"} {
		if rec := get(t, &fakeEngine{}, "/v1/analytics/wagers?"+qs); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", qs, rec.Code)
		}
	}
}
