package query

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	sdb "github.com/radieske/wager-pipeline-poc/internal/shared/db"
)

func setupTestDb(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE TABLE wager_events (wager_id TEXT NOT NULL, amount REAL NOT NULL, ts TEXT NOT NULL)`); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func seed(t *testing.T, db *sql.DB, rows map[string]float64) {
	t.Helper()
	for ts, amount := range rows {
		at, err := time.Parse(time.DateTime, ts)
		if err != nil {
			t.Fatalf("Bad fixture %s: %v", ts, err)
		}
		if _, err := db.Exec(`INSERT INTO wager_events (wager_id, amount, ts) VALUES (?, ?, ?)`,
			ts, amount, sdb.FlavorSQLite.WallClock(at)); err != nil {
			t.Fatalf("Failed to seed: %v", err)
		}
	}
}

func at(s string) *time.Time {
	t, _ := time.Parse(time.DateTime, s)
	return &t
}

func newEngine(t *testing.T, db *sql.DB) *Engine {
	t.Helper()
	e, err := NewEngine(db, sdb.FlavorSQLite, "wager_events")
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func TestQueryAggregates_HourBuckets(t *testing.T) {
	db := setupTestDb(t)
	seed(t, db, map[string]float64{
		"2025-03-01 09:05:00": 10,
		"2025-03-01 09:40:00": 20,
		"2025-03-01 10:10:00": 30,
	})

	got, err := newEngine(t, db).QueryAggregates(context.Background(), AnalyticsQuery{Bucket: BucketHour})
	if err != nil {
		t.Fatalf("QueryAggregates failed: %v", err)
	}
	want := []Aggregate{
		{Bucket: *at("2025-03-01 09:00:00"), Count: 2, Sum: 30, Avg: 15},
		{Bucket: *at("2025-03-01 10:00:00"), Count: 1, Sum: 30, Avg: 30},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d buckets, got %+v", len(want), got)
	}
	for i := range want {
		if !got[i].Bucket.Equal(want[i].Bucket) || got[i].Count != want[i].Count ||
			got[i].Sum != want[i].Sum || got[i].Avg != want[i].Avg {
			t.Errorf("Bucket %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestQueryAggregates_DayBucketAndBounds(t *testing.T) {
	db := setupTestDb(t)
	seed(t, db, map[string]float64{
		"2025-03-01 09:05:00": 10,
		"2025-03-01 23:59:00": 20,
		"2025-03-02 00:00:00": 30,
		"2025-03-03 12:00:00": 40,
	})
	e := newEngine(t, db)

	got, err := e.QueryAggregates(context.Background(), AnalyticsQuery{Bucket: BucketDay})
	if err != nil {
		t.Fatalf("QueryAggregates failed: %v", err)
	}
	if len(got) != 3 || got[0].Count != 2 || got[0].Sum != 30 {
		t.Fatalf("Unexpected day buckets %+v", got)
	}

	// start inclusivo, end exclusivo
	got, err = e.QueryAggregates(context.Background(), AnalyticsQuery{
		Bucket: BucketDay,
		Start:  at("2025-03-01 23:59:00"),
		End:    at("2025-03-03 12:00:00"),
	})
	if err != nil {
		t.Fatalf("QueryAggregates failed: %v", err)
	}
	if len(got) != 2 || got[0].Sum != 20 || got[1].Sum != 30 {
		t.Errorf("Expected bounded buckets 20 and 30, got %+v", got)
	}

	got, err = e.QueryAggregates(context.Background(), AnalyticsQuery{Start: at("2025-03-03 00:00:00")})
	if err != nil {
		t.Fatalf("QueryAggregates failed: %v", err)
	}
	if len(got) != 1 || got[0].Sum != 40 || !got[0].Bucket.Equal(*at("2025-03-03 12:00:00")) {
		t.Errorf("Expected single hourly bucket for start-only query, got %+v", got)
	}
}

func TestQueryAggregates_Empty(t *testing.T) {
	got, err := newEngine(t, setupTestDb(t)).QueryAggregates(context.Background(), AnalyticsQuery{})
	if err != nil {
		t.Fatalf("QueryAggregates failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil result, got %#v", got)
	}
}

func TestBuild_ClickHouse(t *testing.T) {
	e, err := NewEngine(nil, sdb.FlavorClickHouse, "wager_events")
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	query, args, err := e.Build(AnalyticsQuery{Bucket: BucketDay, Start: at("2025-03-01 00:00:00")})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, want := range []string{"toStartOfDay(ts) AS \"bucket\"", "COUNT(*)", "SUM(\"amount\")", "\"ts\" >= ?", "GROUP BY \"bucket\"", "ORDER BY \"bucket\" ASC"} {
		if !strings.Contains(query, want) {
			t.Errorf("Expected %q in %s", want, query)
		}
	}
	if len(args) != 1 {
		t.Errorf("Expected one bound arg, got %v", args)
	}
}

func TestBuild_Postgres(t *testing.T) {
	e, _ := NewEngine(nil, sdb.FlavorPostgres, "wager_events")
	query, args, err := e.Build(AnalyticsQuery{Bucket: BucketHour, Start: at("2025-03-01 00:00:00"), End: at("2025-03-02 00:00:00")})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(query, "date_trunc('hour', ts)") || !strings.Contains(query, "$2") {
		t.Errorf("Unexpected postgres query %s", query)
	}
	if len(args) != 2 {
		t.Errorf("Expected two bound args, got %v", args)
	}
}

func TestBuild_InvalidBucket(t *testing.T) {
	e, _ := NewEngine(nil, sdb.FlavorSQLite, "wager_events")
	if _, _, err := e.Build(AnalyticsQuery{Bucket: "week"}); !errors.Is(err, ErrInvalidBucket) {
		t.Errorf("Expected ErrInvalidBucket, got %v", err)
	}
}
