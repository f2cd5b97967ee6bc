package writer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/analytics-consumer/consumer"
	sdb "github.com/radieske/wager-pipeline-poc/internal/shared/db"
	"github.com/radieske/wager-pipeline-poc/pkg/contracts/events"
)

func setupTestDb(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE wager_events (
		wager_id TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		game_id TEXT NOT NULL,
		amount REAL NOT NULL,
		wager_type TEXT NOT NULL,
		selection TEXT,
		odds REAL NOT NULL,
		potential_payout REAL NOT NULL,
		correlation_id TEXT NOT NULL,
		balance_after REAL NOT NULL,
		ts TEXT NOT NULL,
		bus_topic TEXT NOT NULL,
		bus_partition INTEGER NOT NULL,
		bus_offset INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func sampleEvent() events.WagerPlaced {
	sel := "home"
	return events.WagerPlaced{
		WagerID:         "7d3c1c56-6a11-4a4e-9e55-0c4b1c5f7a10",
		TransactionID:   "f0a8d6a4-1f55-4a6b-8f0c-3c2e9f1b2d44",
		AccountID:       "0b9f5a3e-2c1d-4d7e-8a6b-5c4d3e2f1a00",
		GameID:          "a1b2c3d4-e5f6-4a5b-9c8d-7e6f5a4b3c2d",
		Amount:          50,
		WagerType:       "moneyline",
		Selection:       &sel,
		Odds:            2,
		PotentialPayout: 100,
		CorrelationID:   "corr-1",
		BalanceAfter:    50,
		Timestamp:       time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC),
	}
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM wager_events`).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

func TestWriteEvent_InsertsRow(t *testing.T) {
	db := setupTestDb(t)
	w, err := New(db, sdb.FlavorSQLite, "wager_events", AtLeastOnce(), zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	meta := consumer.Meta{Topic: "wager_placed", Partition: 3, Offset: 42}
	if err := w.WriteEvent(context.Background(), sampleEvent(), meta); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	var (
		amount    float64
		selection sql.NullString
		ts        string
		partition int
		offset    int64
	)
	err = db.QueryRow(`SELECT amount, selection, ts, bus_partition, bus_offset FROM wager_events`).
		Scan(&amount, &selection, &ts, &partition, &offset)
	if err != nil {
		t.Fatalf("Failed to read row: %v", err)
	}
	if amount != 50 || selection.String != "home" {
		t.Errorf("Unexpected amount/selection %v/%v", amount, selection)
	}
	if ts != "2025-03-01 09:05:00.000" {
		t.Errorf("Expected wall clock timestamp, got %s", ts)
	}
	if partition != 3 || offset != 42 {
		t.Errorf("Expected bus metadata 3/42, got %d/%d", partition, offset)
	}
}

func TestWriteEvent_NullSelection(t *testing.T) {
	db := setupTestDb(t)
	w, _ := New(db, sdb.FlavorSQLite, "wager_events", AtLeastOnce(), zap.NewNop())

	ev := sampleEvent()
	ev.Selection = nil
	if err := w.WriteEvent(context.Background(), ev, consumer.Meta{}); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	var selection sql.NullString
	if err := db.QueryRow(`SELECT selection FROM wager_events`).Scan(&selection); err != nil {
		t.Fatalf("Failed to read row: %v", err)
	}
	if selection.Valid {
		t.Errorf("Expected NULL selection, got %q", selection.String)
	}
}

func TestWriteEvent_AtLeastOnceKeepsDuplicates(t *testing.T) {
	db := setupTestDb(t)
	w, _ := New(db, sdb.FlavorSQLite, "wager_events", AtLeastOnce(), zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := w.WriteEvent(context.Background(), sampleEvent(), consumer.Meta{Offset: int64(i)}); err != nil {
			t.Fatalf("WriteEvent failed: %v", err)
		}
	}
	if n := countRows(t, db); n != 2 {
		t.Errorf("Expected duplicate row on redelivery, got %d rows", n)
	}
}

func TestWriteEvent_DedupSkipsRedelivery(t *testing.T) {
	db := setupTestDb(t)
	mr, rdb := newRedis(t)
	d := NewRedisDeduper(rdb, time.Hour)
	w, err := New(db, sdb.FlavorSQLite, "wager_events", AtLeastOnceDedup(d), zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := w.WriteEvent(context.Background(), sampleEvent(), consumer.Meta{Offset: int64(i)}); err != nil {
			t.Fatalf("WriteEvent failed: %v", err)
		}
	}
	if n := countRows(t, db); n != 1 {
		t.Errorf("Expected a single row, got %d", n)
	}
	key := "analytics:wager:" + sampleEvent().WagerID
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("Expected dedup key TTL 1h, got %v", ttl)
	}
}

func TestWriteEvent_DedupReleasedOnInsertFailure(t *testing.T) {
	db := setupTestDb(t)
	mr, rdb := newRedis(t)
	w, _ := New(db, sdb.FlavorSQLite, "missing_table", AtLeastOnceDedup(NewRedisDeduper(rdb, time.Hour)), zap.NewNop())

	if err := w.WriteEvent(context.Background(), sampleEvent(), consumer.Meta{}); err == nil {
		t.Fatal("Expected insert error")
	}
	if mr.Exists("analytics:wager:" + sampleEvent().WagerID) {
		t.Error("Expected dedup key released after failed insert")
	}
}

func TestWriteEvent_DedupFailsOpen(t *testing.T) {
	db := setupTestDb(t)
	mr, rdb := newRedis(t)
	w, _ := New(db, sdb.FlavorSQLite, "wager_events", AtLeastOnceDedup(NewRedisDeduper(rdb, time.Hour)), zap.NewNop())

	mr.Close()
	if err := w.WriteEvent(context.Background(), sampleEvent(), consumer.Meta{}); err != nil {
		t.Fatalf("Expected write despite redis outage, got %v", err)
	}
	if n := countRows(t, db); n != 1 {
		t.Errorf("Expected 1 row, got %d", n)
	}
}

func TestNew_Invalid(t *testing.T) {
	db := setupTestDb(t)
	if _, err := New(db, sdb.FlavorSQLite, "wager_events", Strategy{Mode: ModeAtLeastOnceDedup}, zap.NewNop()); err == nil {
		t.Error("Expected error for dedup without deduper")
	}
	if _, err := New(db, sdb.Flavor("mongo"), "wager_events", AtLeastOnce(), zap.NewNop()); err == nil {
		t.Error("Expected error for unknown flavor")
	}
}
