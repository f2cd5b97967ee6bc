package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	sdb "github.com/radieske/wager-pipeline-poc/internal/shared/db"
	"github.com/radieske/wager-pipeline-poc/internal/shared/metrics"
)

type Bucket string

const (
	BucketHour Bucket = "hour"
	BucketDay  Bucket = "day"
)

var ErrInvalidBucket = errors.New("bucket must be hour or day")

// AnalyticsQuery: limites opcionais; Start inclusivo, End exclusivo
type AnalyticsQuery struct {
	Start  *time.Time
	End    *time.Time
	Bucket Bucket
}

// Aggregate é uma linha do resultado, uma por bucket com ao menos um evento
type Aggregate struct {
	Bucket time.Time `json:"bucket"`
	Count  uint64    `json:"count"`
	Sum    float64   `json:"sum"`
	Avg    float64   `json:"avg"`
}

func (q AnalyticsQuery) normalize() AnalyticsQuery {
	if q.Bucket == "" {
		q.Bucket = BucketHour
	}
	return q
}

// Engine monta e executa a agregação por bucket de tempo; sem estado entre chamadas
type Engine struct {
	db      *sql.DB
	flavor  sdb.Flavor
	dialect goqu.DialectWrapper
	table   string
}

func NewEngine(db *sql.DB, flavor sdb.Flavor, table string) (*Engine, error) {
	if err := flavor.Validate(); err != nil {
		return nil, err
	}
	return &Engine{db: db, flavor: flavor, dialect: flavor.Dialect(), table: table}, nil
}

// Build retorna o SQL e os argumentos da agregação
func (e *Engine) Build(q AnalyticsQuery) (string, []any, error) {
	q = q.normalize()
	if q.Bucket != BucketHour && q.Bucket != BucketDay {
		return "", nil, ErrInvalidBucket
	}
	trunc, err := e.flavor.TruncExpr(string(q.Bucket), "ts")
	if err != nil {
		return "", nil, err
	}

	var where []exp.Expression
	if q.Start != nil {
		where = append(where, goqu.C("ts").Gte(e.flavor.WallClock(*q.Start)))
	}
	if q.End != nil {
		where = append(where, goqu.C("ts").Lt(e.flavor.WallClock(*q.End)))
	}

	ds := e.dialect.From(e.table).
		Select(
			goqu.L(trunc).As("bucket"),
			goqu.COUNT(goqu.Star()).As("cnt"),
			goqu.SUM("amount").As("total"),
			goqu.AVG("amount").As("average"),
		).
		Where(where...).
		GroupBy(goqu.I("bucket")).
		Order(goqu.I("bucket").Asc()).
		Prepared(true)

	return ds.ToSQL()
}

func (e *Engine) QueryAggregates(ctx context.Context, q AnalyticsQuery) ([]Aggregate, error) {
	started := time.Now()
	q = q.normalize()
	query, args, err := e.Build(q)
	if err != nil {
		return nil, err
	}
	defer metrics.ObserveQuery(string(q.Bucket), started)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate query: %w", err)
	}
	defer rows.Close()

	out := []Aggregate{}
	for rows.Next() {
		var (
			bucket any
			count  int64
			sum    float64
			avg    float64
		)
		if err := rows.Scan(&bucket, &count, &sum, &avg); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		ts, err := bucketTime(bucket)
		if err != nil {
			return nil, err
		}
		out = append(out, Aggregate{Bucket: ts, Count: uint64(count), Sum: sum, Avg: avg})
	}
	return out, rows.Err()
}

// bucketTime normaliza o bucket: ClickHouse e Postgres devolvem time.Time, sqlite devolve texto
func bucketTime(v any) (time.Time, error) {
	switch b := v.(type) {
	case time.Time:
		return b.UTC(), nil
	case string:
		return time.ParseInLocation(time.DateTime, b, time.UTC)
	case []byte:
		return time.ParseInLocation(time.DateTime, string(b), time.UTC)
	}
	return time.Time{}, fmt.Errorf("unexpected bucket type %T", v)
}
