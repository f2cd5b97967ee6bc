package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/lib/pq"

	"github.com/radieske/wager-pipeline-poc/internal/shared/config"
)

// ConnectPostgres abre o pool do ledger e aplica o dimensionamento configurado.
// O pool é um recurso do processo: quem chama é responsável pelo Close.
func ConnectPostgres(ctx context.Context, dsn string, pool config.PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := ping(ctx, db, pool); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// ConnectAnalytics abre a conexão com o analytics store conforme o flavor
func ConnectAnalytics(ctx context.Context, flavor Flavor, dsn string, pool config.PoolConfig) (*sql.DB, error) {
	if err := flavor.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open(flavor.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", flavor, err)
	}

	if err := ping(ctx, db, pool); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", flavor, err)
	}

	return db, nil
}

func ping(ctx context.Context, db *sql.DB, pool config.PoolConfig) error {
	if pool.PingTimeout <= 0 {
		return db.PingContext(ctx)
	}
	pctx, cancel := context.WithTimeout(ctx, pool.PingTimeout)
	defer cancel()
	return db.PingContext(pctx)
}
