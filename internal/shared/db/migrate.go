package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/ledger/*.sql migrations/analytics/*.sql
var embedMigrations embed.FS

// Migration targets: cada um tem seu diretório e dialeto goose
const (
	TargetLedger    = "ledger"
	TargetAnalytics = "analytics"
)

// RunMigrations aplica o comando goose (up, down, status, redo) no alvo informado.
// db já deve estar aberto com o driver correspondente ao alvo.
func RunMigrations(ctx context.Context, db *sql.DB, target, command string) error {
	migrationCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var dialect goose.Dialect
	switch target {
	case TargetLedger:
		dialect = goose.DialectPostgres
	case TargetAnalytics:
		dialect = goose.DialectClickHouse
	default:
		return fmt.Errorf("unknown migration target %q", target)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.RunContext(migrationCtx, command, db, "migrations/"+target); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
