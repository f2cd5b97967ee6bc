package writer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/analytics-consumer/consumer"
	sdb "github.com/radieske/wager-pipeline-poc/internal/shared/db"
	"github.com/radieske/wager-pipeline-poc/internal/shared/metrics"
	"github.com/radieske/wager-pipeline-poc/pkg/contracts/events"
)

// Writer grava um evento por linha no analytics store.
// Não há chave de idempotência no store: a deduplicação, quando ligada, fica no Redis.
type Writer struct {
	db       *sql.DB
	flavor   sdb.Flavor
	dialect  goqu.DialectWrapper
	table    string
	strategy Strategy
	log      *zap.Logger
}

func New(db *sql.DB, flavor sdb.Flavor, table string, strategy Strategy, log *zap.Logger) (*Writer, error) {
	if err := flavor.Validate(); err != nil {
		return nil, err
	}
	if err := strategy.validate(); err != nil {
		return nil, err
	}
	return &Writer{
		db:       db,
		flavor:   flavor,
		dialect:  flavor.Dialect(),
		table:    table,
		strategy: strategy,
		log:      log,
	}, nil
}

// WriteEvent implementa consumer.Handler
func (w *Writer) WriteEvent(ctx context.Context, ev events.WagerPlaced, meta consumer.Meta) error {
	claimed := false
	if w.strategy.Mode == ModeAtLeastOnceDedup {
		first, err := w.strategy.Dedup.FirstSeen(ctx, ev.WagerID)
		switch {
		case err != nil:
			// Redis fora do ar não bloqueia a escrita; no pior caso gera duplicata
			w.log.Warn("dedup check failed, writing anyway", zap.String("wager_id", ev.WagerID), zap.Error(err))
		case !first:
			metrics.IncDuplicate()
			w.log.Debug("duplicate event skipped", zap.String("wager_id", ev.WagerID), zap.Int64("offset", meta.Offset))
			return nil
		default:
			claimed = true
		}
	}

	query, args, err := w.dialect.Insert(w.table).Rows(w.record(ev, meta)).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		if claimed {
			if ferr := w.strategy.Dedup.Forget(ctx, ev.WagerID); ferr != nil {
				w.log.Warn("dedup release failed", zap.String("wager_id", ev.WagerID), zap.Error(ferr))
			}
		}
		return fmt.Errorf("insert analytics row: %w", err)
	}
	return nil
}

func (w *Writer) record(ev events.WagerPlaced, meta consumer.Meta) goqu.Record {
	var selection any
	if ev.Selection != nil {
		selection = *ev.Selection
	}
	return goqu.Record{
		"wager_id":         ev.WagerID,
		"transaction_id":   ev.TransactionID,
		"account_id":       ev.AccountID,
		"game_id":          ev.GameID,
		"amount":           ev.Amount,
		"wager_type":       ev.WagerType,
		"selection":        selection,
		"odds":             ev.Odds,
		"potential_payout": ev.PotentialPayout,
		"correlation_id":   ev.CorrelationID,
		"balance_after":    ev.BalanceAfter,
		"ts":               w.flavor.WallClock(ev.Timestamp),
		"bus_topic":        meta.Topic,
		"bus_partition":    int32(meta.Partition),
		"bus_offset":       meta.Offset,
	}
}
