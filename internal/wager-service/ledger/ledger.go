package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultTxTimeout = 3 * time.Second

// Ledger debita o saldo da conta e registra aposta + transação numa única transação de banco.
// O lock pessimista (FOR UPDATE) serializa débitos concorrentes na mesma conta e a checagem
// de versão no UPDATE detecta qualquer alteração que tenha escapado do lock.
type Ledger struct {
	db         *sqlx.DB
	log        *zap.Logger
	txTimeout  time.Duration
	lockClause string
	now        func() time.Time
	newID      func() string

	// ponto de injeção usado nos testes entre a leitura travada e o compare-and-swap
	beforeSwap func(ctx context.Context, tx *sqlx.Tx) error
}

type Option func(*Ledger)

// WithTxTimeout define o deadline aplicado quando o contexto do chamador não tem um
func WithTxTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.txTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(db *sqlx.DB, log *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		db:         db,
		log:        log,
		txTimeout:  DefaultTxTimeout,
		lockClause: lockClauseFor(db.DriverName()),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// sqlite serializa escritas no arquivo inteiro e não aceita FOR UPDATE
func lockClauseFor(driver string) string {
	if driver == "sqlite3" {
		return ""
	}
	return " FOR UPDATE"
}

func (p PlaceWagerParams) validate() error {
	switch {
	case p.AccountID == "" || p.GameID == "":
		return fmt.Errorf("%w: account and game are required", ErrInvalidParams)
	case !p.Stake.IsPositive():
		return fmt.Errorf("%w: stake must be positive", ErrInvalidParams)
	case p.Odds.LessThanOrEqual(decimal.NewFromInt(1)):
		return fmt.Errorf("%w: odds must be greater than 1", ErrInvalidParams)
	case !FitsMoneyScale(p.Stake) || !FitsMoneyScale(p.Odds):
		return fmt.Errorf("%w: stake and odds allow at most %d decimal places", ErrInvalidParams, MoneyScale)
	case !p.WagerType.Valid():
		return fmt.Errorf("%w: unknown wager type %q", ErrInvalidParams, p.WagerType)
	}
	return nil
}

func (l *Ledger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.txTimeout)
}

// PlaceWager executa o débito atômico. Rejeições de negócio voltam em Outcome.Rejected
// com erro nil; erro não-nil é sempre *Fault (ou ErrInvalidParams).
func (l *Ledger) PlaceWager(ctx context.Context, p PlaceWagerParams) (*Outcome, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fault("begin", err)
	}
	defer tx.Rollback()

	// 1) Lê saldo e versão travando a linha da conta
	var acc Account
	err = tx.GetContext(ctx, &acc, `SELECT id, balance, version FROM accounts WHERE id=$1`+l.lockClause, p.AccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return rejected(AccountNotFound, nil), nil
	}
	if err != nil {
		return nil, fault("lock account", err)
	}

	// 2) Saldo insuficiente não altera nada
	if acc.Balance.LessThan(p.Stake) {
		bal := acc.Balance
		return rejected(InsufficientBalance, &bal), nil
	}

	if l.beforeSwap != nil {
		if err := l.beforeSwap(ctx, tx); err != nil {
			return nil, fault("before swap", err)
		}
	}

	// 3) Compare-and-swap pela versão lida
	now := l.now()
	newBalance := acc.Balance.Sub(p.Stake)
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance=$1, version=version+1, updated_at=$2 WHERE id=$3 AND version=$4`,
		newBalance, now, acc.ID, acc.Version)
	if err != nil {
		return nil, fault("update balance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fault("update balance", err)
	}
	if n == 0 {
		l.log.Warn("account version changed under lock",
			zap.String("account_id", acc.ID), zap.Int64("version", acc.Version))
		return rejected(ConcurrentModification, nil), nil
	}

	// 4) Aposta + transação de ledger
	wagerID, txID := l.newID(), l.newID()
	corrID := p.CorrelationID
	if corrID == "" {
		corrID = l.newID()
	}
	payout := p.Stake.Mul(p.Odds).Round(2)

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wagers (id,account_id,game_id,stake,wager_type,selection,odds,potential_payout,status,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		wagerID, acc.ID, p.GameID, p.Stake, string(p.WagerType), p.Selection, p.Odds, payout, string(StatusPending), now,
	); err != nil {
		return nil, fault("insert wager", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_transactions (id,account_id,correlation_id,type,amount,balance_before,balance_after,wager_id,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		txID, acc.ID, corrID, string(TxWager), p.Stake, acc.Balance, newBalance, wagerID, now,
	); err != nil {
		return nil, fault("insert transaction", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fault("commit", err)
	}

	return &Outcome{Accepted: &AcceptedResult{
		WagerID:         wagerID,
		TransactionID:   txID,
		CorrelationID:   corrID,
		BalanceBefore:   acc.Balance,
		NewBalance:      newBalance,
		PotentialPayout: payout,
		CommitLatency:   time.Since(started),
		PlacedAt:        now,
	}}, nil
}

// GetAccount retorna saldo e versão atuais, sem lock
func (l *Ledger) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var acc Account
	err := l.db.GetContext(ctx, &acc, `SELECT id, balance, version FROM accounts WHERE id=$1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fault("get account", err)
	}
	return &acc, nil
}

// History lista as apostas de uma conta, mais recentes primeiro
func (l *Ledger) History(ctx context.Context, q BetHistoryQuery) ([]Wager, error) {
	q = q.Normalize()
	out := []Wager{}
	err := l.db.SelectContext(ctx, &out, `
		SELECT id,account_id,game_id,stake,wager_type,selection,odds,potential_payout,status,created_at
		FROM wagers WHERE account_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		q.AccountID, q.Limit, q.Offset)
	if err != nil {
		return nil, fault("history", err)
	}
	return out, nil
}

// Normalize aplica os limites de paginação
func (q BetHistoryQuery) Normalize() BetHistoryQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultHistoryLimit
	}
	if q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
