package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type WagerType string

const (
	WagerMoneyline WagerType = "moneyline"
	WagerSpread    WagerType = "spread"
	WagerTotal     WagerType = "total"
	WagerProp      WagerType = "prop"
)

func (t WagerType) Valid() bool {
	switch t {
	case WagerMoneyline, WagerSpread, WagerTotal, WagerProp:
		return true
	}
	return false
}

// WagerStatus: transições acontecem fora deste serviço (liquidação)
type WagerStatus string

const (
	StatusPending   WagerStatus = "pending"
	StatusWon       WagerStatus = "won"
	StatusLost      WagerStatus = "lost"
	StatusCancelled WagerStatus = "cancelled"
	StatusRefunded  WagerStatus = "refunded"
)

type TransactionType string

const (
	TxWager   TransactionType = "wager"
	TxDeposit TransactionType = "deposit"
	TxPayout  TransactionType = "payout"
	TxRefund  TransactionType = "refund"
)

// Account é mutado apenas dentro de PlaceWager
type Account struct {
	ID      string          `db:"id"`
	Balance decimal.Decimal `db:"balance"`
	Version int64           `db:"version"`
}

type Wager struct {
	ID              string          `db:"id"`
	AccountID       string          `db:"account_id"`
	GameID          string          `db:"game_id"`
	Stake           decimal.Decimal `db:"stake"`
	WagerType       WagerType       `db:"wager_type"`
	Selection       *string         `db:"selection"`
	Odds            decimal.Decimal `db:"odds"`
	PotentialPayout decimal.Decimal `db:"potential_payout"`
	Status          WagerStatus     `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
}

// LedgerTransaction é append-only: nunca é alterada depois de criada
type LedgerTransaction struct {
	ID            string          `db:"id"`
	AccountID     string          `db:"account_id"`
	CorrelationID string          `db:"correlation_id"`
	Type          TransactionType `db:"type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	WagerID       *string         `db:"wager_id"`
	CreatedAt     time.Time       `db:"created_at"`
}

// PlaceWagerParams chega já validado pela camada de transporte;
// o ledger só recheca o mínimo que protege os invariantes.
type PlaceWagerParams struct {
	AccountID     string
	GameID        string
	Stake         decimal.Decimal
	WagerType     WagerType
	Selection     *string
	Odds          decimal.Decimal
	CorrelationID string // opcional; gerado quando vazio
}

type AcceptedResult struct {
	WagerID         string
	TransactionID   string
	CorrelationID   string
	BalanceBefore   decimal.Decimal
	NewBalance      decimal.Decimal
	PotentialPayout decimal.Decimal
	CommitLatency   time.Duration
	PlacedAt        time.Time
}

type RejectReason string

const (
	AccountNotFound        RejectReason = "account_not_found"
	InsufficientBalance    RejectReason = "insufficient_balance"
	ConcurrentModification RejectReason = "concurrent_modification"
)

// Retryable indica se repetir a mesma requisição pode dar outro resultado
func (r RejectReason) Retryable() bool { return r == ConcurrentModification }

type RejectedResult struct {
	Reason         RejectReason
	CurrentBalance *decimal.Decimal // preenchido em InsufficientBalance
}

// Outcome tem exatamente um dos dois lados preenchido.
type Outcome struct {
	Accepted *AcceptedResult
	Rejected *RejectedResult
}

func rejected(reason RejectReason, balance *decimal.Decimal) *Outcome {
	return &Outcome{Rejected: &RejectedResult{Reason: reason, CurrentBalance: balance}}
}

// MoneyScale é a escala das colunas NUMERIC de saldo, stake e odds
const MoneyScale = 2

// FitsMoneyScale indica se o valor cabe na escala das colunas sem arredondamento
func FitsMoneyScale(d decimal.Decimal) bool { return d.Equal(d.Truncate(MoneyScale)) }

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// BetHistoryQuery pagina as apostas de uma conta, mais recentes primeiro
type BetHistoryQuery struct {
	AccountID string
	Limit     int
	Offset    int
}
