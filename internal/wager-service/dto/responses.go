package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/wager-pipeline-poc/internal/wager-service/ledger"
)

type PlaceWagerResponse struct {
	WagerID         string          `json:"wager_id"`
	TransactionID   string          `json:"transaction_id"`
	CorrelationID   string          `json:"correlation_id"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	PotentialPayout decimal.Decimal `json:"potential_payout"`
	CommitLatencyMs float64         `json:"commit_latency_ms"`
}

type RejectionResponse struct {
	Reason         string           `json:"reason"`
	Retryable      bool             `json:"retryable"`
	CurrentBalance *decimal.Decimal `json:"current_balance,omitempty"`
}

type ErrorResponse struct {
	Error     string           `json:"error"`
	Retryable bool             `json:"retryable,omitempty"`
	Details   *ValidationError `json:"details,omitempty"`
}

type AccountResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
}

type WagerResponse struct {
	WagerID         string          `json:"wager_id"`
	GameID          string          `json:"game_id"`
	Stake           decimal.Decimal `json:"stake"`
	WagerType       string          `json:"wager_type"`
	Selection       *string         `json:"selection,omitempty"`
	Odds            decimal.Decimal `json:"odds"`
	PotentialPayout decimal.Decimal `json:"potential_payout"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

func FromAccepted(a *ledger.AcceptedResult) PlaceWagerResponse {
	return PlaceWagerResponse{
		WagerID:         a.WagerID,
		TransactionID:   a.TransactionID,
		CorrelationID:   a.CorrelationID,
		NewBalance:      a.NewBalance,
		PotentialPayout: a.PotentialPayout,
		CommitLatencyMs: float64(a.CommitLatency.Microseconds()) / 1000,
	}
}

func FromRejected(r *ledger.RejectedResult) RejectionResponse {
	return RejectionResponse{
		Reason:         string(r.Reason),
		Retryable:      r.Reason.Retryable(),
		CurrentBalance: r.CurrentBalance,
	}
}

func FromWagers(ws []ledger.Wager) []WagerResponse {
	out := make([]WagerResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, WagerResponse{
			WagerID:         w.ID,
			GameID:          w.GameID,
			Stake:           w.Stake,
			WagerType:       string(w.WagerType),
			Selection:       w.Selection,
			Odds:            w.Odds,
			PotentialPayout: w.PotentialPayout,
			Status:          string(w.Status),
			CreatedAt:       w.CreatedAt,
		})
	}
	return out
}
