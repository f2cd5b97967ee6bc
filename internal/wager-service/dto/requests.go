package dto

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/wager-pipeline-poc/internal/wager-service/ledger"
)

var (
	MaxStake     = decimal.NewFromInt(10000)
	MinOdds      = decimal.RequireFromString("1.01")
	MaxOdds      = decimal.NewFromInt(100)
	maxSelection = 100
)

// PlaceWagerRequest é o payload de POST /wagers
type PlaceWagerRequest struct {
	AccountID     string          `json:"account_id"`
	GameID        string          `json:"game_id"`
	Stake         decimal.Decimal `json:"stake"`
	WagerType     string          `json:"wager_type"`          // "moneyline" | "spread" | "total" | "prop"
	Selection     *string         `json:"selection,omitempty"` // opcional, até 100 caracteres
	Odds          decimal.Decimal `json:"odds"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// ValidationError aponta o campo inválido do contrato de entrada
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason) }

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// Validate aplica o contrato de entrada antes de qualquer acesso ao ledger
func (r PlaceWagerRequest) Validate() error {
	if _, err := uuid.Parse(r.AccountID); err != nil {
		return invalid("account_id", "must be a UUID")
	}
	if _, err := uuid.Parse(r.GameID); err != nil {
		return invalid("game_id", "must be a UUID")
	}
	if !r.Stake.IsPositive() {
		return invalid("stake", "must be greater than zero")
	}
	if r.Stake.GreaterThan(MaxStake) {
		return invalid("stake", "must not exceed "+MaxStake.String())
	}
	if !ledger.FitsMoneyScale(r.Stake) {
		return invalid("stake", fmt.Sprintf("must have at most %d decimal places", ledger.MoneyScale))
	}
	if r.Odds.LessThan(MinOdds) || r.Odds.GreaterThan(MaxOdds) {
		return invalid("odds", fmt.Sprintf("must be between %s and %s", MinOdds, MaxOdds))
	}
	if !ledger.FitsMoneyScale(r.Odds) {
		return invalid("odds", fmt.Sprintf("must have at most %d decimal places", ledger.MoneyScale))
	}
	if !ledger.WagerType(r.WagerType).Valid() {
		return invalid("wager_type", "must be one of moneyline, spread, total, prop")
	}
	if r.Selection != nil && len([]rune(*r.Selection)) > maxSelection {
		return invalid("selection", fmt.Sprintf("must have at most %d characters", maxSelection))
	}
	return nil
}

// Params converte a requisição validada nos parâmetros do ledger
func (r PlaceWagerRequest) Params() ledger.PlaceWagerParams {
	return ledger.PlaceWagerParams{
		AccountID:     r.AccountID,
		GameID:        r.GameID,
		Stake:         r.Stake,
		WagerType:     ledger.WagerType(r.WagerType),
		Selection:     r.Selection,
		Odds:          r.Odds,
		CorrelationID: r.CorrelationID,
	}
}
