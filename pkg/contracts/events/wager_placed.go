package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// WagerPlaced é o snapshot desnormalizado de uma aposta aceita pelo ledger.
// Publicado no tópico "wager_placed" com key = WagerID.
type WagerPlaced struct {
	WagerID         string    `json:"wager_id"`
	TransactionID   string    `json:"transaction_id"`
	AccountID       string    `json:"account_id"`
	GameID          string    `json:"game_id"`
	Amount          float64   `json:"amount"`
	WagerType       string    `json:"wager_type"`          // "moneyline" | "spread" | "total" | "prop"
	Selection       *string   `json:"selection,omitempty"` // texto livre, opcional
	Odds            float64   `json:"odds"`
	PotentialPayout float64   `json:"potential_payout"`
	CorrelationID   string    `json:"correlation_id"`
	BalanceAfter    float64   `json:"balance_after"`
	Timestamp       time.Time `json:"timestamp"` // ISO-8601 (RFC3339Nano), sempre UTC
}

var ErrInvalidEvent = errors.New("invalid wager event")

// Encode serializa o evento no formato de fio (JSON plano).
func Encode(e WagerPlaced) ([]byte, error) {
	e.Timestamp = e.Timestamp.UTC()
	return json.Marshal(e)
}

// Decode desserializa e valida os campos obrigatórios do evento.
func Decode(b []byte) (WagerPlaced, error) {
	var e WagerPlaced
	if err := json.Unmarshal(b, &e); err != nil {
		return WagerPlaced{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if e.WagerID == "" || e.AccountID == "" {
		return WagerPlaced{}, fmt.Errorf("%w: missing wager_id or account_id", ErrInvalidEvent)
	}
	if e.Timestamp.IsZero() {
		return WagerPlaced{}, fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}

// Key retorna a chave de particionamento (afinidade por aposta).
func (e WagerPlaced) Key() string { return e.WagerID }
