package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/shared/metrics"
	"github.com/radieske/wager-pipeline-poc/internal/wager-service/dto"
	"github.com/radieske/wager-pipeline-poc/internal/wager-service/ledger"
	"github.com/radieske/wager-pipeline-poc/internal/wager-service/publisher"
	"github.com/radieske/wager-pipeline-poc/pkg/contracts/events"
)

type Ledger interface {
	PlaceWager(ctx context.Context, p ledger.PlaceWagerParams) (*ledger.Outcome, error)
	GetAccount(ctx context.Context, accountID string) (*ledger.Account, error)
	History(ctx context.Context, q ledger.BetHistoryQuery) ([]ledger.Wager, error)
}

type Publisher interface {
	Publish(ev events.WagerPlaced) *publisher.Completion
}

// Service orquestra o débito no ledger e a publicação assíncrona do evento.
// A resposta ao chamador nunca espera o bus.
type Service struct {
	ledger Ledger
	pub    Publisher
	log    *zap.Logger
}

func New(l Ledger, p Publisher, log *zap.Logger) *Service {
	return &Service{ledger: l, pub: p, log: log}
}

func (s *Service) PlaceWager(ctx context.Context, req dto.PlaceWagerRequest) (*ledger.Outcome, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordWager("invalid", "")
		return nil, err
	}

	params := req.Params()
	out, err := s.ledger.PlaceWager(ctx, params)
	if err != nil {
		metrics.RecordWager("fault", "")
		s.log.Error("ledger fault",
			zap.String("account_id", params.AccountID),
			zap.Bool("retryable", ledger.IsRetryable(err)),
			zap.Error(err))
		return nil, err
	}

	if out.Rejected != nil {
		metrics.RecordWager("rejected", string(out.Rejected.Reason))
		s.log.Info("wager rejected",
			zap.String("account_id", params.AccountID),
			zap.String("reason", string(out.Rejected.Reason)))
		return out, nil
	}

	acc := out.Accepted
	metrics.RecordWager("accepted", "")
	metrics.ObserveCommit(acc.CommitLatency)

	ev := NewWagerPlaced(params, acc)
	go s.watch(ev, s.pub.Publish(ev))

	return out, nil
}

// watch registra o desfecho da publicação; falha de bus não desfaz a aposta já commitada
func (s *Service) watch(ev events.WagerPlaced, c *publisher.Completion) {
	<-c.Done()
	switch {
	case c.Err() != nil:
		s.log.Error("wager event publish failed",
			zap.String("wager_id", ev.WagerID),
			zap.String("correlation_id", ev.CorrelationID),
			zap.Error(c.Err()))
	case c.Dropped():
		s.log.Warn("wager event dropped", zap.String("wager_id", ev.WagerID))
	}
}

func (s *Service) GetAccount(ctx context.Context, accountID string) (*ledger.Account, error) {
	return s.ledger.GetAccount(ctx, accountID)
}

func (s *Service) History(ctx context.Context, q ledger.BetHistoryQuery) ([]ledger.Wager, error) {
	return s.ledger.History(ctx, q)
}

// NewWagerPlaced monta o snapshot publicado a partir dos parâmetros e do resultado aceito
func NewWagerPlaced(p ledger.PlaceWagerParams, a *ledger.AcceptedResult) events.WagerPlaced {
	return events.WagerPlaced{
		WagerID:         a.WagerID,
		TransactionID:   a.TransactionID,
		AccountID:       p.AccountID,
		GameID:          p.GameID,
		Amount:          p.Stake.InexactFloat64(),
		WagerType:       string(p.WagerType),
		Selection:       p.Selection,
		Odds:            p.Odds.InexactFloat64(),
		PotentialPayout: a.PotentialPayout.InexactFloat64(),
		CorrelationID:   a.CorrelationID,
		BalanceAfter:    a.NewBalance.InexactFloat64(),
		Timestamp:       a.PlacedAt.UTC(),
	}
}
