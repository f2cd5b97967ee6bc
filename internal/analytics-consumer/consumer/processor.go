package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/shared/metrics"
	"github.com/radieske/wager-pipeline-poc/pkg/contracts/events"
)

// Handler grava um evento decodificado no destino analítico
type Handler interface {
	WriteEvent(ctx context.Context, ev events.WagerPlaced, meta Meta) error
}

// Processor consome o tópico de apostas sequencialmente, uma mensagem por vez.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa.
type Processor struct {
	Log     *zap.Logger
	Source  Source
	Handler Handler
	Policy  FailurePolicy

	OnConsumed func()       // métricas (counter++)
	OnWritten  func()       // métricas
	OnError    func(string) // métricas por fase

	FetchBackoff time.Duration
}

func New(src Source, h Handler, policy FailurePolicy, log *zap.Logger) *Processor {
	if policy == nil {
		policy = CommitAnyway{}
	}
	return &Processor{
		Log:          log,
		Source:       src,
		Handler:      h,
		Policy:       policy,
		OnConsumed:   metrics.IncConsumed,
		OnError:      metrics.IncConsumerError,
		FetchBackoff: 500 * time.Millisecond,
	}
}

// Run inicia o loop de consumo; só retorna quando o contexto é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("bus fetch failed", zap.Error(err))
			p.onError("fetch")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.FetchBackoff):
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		p.process(ctx, m)

		// O offset avança mesmo quando a escrita falhou
		if err := p.Source.Commit(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("offset commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.onError("commit")
		}
	}
}

func (p *Processor) process(ctx context.Context, m Message) {
	ev, err := events.Decode(m.Value)
	if err != nil {
		p.Log.Warn("invalid message",
			zap.String("topic", m.Topic),
			zap.Int64("offset", m.Offset),
			zap.Error(err))
		p.onError("decode")
		return
	}

	meta := m.Meta()
	write := func(ctx context.Context) error { return p.Handler.WriteEvent(ctx, ev, meta) }

	err = write(ctx)
	if err == nil {
		if p.OnWritten != nil {
			p.OnWritten()
		}
		return
	}

	p.Log.Warn("analytics write failed",
		zap.String("wager_id", ev.WagerID),
		zap.Int64("offset", m.Offset),
		zap.Error(err))
	p.onError("write")

	if err := p.Policy.OnFailure(ctx, m, err, write); err != nil {
		p.Log.Error("failure policy failed, message dropped",
			zap.String("wager_id", ev.WagerID),
			zap.Int64("offset", m.Offset),
			zap.Error(err))
		p.onError("dead_letter")
	}
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
