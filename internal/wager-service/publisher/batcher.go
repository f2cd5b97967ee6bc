package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/shared/metrics"
	"github.com/radieske/wager-pipeline-poc/pkg/contracts/events"
)

const (
	DefaultMaxBatchSize   = 100
	DefaultLinger         = 10 * time.Millisecond
	DefaultMaxMessageSize = 1 << 20
	DefaultSuspiciousSize = 10 << 10
	defaultSendTimeout    = 10 * time.Second
)

// BatcherConfig: SuspiciousSizeBytes = 0 usa DefaultSuspiciousSize; valor negativo desliga
// o descarte por tamanho suspeito
type BatcherConfig struct {
	Topic               string
	MaxBatchSize        int
	Linger              time.Duration
	MaxMessageBytes     int
	SuspiciousSizeBytes int
	SendTimeout         time.Duration
}

type pending struct {
	msg Message
	c   *Completion
}

// Batcher agrupa publicações pequenas em poucos envios ao bus.
// Publish só faz append na fila (seção crítica curta); uma única goroutine
// executa os flushes, então nunca há dois envios simultâneos.
type Batcher struct {
	dial DialFunc
	cfg  BatcherConfig
	log  *zap.Logger

	mu     sync.Mutex
	queue  []pending
	closed bool

	kick     chan struct{}
	flushReq chan chan struct{}
	stop     chan struct{}
	stopped  chan struct{}

	// acessados apenas pela goroutine de flush
	producer Producer
}

func NewBatcher(dial DialFunc, cfg BatcherConfig, log *zap.Logger) (*Batcher, error) {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.Linger <= 0 {
		cfg.Linger = DefaultLinger
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultMaxMessageSize
	}
	if cfg.SuspiciousSizeBytes == 0 {
		cfg.SuspiciousSizeBytes = DefaultSuspiciousSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	p, err := dial()
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %w", ErrBus, err)
	}
	b := &Batcher{
		dial:     dial,
		cfg:      cfg,
		log:      log,
		kick:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		producer: p,
	}
	go b.run()
	return b, nil
}

// Publish serializa o evento e o enfileira no tópico configurado, com key = WagerID
func (b *Batcher) Publish(ev events.WagerPlaced) *Completion {
	v, err := events.Encode(ev)
	if err != nil {
		c := newCompletion()
		c.resolve(err)
		return c
	}
	return b.PublishRaw(b.cfg.Topic, ev.Key(), v)
}

// PublishRaw enfileira uma mensagem já serializada. Mensagens acima do limite rígido
// ou do limite suspeito são descartadas sem erro: a Completion volta resolvida e Dropped() = true.
func (b *Batcher) PublishRaw(topic, key string, value []byte) *Completion {
	c := newCompletion()

	if reason := b.oversize(len(value)); reason != "" {
		b.log.Warn("dropping message before enqueue",
			zap.String("reason", reason),
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Int("bytes", len(value)))
		metrics.RecordDrop(reason)
		c.drop()
		return c
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		c.resolve(ErrClosed)
		return c
	}
	b.queue = append(b.queue, pending{
		msg: Message{Topic: topic, Key: key, Value: value, Time: time.Now().UTC()},
		c:   c,
	})
	n := len(b.queue)
	b.mu.Unlock()

	// primeiro item arma o linger; fila cheia força flush imediato
	if n == 1 || n >= b.cfg.MaxBatchSize {
		b.signal()
	}
	return c
}

func (b *Batcher) oversize(n int) string {
	switch {
	case n > b.cfg.MaxMessageBytes:
		return "too_large"
	case b.cfg.SuspiciousSizeBytes > 0 && n > b.cfg.SuspiciousSizeBytes:
		return "suspicious_size"
	}
	return ""
}

func (b *Batcher) signal() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Flush força o envio de tudo que está na fila e espera terminar
func (b *Batcher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case b.flushReq <- done:
	case <-b.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close recusa novas publicações, drena a fila e fecha a conexão com o bus
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		select {
		case <-b.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stop)
	select {
	case <-b.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Batcher) run() {
	defer close(b.stopped)

	var timerC <-chan time.Time
	for {
		select {
		case <-b.kick:
			b.flushFull()
		case <-timerC:
			timerC = nil
			b.flushAll()
		case done := <-b.flushReq:
			b.flushAll()
			close(done)
		case <-b.stop:
			b.flushAll()
			b.disconnect()
			return
		}
		if timerC == nil && b.pending() > 0 {
			timerC = time.After(b.cfg.Linger)
		}
	}
}

func (b *Batcher) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// take remove até MaxBatchSize itens; com full=true só remove se houver um lote cheio
func (b *Batcher) take(full bool) []pending {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.queue)
	if n == 0 || (full && n < b.cfg.MaxBatchSize) {
		return nil
	}
	if n > b.cfg.MaxBatchSize {
		n = b.cfg.MaxBatchSize
	}
	batch := make([]pending, n)
	copy(batch, b.queue[:n])
	b.queue = b.queue[n:]
	return batch
}

func (b *Batcher) flushFull() {
	for batch := b.take(true); batch != nil; batch = b.take(true) {
		b.send(batch)
	}
}

func (b *Batcher) flushAll() {
	for batch := b.take(false); batch != nil; batch = b.take(false) {
		b.send(batch)
	}
}

// send agrupa por tópico e faz um envio por grupo. Qualquer falha falha o lote inteiro
// e derruba a conexão para ser refeita no próximo flush.
func (b *Batcher) send(batch []pending) {
	err := b.sendGroups(batch)
	if err != nil {
		b.log.Error("batch flush failed", zap.Int("size", len(batch)), zap.Error(err))
		metrics.RecordFlush("error", len(batch))
		b.disconnect()
	} else {
		metrics.RecordFlush("ok", len(batch))
	}
	for _, p := range batch {
		p.c.resolve(err)
	}
}

func (b *Batcher) sendGroups(batch []pending) error {
	if b.producer == nil {
		p, err := b.dial()
		if err != nil {
			return fmt.Errorf("%w: redial: %w", ErrBus, err)
		}
		b.log.Info("message bus reconnected")
		b.producer = p
	}

	var order []string
	groups := make(map[string][]Message)
	for _, p := range batch {
		if _, ok := groups[p.msg.Topic]; !ok {
			order = append(order, p.msg.Topic)
		}
		groups[p.msg.Topic] = append(groups[p.msg.Topic], p.msg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.SendTimeout)
	defer cancel()
	for _, topic := range order {
		if err := b.producer.Send(ctx, topic, groups[topic]); err != nil {
			return fmt.Errorf("%w: send %s: %w", ErrBus, topic, err)
		}
	}
	return nil
}

func (b *Batcher) disconnect() {
	if b.producer == nil {
		return
	}
	if err := b.producer.Close(); err != nil {
		b.log.Warn("closing message bus producer", zap.Error(err))
	}
	b.producer = nil
}
