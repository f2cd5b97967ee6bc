package consumer

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"

	snats "github.com/radieske/wager-pipeline-poc/internal/shared/nats"
)

// Message é a mensagem lida do bus, independente do provider
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte

	raw kafka.Message
}

func (m Message) Meta() Meta {
	return Meta{Topic: m.Topic, Partition: m.Partition, Offset: m.Offset}
}

// Meta identifica a origem do evento no bus; gravado junto com a linha analítica
type Meta struct {
	Topic     string
	Partition int
	Offset    int64
}

// Source entrega mensagens uma a uma; Commit avança o offset do consumer group
type Source interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, m Message) error
	Close() error
}

// KafkaSource lê de um consumer group com commit explícito
type KafkaSource struct {
	Reader *kafka.Reader
}

func NewKafkaSource(r *kafka.Reader) *KafkaSource { return &KafkaSource{Reader: r} }

func (s *KafkaSource) Fetch(ctx context.Context) (Message, error) {
	m, err := s.Reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		raw:       m,
	}, nil
}

func (s *KafkaSource) Commit(ctx context.Context, m Message) error {
	return s.Reader.CommitMessages(ctx, m.raw)
}

func (s *KafkaSource) Close() error { return s.Reader.Close() }

// NatsSource assina o subject num queue group. NATS core não tem offset nem ack:
// Offset é a sequência local da assinatura e Commit não faz nada.
type NatsSource struct {
	sub *nats.Subscription
	ch  chan *nats.Msg
	seq int64
}

func NewNatsSource(nc *nats.Conn, subject, queue string) (*NatsSource, error) {
	ch := make(chan *nats.Msg, 1024)
	sub, err := nc.ChanQueueSubscribe(subject, queue, ch)
	if err != nil {
		return nil, err
	}
	return &NatsSource{sub: sub, ch: ch}, nil
}

func (s *NatsSource) Fetch(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case m := <-s.ch:
		s.seq++
		return Message{
			Topic:  m.Subject,
			Offset: s.seq,
			Key:    []byte(m.Header.Get(snats.KeyHeader)),
			Value:  m.Data,
		}, nil
	}
}

func (s *NatsSource) Commit(context.Context, Message) error { return nil }

func (s *NatsSource) Close() error { return s.sub.Drain() }
