package publisher

import (
	"context"

	"github.com/nats-io/nats.go"

	snats "github.com/radieske/wager-pipeline-poc/internal/shared/nats"
)

// NatsProducer publica o grupo no buffer do cliente e confirma com um único flush
type NatsProducer struct {
	Conn *nats.Conn
}

func DialNats(url, name string) DialFunc {
	return func() (Producer, error) {
		nc, err := snats.Connect(url, name)
		if err != nil {
			return nil, err
		}
		return &NatsProducer{Conn: nc}, nil
	}
}

func (p *NatsProducer) Send(ctx context.Context, topic string, msgs []Message) error {
	for _, m := range msgs {
		msg := nats.NewMsg(topic)
		msg.Data = m.Value
		msg.Header.Set(snats.KeyHeader, m.Key)
		if err := p.Conn.PublishMsg(msg); err != nil {
			return err
		}
	}
	return p.Conn.FlushWithContext(ctx)
}

func (p *NatsProducer) Close() error {
	return p.Conn.Drain()
}
