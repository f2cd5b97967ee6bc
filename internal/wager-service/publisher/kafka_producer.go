package publisher

import (
	"context"

	"github.com/segmentio/kafka-go"

	skafka "github.com/radieske/wager-pipeline-poc/internal/shared/kafka"
)

// KafkaProducer publica cada grupo com um único WriteMessages
type KafkaProducer struct {
	Writer *kafka.Writer
}

func NewKafkaProducer(w *kafka.Writer) *KafkaProducer {
	return &KafkaProducer{Writer: w}
}

// DialKafka cria um writer novo a cada chamada; kafka-go conecta de forma preguiçosa
func DialKafka(brokers string, batchSize int) DialFunc {
	return func() (Producer, error) {
		return NewKafkaProducer(skafka.NewWriter(brokers, batchSize)), nil
	}
}

func (p *KafkaProducer) Send(ctx context.Context, topic string, msgs []Message) error {
	km := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		km = append(km, kafka.Message{
			Topic: topic,
			Key:   []byte(m.Key),
			Value: m.Value,
			Time:  m.Time,
		})
	}
	return p.Writer.WriteMessages(ctx, km...)
}

func (p *KafkaProducer) Close() error { return p.Writer.Close() }
