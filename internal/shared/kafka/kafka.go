package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter cria um writer sem tópico fixo: cada mensagem carrega o seu Topic,
// o que permite ao batcher agrupar por tópico. Hash na key garante afinidade de partição.
// O batching fica a cargo do nosso batcher, então o writer envia imediatamente.
func NewWriter(brokers string, batchSize int) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(splitBrokers(brokers)...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchSize:              batchSize,
		BatchTimeout:           time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
}

// NewReader cria um reader de consumer group que começa do offset corrente
// (sem backfill histórico) quando o grupo ainda não tem offset commitado.
// Commit é explícito (CommitMessages), nunca automático.
func NewReader(brokers string, topic string, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     splitBrokers(brokers),
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
