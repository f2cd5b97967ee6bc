package consumer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// FailurePolicy decide o que fazer quando o handler falha.
// Em todos os casos o offset é commitado depois que a política retorna.
type FailurePolicy interface {
	OnFailure(ctx context.Context, m Message, cause error, retry func(context.Context) error) error
}

// CommitAnyway descarta a mensagem: a falha só é logada e o consumo segue
type CommitAnyway struct{}

func (CommitAnyway) OnFailure(context.Context, Message, error, func(context.Context) error) error {
	return nil
}

// DeadLetterSink recebe mensagens que esgotaram as tentativas
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, m Message, cause error) error
}

// RetryThenDeadLetter repete o handler com backoff linear e, se todas as tentativas
// falharem, envia a mensagem original para o DLQ.
type RetryThenDeadLetter struct {
	Attempts int // total de tentativas, incluindo a primeira
	Backoff  time.Duration
	Sink     DeadLetterSink
	Log      *zap.Logger
	OnRetry  func()
}

func (p *RetryThenDeadLetter) OnFailure(ctx context.Context, m Message, cause error, retry func(context.Context) error) error {
	for attempt := 2; attempt <= p.Attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt-1) * p.Backoff):
		}
		if p.OnRetry != nil {
			p.OnRetry()
		}
		if cause = retry(ctx); cause == nil {
			return nil
		}
		p.Log.Warn("retry failed",
			zap.Int("attempt", attempt),
			zap.String("topic", m.Topic),
			zap.Int64("offset", m.Offset),
			zap.Error(cause))
	}
	if err := p.Sink.DeadLetter(ctx, m, cause); err != nil {
		return fmt.Errorf("dead letter: %w", err)
	}
	p.Log.Warn("message sent to dead letter",
		zap.String("topic", m.Topic),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
		zap.Error(cause))
	return nil
}

// KafkaDeadLetter republica a mensagem original no tópico DLQ com a causa nos headers
type KafkaDeadLetter struct {
	Writer *kafka.Writer
	Topic  string
}

func (d *KafkaDeadLetter) DeadLetter(ctx context.Context, m Message, cause error) error {
	return d.Writer.WriteMessages(ctx, kafka.Message{
		Topic: d.Topic,
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "x-error", Value: []byte(cause.Error())},
			{Key: "x-source-topic", Value: []byte(m.Topic)},
			{Key: "x-source-partition", Value: []byte(strconv.Itoa(m.Partition))},
			{Key: "x-source-offset", Value: []byte(strconv.FormatInt(m.Offset, 10))},
		},
	})
}

type NatsDeadLetter struct {
	Conn    *nats.Conn
	Subject string
}

func (d *NatsDeadLetter) DeadLetter(ctx context.Context, m Message, cause error) error {
	msg := nats.NewMsg(d.Subject)
	msg.Data = m.Value
	msg.Header.Set("x-error", cause.Error())
	msg.Header.Set("x-source-topic", m.Topic)
	if err := d.Conn.PublishMsg(msg); err != nil {
		return err
	}
	return d.Conn.FlushWithContext(ctx)
}
