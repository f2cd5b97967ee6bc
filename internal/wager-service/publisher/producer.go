package publisher

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBus envolve qualquer falha de envio/conexão com o bus
	ErrBus    = errors.New("message bus failure")
	ErrClosed = errors.New("batcher closed")
)

// Message é a forma de fio já serializada, pronta para o bus
type Message struct {
	Topic string
	Key   string
	Value []byte
	Time  time.Time
}

// Producer envia um grupo de mensagens de um mesmo tópico numa única operação de rede
type Producer interface {
	Send(ctx context.Context, topic string, msgs []Message) error
	Close() error
}

// DialFunc (re)estabelece a conexão com o bus; chamada na criação e após falhas de envio
type DialFunc func() (Producer, error)
