package publisher

import "context"

// Completion é resolvida uma única vez, quando o flush que contém a mensagem termina
// (ou imediatamente, se a mensagem foi descartada por tamanho).
type Completion struct {
	done    chan struct{}
	err     error
	dropped bool
}

func newCompletion() *Completion { return &Completion{done: make(chan struct{})} }

func (c *Completion) resolve(err error) {
	c.err = err
	close(c.done)
}

func (c *Completion) drop() {
	c.dropped = true
	close(c.done)
}

func (c *Completion) Done() <-chan struct{} { return c.done }

// Err retorna o erro do flush; nil enquanto não resolvida
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Dropped indica descarte silencioso antes de entrar na fila
func (c *Completion) Dropped() bool {
	select {
	case <-c.done:
		return c.dropped
	default:
		return false
	}
}

func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
