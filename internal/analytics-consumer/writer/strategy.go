package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Mode string

const (
	ModeAtLeastOnce      Mode = "at-least-once"
	ModeAtLeastOnceDedup Mode = "at-least-once-dedup"
)

// Strategy define a garantia de entrega do writer.
// AtLeastOnce aceita linhas duplicadas em reentregas; AtLeastOnceDedup filtra por wager_id.
type Strategy struct {
	Mode  Mode
	Dedup Deduper
}

func AtLeastOnce() Strategy { return Strategy{Mode: ModeAtLeastOnce} }

func AtLeastOnceDedup(d Deduper) Strategy { return Strategy{Mode: ModeAtLeastOnceDedup, Dedup: d} }

func (s Strategy) validate() error {
	switch s.Mode {
	case ModeAtLeastOnce:
		return nil
	case ModeAtLeastOnceDedup:
		if s.Dedup == nil {
			return fmt.Errorf("delivery mode %s requires a deduper", s.Mode)
		}
		return nil
	}
	return fmt.Errorf("unknown delivery mode %q", string(s.Mode))
}

// Deduper reserva o wager_id antes do insert e libera a reserva se o insert falhar
type Deduper interface {
	FirstSeen(ctx context.Context, wagerID string) (bool, error)
	Forget(ctx context.Context, wagerID string) error
}

// RedisDeduper usa SETNX com TTL; a janela de dedup é o próprio TTL
type RedisDeduper struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewRedisDeduper(c *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{Client: c, TTL: ttl, Prefix: "analytics:wager:"}
}

func (r *RedisDeduper) key(wagerID string) string { return r.Prefix + wagerID }

func (r *RedisDeduper) FirstSeen(ctx context.Context, wagerID string) (bool, error) {
	return r.Client.SetNX(ctx, r.key(wagerID), 1, r.TTL).Result()
}

func (r *RedisDeduper) Forget(ctx context.Context, wagerID string) error {
	return r.Client.Del(ctx, r.key(wagerID)).Err()
}
