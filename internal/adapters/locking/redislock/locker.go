// Package redislock implementa el candado de cierre diario sobre Redis,
// para que varias réplicas no cierren el mismo (elder, fecha) a la vez.
package redislock

import (
	"context"
	"errors"
	"time"

	"medication-adherence/internal/domain/adherence"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 30 * time.Second
	retryEvery = 100 * time.Millisecond
	retryLimit = 20
)

type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

type Locker struct {
	client obtainer
	ttl    time.Duration
}

var _ adherence.Locker = (*Locker)(nil)

func New(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// NewClient conecta a Redis y verifica con PING.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 20,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Lock reintenta durante ~2s; si no obtiene el candado devuelve adherence.ErrLockBusy.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryEvery), retryLimit),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, adherence.ErrLockBusy
	}
	if err != nil {
		return nil, err
	}

	return func() {
		// con contexto propio: el del llamador puede estar cancelado
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = lock.Release(ctx)
	}, nil
}
