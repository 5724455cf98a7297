// Package redis candado distribuido de mejor esfuerzo por ámbito de stock.
// La consistencia la garantizan los bloqueos de fila de PostgreSQL; el candado solo
// serializa a los escritores de un mismo ámbito para reducir abortos por concurrencia.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/pkg/logger"
)

var _ inventory.ScopeLocker = (*Locker)(nil)

// Connect abre el cliente a partir de una URL redis:// y verifica la conexión.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Locker implementa inventory.ScopeLocker con redislock.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	log    *logger.Logger
}

// NewLocker construye el candado. ttl <= 0 usa 10s.
func NewLocker(client goredis.UniversalClient, ttl time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Locker{client: redislock.New(client), ttl: ttl, wait: ttl, log: log}
}

// Acquire intenta tomar el candado esperando hasta el TTL. Si Redis falla o el candado
// sigue ocupado se continúa sin él.
func (l *Locker) Acquire(ctx context.Context, key string) func() {
	retries := int(l.wait / (50 * time.Millisecond))
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), retries),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			l.log.Warn().Str("key", key).Msg("candado ocupado, se continúa sin él")
		} else {
			l.log.Warn().Err(err).Str("key", key).Msg("redis no disponible, se continúa sin candado")
		}
		return func() {}
	}
	return func() {
		// la tx ya terminó; el contexto del request puede estar cancelado
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("liberar candado")
		}
	}
}
