// Package locking provee el bloqueo distribuido por carga sobre Redis.
package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisLocker implementa recording.LoadLocker. Es un bloqueo de mejor esfuerzo:
// si Redis falla se registra y se sigue, el SELECT FOR UPDATE de la carga sigue serializando.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	log    zerolog.Logger
}

// NewRedisClient crea el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// NewRedisLocker construye el bloqueador. ttl <= 0 usa 5 s.
func NewRedisLocker(rdb redislock.RedisClient, ttl time.Duration, log zerolog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(25*time.Millisecond), 4),
		log:    log,
	}
}

// Obtain toma el bloqueo de key. Si otro proceso lo tiene devuelve ConflictError.
func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.NewConflict("redis lock "+key, err)
	}
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("redis no disponible; se continúa sin bloqueo distribuido")
		return func() {}, nil
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el bloqueo en redis")
		}
	}, nil
}
