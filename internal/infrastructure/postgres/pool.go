package postgres

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jhoicas/massa-api/pkg/config"
	"github.com/rs/zerolog"
)

const applicationName = "massa-api"

// NewPool crea el pool de conexiones y verifica la conexión con un ping.
func NewPool(ctx context.Context, cfg config.DBConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := buildPoolConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, classify("crear pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify("ping DB", err)
	}
	log.Info().
		Int32("max_conns", poolConfig.MaxConns).
		Str("lock_timeout", poolConfig.ConnConfig.RuntimeParams["lock_timeout"]).
		Msg("pool PostgreSQL listo")
	return pool, nil
}

// buildPoolConfig las transacciones del libro toman SELECT FOR UPDATE sobre la carga:
// lock_timeout acota la espera y el 55P03 resultante se reintenta como conflicto.
func buildPoolConfig(cfg config.DBConfig, log zerolog.Logger) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["lock_timeout"] = fmt.Sprintf("%dms", lockTimeout.Milliseconds())
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   queryLogger{log: log},
		LogLevel: tracelog.LogLevelWarn,
	}

	poolConfig.MaxConns = 25
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	// NUMERIC -> shopspring/decimal en todas las conexiones del pool.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return poolConfig, nil
}

// queryLogger adapta tracelog de pgx a zerolog.
type queryLogger struct {
	log zerolog.Logger
}

func (l queryLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var ev *zerolog.Event
	switch level {
	case tracelog.LogLevelTrace:
		ev = l.log.Trace()
	case tracelog.LogLevelDebug:
		ev = l.log.Debug()
	case tracelog.LogLevelInfo:
		ev = l.log.Info()
	case tracelog.LogLevelWarn:
		ev = l.log.Warn()
	default:
		ev = l.log.Error()
	}
	ev.Fields(data).Msg("pgx: " + msg)
}
