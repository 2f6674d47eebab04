// Package bootstrap arma los casos de uso a partir de la configuración; lo comparten la API y massactl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/massa-api/internal/application/audit"
	"github.com/jhoicas/massa-api/internal/application/finalization"
	"github.com/jhoicas/massa-api/internal/application/history"
	"github.com/jhoicas/massa-api/internal/application/progress"
	"github.com/jhoicas/massa-api/internal/application/recording"
	"github.com/jhoicas/massa-api/internal/application/scheduling"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/jhoicas/massa-api/internal/infrastructure/locking"
	"github.com/jhoicas/massa-api/internal/infrastructure/memory"
	"github.com/jhoicas/massa-api/internal/infrastructure/postgres"
	"github.com/jhoicas/massa-api/pkg/config"
	"github.com/jhoicas/massa-api/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Services casos de uso listos para usar.
type Services struct {
	Ledger     ledger.Ledger
	Scheduling *scheduling.UseCase
	Recorder   *recording.RecordApplicationUseCase
	Finalizer  *finalization.ForceFinalizeUseCase
	History    *history.Service
	Presenter  *progress.Presenter
	Auditor    *audit.Auditor
	Calculator recording.MassCalculator

	// Memory solo está definido con STORE_DRIVER=memory.
	Memory *memory.Store

	closers []func()
}

// Close libera conexiones en orden inverso a su creación.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// storage lo que cada driver aporta a los casos de uso.
type storage struct {
	tx      repository.TxRunner
	proc    repository.LoadMassProcedure
	master  repository.MasterDataLookup
	loads   repository.LoadRecordRepository
	apps    repository.ApplicationDetailRepository
	history repository.StatusHistoryRepository
}

// Build conecta el almacenamiento (y Redis si está configurado) y construye los casos de uso.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	svc := &Services{Ledger: ledger.New(cfg.Mass.Tolerance)}

	var st storage
	switch cfg.App.StoreDriver {
	case config.StoreDriverMemory:
		mem := memory.NewStore()
		svc.Memory = mem
		st = storage{
			tx:      mem,
			proc:    mem,
			master:  mem,
			loads:   mem.Loads(),
			apps:    mem.Applications(),
			history: mem.History(),
		}
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB, logger.Component(log, "postgres"))
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		svc.closers = append(svc.closers, pool.Close)
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool, log); err != nil {
				svc.Close()
				return nil, fmt.Errorf("migraciones: %w", err)
			}
		}
		st = postgresStorage(pool)
	}

	var locker recording.LoadLocker
	if cfg.Redis.Enabled() {
		rdb, err := locking.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			// El bloqueo distribuido es opcional: sin Redis serializa solo la fila de la carga.
			log.Warn().Err(err).Msg("redis no disponible al iniciar; se continúa sin bloqueo distribuido")
		} else {
			svc.closers = append(svc.closers, closeRedis(rdb, log))
			locker = locking.NewRedisLocker(rdb, cfg.Redis.LockTTL, logger.Component(log, "locking"))
		}
	}

	retry := recording.RetryPolicy{MaxAttempts: cfg.Mass.MaxAttempts, Backoff: cfg.Mass.RetryBackoff}
	svc.Calculator = recording.NewResilientCalculator(
		recording.NewRemoteCompute(st.proc, svc.Ledger),
		recording.NewLocalEstimate(st.loads, st.apps, svc.Ledger),
		logger.Component(log, "mass-calculator"),
	)
	svc.Scheduling = scheduling.NewUseCase(st.tx, svc.Ledger, logger.Component(log, "scheduling"))
	svc.Recorder = recording.NewRecordApplicationUseCase(st.tx, svc.Ledger, locker, retry, logger.Component(log, "recording"))
	svc.Finalizer = finalization.NewForceFinalizeUseCase(st.tx, svc.Ledger, logger.Component(log, "finalization"))
	svc.History = history.NewService(st.history)
	svc.Presenter = progress.NewPresenter(st.tx, st.master, svc.Calculator, svc.Ledger, cfg.Presenter.Locale, logger.Component(log, "progress"))
	svc.Auditor = audit.NewAuditor(st.tx, svc.Ledger, logger.Component(log, "audit"))
	return svc, nil
}

func postgresStorage(pool *pgxpool.Pool) storage {
	repos := postgres.NewRepos(pool)
	return storage{
		tx:      postgres.NewTxRunner(pool),
		proc:    postgres.NewMassProcedure(pool),
		master:  postgres.NewMasterDataRepository(pool),
		loads:   repos.Loads,
		apps:    repos.Applications,
		history: repos.History,
	}
}

func closeRedis(rdb *redis.Client, log zerolog.Logger) func() {
	return func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar cliente redis")
		}
	}
}
