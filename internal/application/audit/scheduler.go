package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper lo que el planificador necesita del auditor.
type Sweeper interface {
	Sweep(ctx context.Context, actor string) (*Report, error)
}

// Scheduler ejecuta el barrido periódicamente en segundo plano.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	actor    string
	timeout  time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	ticker  *time.Ticker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewScheduler construye el planificador. interval <= 0 lo deja deshabilitado.
func NewScheduler(sweeper Sweeper, interval time.Duration, actor string, log zerolog.Logger) *Scheduler {
	timeout := interval / 2
	if timeout <= 0 || timeout > 10*time.Minute {
		timeout = 10 * time.Minute
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		actor:    actor,
		timeout:  timeout,
		log:      log,
	}
}

// Enabled indica si el planificador tiene intervalo configurado.
func (s *Scheduler) Enabled() bool { return s.interval > 0 }

// Start lanza la goroutine del barrido. Llamarlo dos veces no tiene efecto.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled() {
		s.log.Info().Msg("barrido periódico deshabilitado")
		return
	}
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.ticker = time.NewTicker(s.interval)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	go s.run(ctx)

	s.log.Info().Dur("interval", s.interval).Msg("barrido periódico iniciado")
}

// Stop detiene el planificador. Un barrido en curso recibe la cancelación y Stop espera a que salga.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.ticker.Stop()
	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("barrido periódico detenido")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunNow ejecuta un barrido inmediato con el timeout del planificador.
func (s *Scheduler) RunNow() {
	s.sweep(context.Background())
}

func (s *Scheduler) sweep(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx, s.actor); err != nil {
		if parent.Err() != nil {
			s.log.Info().Err(err).Msg("barrido interrumpido por detención")
			return
		}
		s.log.Error().Err(err).Msg("barrido periódico falló")
	}
}
