package recording

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/rs/zerolog"
)

// RetryPolicy reintentos acotados de la operación lógica completa. Solo aplica a ConflictError.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration // espera lineal: Backoff * intento
}

// DefaultRetryPolicy 3 intentos con 50 ms de espera base.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 50 * time.Millisecond}

// Do ejecuta fn hasta MaxAttempts veces mientras devuelva un conflicto.
// Agotados los intentos, el conflicto se escala a InfrastructureError y deja de responder a ErrConflict.
// Cualquier otro error se devuelve de inmediato, sin reintento.
func (p RetryPolicy) Do(ctx context.Context, log zerolog.Logger, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !domain.IsRetryable(err) {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Int("max_attempts", attempts).
			Msg("conflicto de concurrencia, reintentando")
		if attempt == attempts {
			break
		}
		if p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return domain.NewInfrastructure(op, ctx.Err())
			case <-time.After(p.Backoff * time.Duration(attempt)):
			}
		}
	}
	return domain.NewInfrastructure(op, fmt.Errorf("%w tras %d intentos: %v", domain.ErrRetriesExhausted, attempts, err))
}
