// Package recording registra aplicaciones de masa por sitio (calle) contra una carga.
package recording

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/massa-api/internal/application/lifecycle"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// ReasonCompleted motivo de la transición automática SENT → DELIVERED.
const ReasonCompleted = "masa aplicada por completo"

// RecordApplicationUseCase agrega una aplicación y avanza el estado derivado en una sola transacción
// con la fila de la carga bloqueada (SELECT FOR UPDATE).
type RecordApplicationUseCase struct {
	txRunner repository.TxRunner
	ledger   ledger.Ledger
	locker   LoadLocker
	retry    RetryPolicy
	log      zerolog.Logger
	now      func() time.Time
}

// NewRecordApplicationUseCase construye el caso de uso. locker puede ser nil (sin bloqueo distribuido).
func NewRecordApplicationUseCase(
	txRunner repository.TxRunner,
	lg ledger.Ledger,
	locker LoadLocker,
	retry RetryPolicy,
	log zerolog.Logger,
) *RecordApplicationUseCase {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &RecordApplicationUseCase{
		txRunner: txRunner,
		ledger:   lg,
		locker:   locker,
		retry:    retry,
		log:      log,
		now:      time.Now,
	}
}

// Input entrada de RecordApplication. IdempotencyKey la genera el cliente y se reutiliza en los reintentos.
type Input struct {
	LoadRecordID   string
	SiteName       string
	AppliedMass    decimal.Decimal
	Measurements   entity.Measurements
	IdempotencyKey string
	Actor          string
}

// Result resultado de RecordApplication.
type Result struct {
	DetailID       string
	Sequence       int
	RemainingMass  decimal.Decimal
	PercentApplied decimal.Decimal
	Status         entity.DeliveryStatus
	Finalized      bool
	Replayed       bool // la llave ya se había usado: no se aplicó masa de nuevo
}

func (in *Input) validate() error {
	// NFC para que la misma calle escrita en otro teclado compare igual en la idempotencia.
	in.SiteName = norm.NFC.String(strings.TrimSpace(in.SiteName))
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.LoadRecordID == "" {
		return domain.ErrInvalidInput
	}
	if in.SiteName == "" {
		return domain.NewValidationError(domain.CodeEmptySite, "el nombre del sitio (calle) es obligatorio")
	}
	if !in.AppliedMass.IsPositive() {
		return domain.NewValidationError(domain.CodeInvalidMass, "la masa aplicada debe ser mayor que cero")
	}
	if in.IdempotencyKey == "" {
		return domain.NewValidationError(domain.CodeMissingIdempotency, "la llave de idempotencia es obligatoria")
	}
	if strings.TrimSpace(in.Actor) == "" {
		return domain.NewValidationError(domain.CodeMissingActor, "el actor es obligatorio")
	}
	return nil
}

// RecordApplication valida, inserta la aplicación con la siguiente secuencia, recalcula la masa
// restante y, si llega a <= ε, finaliza la carga y pasa la entrega a DELIVERED.
// Los conflictos de concurrencia reintentan la operación completa según la política.
func (uc *RecordApplicationUseCase) RecordApplication(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var res *Result
	err := uc.retry.Do(ctx, uc.log, "record_application", func(ctx context.Context) error {
		release, err := uc.locker.Obtain(ctx, lockKey(in.LoadRecordID))
		if err != nil {
			return err
		}
		defer release()

		r, err := uc.recordOnce(ctx, in)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("load_record_id", in.LoadRecordID).
		Str("detail_id", res.DetailID).
		Int("sequence", res.Sequence).
		Str("remaining", res.RemainingMass.String()).
		Str("status", string(res.Status)).
		Bool("replayed", res.Replayed).
		Msg("aplicación registrada")
	return res, nil
}

func (uc *RecordApplicationUseCase) recordOnce(ctx context.Context, in Input) (*Result, error) {
	var res *Result
	err := lifecycle.AtomicApply(ctx, uc.txRunner, uc.ledger, in.LoadRecordID, func(
		ctx context.Context,
		repos repository.Repos,
		snap *lifecycle.LoadSnapshot,
	) error {
		prev, err := repos.Applications.GetByIdempotencyKey(ctx, snap.Load.ID, in.IdempotencyKey)
		if err != nil {
			return err
		}
		if prev != nil {
			if prev.SiteName != in.SiteName || !prev.AppliedMass.Equal(in.AppliedMass) {
				return domain.NewValidationError(domain.CodeIdempotencyReuse,
					"la llave de idempotencia ya se usó con otro sitio o masa")
			}
			res = resultFrom(prev, snap, true)
			return nil
		}

		if snap.Delivery.IsCancelled() {
			return domain.NewValidationError(domain.CodeDeliveryCancelled, "la entrega está cancelada")
		}
		if snap.Load.Finalized {
			return domain.NewValidationError(domain.CodeAlreadyFinalized, "la carga ya está finalizada")
		}
		if check := uc.ledger.ValidateProposedApplication(snap.Mass.Remaining, in.AppliedMass); !check.OK {
			return check.Err()
		}

		now := uc.now()
		detail := &entity.ApplicationDetail{
			ID:             uuid.New().String(),
			LoadRecordID:   snap.Load.ID,
			Sequence:       snap.Load.LastSequence + 1,
			SiteName:       in.SiteName,
			AppliedMass:    in.AppliedMass,
			Measurements:   in.Measurements,
			IdempotencyKey: in.IdempotencyKey,
			CreatedBy:      in.Actor,
			CreatedAt:      now,
		}
		if err := repos.Applications.Create(ctx, detail); err != nil {
			return err
		}
		snap.Load.LastSequence = detail.Sequence
		snap.Load.UpdatedAt = now
		if err := repos.Loads.Update(ctx, snap.Load); err != nil {
			return err
		}
		snap.Applications = append(snap.Applications, detail)
		snap.Recompute(uc.ledger)

		if _, err := lifecycle.Settle(ctx, repos, uc.ledger, snap, lifecycle.Transition{
			Actor:  in.Actor,
			Reason: ReasonCompleted,
			Kind:   entity.TransitionAutomatic,
			At:     now,
		}); err != nil {
			return err
		}
		res = resultFrom(detail, snap, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func resultFrom(detail *entity.ApplicationDetail, snap *lifecycle.LoadSnapshot, replayed bool) *Result {
	return &Result{
		DetailID:       detail.ID,
		Sequence:       detail.Sequence,
		RemainingMass:  snap.Mass.Remaining,
		PercentApplied: snap.Mass.PercentApplied,
		Status:         snap.Delivery.Status,
		Finalized:      snap.Load.Finalized,
		Replayed:       replayed,
	}
}
