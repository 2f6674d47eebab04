// Package finalization cierra manualmente una carga cuando el residuo de masa
// (redondeo de pesaje) nunca llega a ε.
package finalization

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/massa-api/internal/application/history"
	"github.com/jhoicas/massa-api/internal/application/lifecycle"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultReason motivo cuando el operador no indica uno.
const DefaultReason = "finalización manual"

// ForceFinalizeUseCase finaliza la carga sin importar el residuo y deja la entrega en DELIVERED.
// La entrada de historial queda marcada como MANUAL_OVERRIDE para la conciliación financiera.
type ForceFinalizeUseCase struct {
	txRunner repository.TxRunner
	ledger   ledger.Ledger
	log      zerolog.Logger
	now      func() time.Time
}

// NewForceFinalizeUseCase construye el caso de uso.
func NewForceFinalizeUseCase(txRunner repository.TxRunner, lg ledger.Ledger, log zerolog.Logger) *ForceFinalizeUseCase {
	return &ForceFinalizeUseCase{txRunner: txRunner, ledger: lg, log: log, now: time.Now}
}

// Input entrada de ForceFinalize.
type Input struct {
	LoadRecordID string
	Actor        string
	Reason       string
}

// Result totales de la carga al momento del cierre.
type Result struct {
	TotalApplied    decimal.Decimal
	TotalMass       decimal.Decimal
	NumApplications int
	Residual        decimal.Decimal
	Status          entity.DeliveryStatus
}

// ForceFinalize requiere al menos una aplicación. Una carga ya finalizada o una entrega
// cancelada son errores de validación.
func (uc *ForceFinalizeUseCase) ForceFinalize(ctx context.Context, in Input) (*Result, error) {
	if in.LoadRecordID == "" {
		return nil, domain.ErrInvalidInput
	}
	if strings.TrimSpace(in.Actor) == "" {
		return nil, domain.NewValidationError(domain.CodeMissingActor, "el actor es obligatorio")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = DefaultReason
	}

	var res *Result
	err := lifecycle.AtomicApply(ctx, uc.txRunner, uc.ledger, in.LoadRecordID, func(
		ctx context.Context,
		repos repository.Repos,
		snap *lifecycle.LoadSnapshot,
	) error {
		if snap.Load.Finalized {
			return domain.NewValidationError(domain.CodeAlreadyFinalized, "la carga ya está finalizada")
		}
		if snap.Delivery.IsCancelled() {
			return domain.NewValidationError(domain.CodeDeliveryCancelled, "la entrega está cancelada")
		}
		if len(snap.Applications) == 0 {
			return domain.NewValidationError(domain.CodeNoApplications,
				"la carga no tiene aplicaciones registradas; no se puede finalizar")
		}

		now := uc.now()
		if err := lifecycle.Finalize(ctx, repos, snap.Load, now); err != nil {
			return err
		}
		settled, err := lifecycle.Settle(ctx, repos, uc.ledger, snap, lifecycle.Transition{
			Actor:  in.Actor,
			Reason: reason,
			Kind:   entity.TransitionManualOverride,
			At:     now,
		})
		if err != nil {
			return err
		}
		if !settled.Changed {
			// La entrega ya figuraba DELIVERED: el cierre manual igual debe quedar en la bitácora.
			if err := recordOverride(ctx, repos, snap, in.Actor, reason, now); err != nil {
				return err
			}
		}
		res = &Result{
			TotalApplied:    snap.Mass.Applied,
			TotalMass:       snap.Mass.ActualMass,
			NumApplications: len(snap.Applications),
			Residual:        snap.Mass.Remaining,
			Status:          snap.Delivery.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("load_record_id", in.LoadRecordID).
		Str("actor", in.Actor).
		Str("residual", res.Residual.String()).
		Int("applications", res.NumApplications).
		Msg("carga finalizada manualmente")
	return res, nil
}

func recordOverride(ctx context.Context, repos repository.Repos, snap *lifecycle.LoadSnapshot, actor, reason string, at time.Time) error {
	loadID := snap.Load.ID
	return history.Record(ctx, repos.History, &entity.StatusHistoryEntry{
		DeliveryItemID: snap.Delivery.ID,
		LoadRecordID:   &loadID,
		FromStatus:     snap.Delivery.Status,
		ToStatus:       snap.Delivery.Status,
		PercentApplied: snap.Mass.PercentApplied,
		RemainingMass:  snap.Mass.Remaining,
		Actor:          actor,
		Reason:         reason,
		Kind:           entity.TransitionManualOverride,
		CreatedAt:      at,
	})
}
