// Package scheduling programa entregas contra el presupuesto de la requisición y maneja
// los eventos externos de su ciclo de vida: despacho, pesaje de retorno y cancelación.
package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/massa-api/internal/application/lifecycle"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/jhoicas/massa-api/internal/domain/status"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Motivos registrados en el historial.
const (
	ReasonDispatched = "carga despachada"
	ReasonWeighing   = "pesaje de retorno"
)

// UseCase programación y eventos de despacho.
type UseCase struct {
	txRunner repository.TxRunner
	ledger   ledger.Ledger
	log      zerolog.Logger
	now      func() time.Time
}

// NewUseCase construye el caso de uso de programación.
func NewUseCase(txRunner repository.TxRunner, lg ledger.Ledger, log zerolog.Logger) *UseCase {
	return &UseCase{txRunner: txRunner, ledger: lg, log: log, now: time.Now}
}

// ScheduleInput entrada para programar una entrega.
type ScheduleInput struct {
	RequisitionID  string
	ProgrammedMass decimal.Decimal
	ScheduledDate  time.Time
	VehicleID      string
	TeamID         string
	PlantID        string
}

// Schedule crea una entrega SCHEDULED si cabe en el saldo de la requisición.
// La requisición se bloquea para que dos programaciones simultáneas no excedan el total.
func (uc *UseCase) Schedule(ctx context.Context, in ScheduleInput) (*entity.DeliveryItem, error) {
	if in.RequisitionID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !in.ProgrammedMass.IsPositive() {
		return nil, domain.NewValidationError(domain.CodeInvalidMass, "la masa programada debe ser mayor que cero")
	}

	var item *entity.DeliveryItem
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		req, err := repos.Requisitions.GetForUpdate(ctx, in.RequisitionID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("requisición %s: %w", in.RequisitionID, domain.ErrNotFound)
		}
		existing, err := repos.Deliveries.ListByRequisition(ctx, req.ID)
		if err != nil {
			return err
		}
		check := uc.ledger.ValidateScheduling(req.TotalMass, ledger.ProgrammedMass(existing), in.ProgrammedMass)
		if !check.OK {
			return check.Err()
		}

		now := uc.now()
		scheduled := in.ScheduledDate
		if scheduled.IsZero() {
			scheduled = now
		}
		item = &entity.DeliveryItem{
			ID:             uuid.New().String(),
			RequisitionID:  req.ID,
			ProgrammedMass: in.ProgrammedMass,
			ScheduledDate:  scheduled,
			VehicleID:      in.VehicleID,
			TeamID:         in.TeamID,
			PlantID:        in.PlantID,
			Status:         entity.DeliveryStatusScheduled,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return repos.Deliveries.Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DispatchInput entrada del despacho (pesaje de salida).
type DispatchInput struct {
	DeliveryItemID string
	DepartureMass  decimal.Decimal
	Actor          string
}

// Dispatch crea la carga de la entrega y la pasa de SCHEDULED a SENT. Una entrega tiene una sola carga.
func (uc *UseCase) Dispatch(ctx context.Context, in DispatchInput) (*entity.LoadRecord, error) {
	if in.DeliveryItemID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !in.DepartureMass.IsPositive() {
		return nil, domain.NewValidationError(domain.CodeInvalidWeighing, "el pesaje de salida debe ser mayor que cero")
	}
	if strings.TrimSpace(in.Actor) == "" {
		return nil, domain.NewValidationError(domain.CodeMissingActor, "el actor es obligatorio")
	}

	var load *entity.LoadRecord
	err := lifecycle.AtomicApplyByDelivery(ctx, uc.txRunner, uc.ledger, in.DeliveryItemID, func(
		ctx context.Context,
		repos repository.Repos,
		snap *lifecycle.LoadSnapshot,
	) error {
		if snap.Load != nil {
			return domain.NewValidationError(domain.CodeAlreadyDispatched, "la entrega ya tiene una carga despachada")
		}
		if snap.Delivery.Status != entity.DeliveryStatusScheduled {
			if err := status.CheckTransition(snap.Delivery.Status, entity.DeliveryStatusSent); err != nil {
				return err
			}
			return domain.NewValidationError(domain.CodeAlreadyDispatched, "la entrega ya fue despachada")
		}

		now := uc.now()
		load = &entity.LoadRecord{
			ID:             uuid.New().String(),
			DeliveryItemID: snap.Delivery.ID,
			DepartureMass:  in.DepartureMass,
			DispatchedAt:   now,
			UpdatedAt:      now,
		}
		if err := repos.Loads.Create(ctx, load); err != nil {
			return err
		}
		snap.Load = load
		snap.Recompute(uc.ledger)
		_, err := lifecycle.Apply(ctx, repos, snap, lifecycle.Transition{
			To:     entity.DeliveryStatusSent,
			Actor:  in.Actor,
			Reason: ReasonDispatched,
			Kind:   entity.TransitionAutomatic,
			At:     now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("delivery_item_id", in.DeliveryItemID).Str("load_record_id", load.ID).
		Str("departure_mass", in.DepartureMass.String()).Msg("carga despachada")
	return load, nil
}

// WeighingInput entrada del pesaje de retorno.
type WeighingInput struct {
	LoadRecordID string
	ReturnMass   decimal.Decimal
	Actor        string
}

// WeighingResult masa de la carga después del pesaje de retorno.
type WeighingResult struct {
	ActualMass    decimal.Decimal
	RemainingMass decimal.Decimal
	Status        entity.DeliveryStatus
	Finalized     bool
}

// RecordReturnWeight registra el pesaje de retorno. La nueva masa real debe seguir cubriendo lo ya
// aplicado (menos ε); si la masa restante queda <= ε la carga se finaliza.
func (uc *UseCase) RecordReturnWeight(ctx context.Context, in WeighingInput) (*WeighingResult, error) {
	if in.LoadRecordID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.ReturnMass.IsNegative() {
		return nil, domain.NewValidationError(domain.CodeInvalidWeighing, "el pesaje de retorno no puede ser negativo")
	}
	if strings.TrimSpace(in.Actor) == "" {
		return nil, domain.NewValidationError(domain.CodeMissingActor, "el actor es obligatorio")
	}

	var res *WeighingResult
	err := lifecycle.AtomicApply(ctx, uc.txRunner, uc.ledger, in.LoadRecordID, func(
		ctx context.Context,
		repos repository.Repos,
		snap *lifecycle.LoadSnapshot,
	) error {
		if snap.Load.Finalized {
			return domain.NewValidationError(domain.CodeAlreadyFinalized, "la carga ya está finalizada")
		}
		if !in.ReturnMass.LessThan(snap.Load.DepartureMass) {
			return domain.NewValidationError(domain.CodeInvalidWeighing,
				fmt.Sprintf("el pesaje de retorno (%s t) debe ser menor que el de salida (%s t)",
					in.ReturnMass.String(), snap.Load.DepartureMass.String()))
		}
		actual := snap.Load.DepartureMass.Sub(in.ReturnMass)
		if snap.Mass.Applied.GreaterThan(actual.Add(uc.ledger.Epsilon())) {
			return domain.NewValidationError(domain.CodeInvalidWeighing,
				fmt.Sprintf("la masa real resultante (%s t) es menor que la ya aplicada (%s t)",
					actual.String(), snap.Mass.Applied.String()))
		}

		now := uc.now()
		ret := in.ReturnMass
		snap.Load.ReturnMass = &ret
		snap.Load.UpdatedAt = now
		if err := repos.Loads.Update(ctx, snap.Load); err != nil {
			return err
		}
		snap.Recompute(uc.ledger)
		settled, err := lifecycle.Settle(ctx, repos, uc.ledger, snap, lifecycle.Transition{
			Actor:  in.Actor,
			Reason: ReasonWeighing,
			Kind:   entity.TransitionAutomatic,
			At:     now,
		})
		if err != nil {
			return err
		}
		res = &WeighingResult{
			ActualMass:    snap.Mass.ActualMass,
			RemainingMass: snap.Mass.Remaining,
			Status:        snap.Delivery.Status,
			Finalized:     settled.Finalized || snap.Load.Finalized,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelInput entrada de la cancelación administrativa.
type CancelInput struct {
	DeliveryItemID string
	Reason         string
	Actor          string
}

// Cancel pasa la entrega a CANCELLED. Requiere motivo y es irreversible.
func (uc *UseCase) Cancel(ctx context.Context, in CancelInput) (*entity.DeliveryItem, error) {
	reason := strings.TrimSpace(in.Reason)
	if in.DeliveryItemID == "" {
		return nil, domain.ErrInvalidInput
	}
	if reason == "" {
		return nil, domain.NewValidationError(domain.CodeMissingReason, "la cancelación requiere un motivo")
	}
	if strings.TrimSpace(in.Actor) == "" {
		return nil, domain.NewValidationError(domain.CodeMissingActor, "el actor es obligatorio")
	}

	var item *entity.DeliveryItem
	err := lifecycle.AtomicApplyByDelivery(ctx, uc.txRunner, uc.ledger, in.DeliveryItemID, func(
		ctx context.Context,
		repos repository.Repos,
		snap *lifecycle.LoadSnapshot,
	) error {
		if snap.Delivery.IsCancelled() {
			return domain.NewValidationError(domain.CodeInvalidTransition, "la entrega ya está cancelada")
		}
		if status.IsTerminal(snap.Delivery.Status) {
			return status.CheckTransition(snap.Delivery.Status, entity.DeliveryStatusCancelled)
		}
		_, err := lifecycle.Apply(ctx, repos, snap, lifecycle.Transition{
			To:                 entity.DeliveryStatusCancelled,
			Actor:              in.Actor,
			Reason:             reason,
			Kind:               entity.TransitionAdministrative,
			CancellationReason: &reason,
			At:                 uc.now(),
		})
		item = snap.Delivery
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("delivery_item_id", in.DeliveryItemID).Str("actor", in.Actor).Msg("entrega cancelada")
	return item, nil
}
