// Package audit recorre las entregas activas y corrige el estado almacenado que se
// desvió del estado derivado de la masa. Cada entrega se procesa en su propia transacción.
package audit

import (
	"context"
	"time"

	"github.com/jhoicas/massa-api/internal/application/lifecycle"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/jhoicas/massa-api/internal/domain/status"
	"github.com/rs/zerolog"
)

// ReasonSweep motivo de las correcciones del barrido.
const ReasonSweep = "integrity sweep correction"

// DefaultActor actor cuando quien dispara el barrido no se identifica.
const DefaultActor = "system:integrity-sweep"

// ItemFailure entrega que no se pudo revisar en este barrido.
type ItemFailure struct {
	DeliveryItemID string `json:"delivery_item_id"`
	Error          string `json:"error"`
}

// Report resultado de un barrido.
type Report struct {
	TotalChecked         int                          `json:"total_checked"`
	CorrectedToScheduled int                          `json:"corrected_to_scheduled"`
	CorrectedToSent      int                          `json:"corrected_to_sent"`
	CorrectedToDelivered int                          `json:"corrected_to_delivered"`
	InconsistenciesFound int                          `json:"inconsistencies_found"`
	Violations           []*domain.IntegrityViolation `json:"violations"`
	Failed               []ItemFailure                `json:"failed"`
	StartedAt            time.Time                    `json:"started_at"`
	FinishedAt           time.Time                    `json:"finished_at"`
}

// Corrections total de entregas cuyo estado se corrigió.
func (r *Report) Corrections() int {
	return r.CorrectedToScheduled + r.CorrectedToSent + r.CorrectedToDelivered
}

// Auditor barrido de integridad.
type Auditor struct {
	txRunner repository.TxRunner
	ledger   ledger.Ledger
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuditor construye el auditor.
func NewAuditor(txRunner repository.TxRunner, lg ledger.Ledger, log zerolog.Logger) *Auditor {
	return &Auditor{txRunner: txRunner, ledger: lg, log: log, now: time.Now}
}

// Sweep revisa todas las entregas no canceladas con masa programada > 0.
// Los fallos por entrega se acumulan en el reporte; solo falla si no se puede listar.
// Un segundo barrido sin escrituras intermedias no hace correcciones.
func (a *Auditor) Sweep(ctx context.Context, actor string) (*Report, error) {
	if actor == "" {
		actor = DefaultActor
	}
	report := &Report{StartedAt: a.now()}

	var ids []string
	err := a.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		ids, err = repos.Deliveries.ListAuditableIDs(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewInfrastructure("integrity_sweep", err)
		}
		report.TotalChecked++
		if err := a.checkOne(ctx, id, actor, report); err != nil {
			a.log.Error().Err(err).Str("delivery_item_id", id).Msg("barrido: no se pudo revisar la entrega")
			report.Failed = append(report.Failed, ItemFailure{DeliveryItemID: id, Error: err.Error()})
		}
	}
	report.FinishedAt = a.now()

	a.log.Info().
		Int("checked", report.TotalChecked).
		Int("inconsistencies", report.InconsistenciesFound).
		Int("corrections", report.Corrections()).
		Int("violations", len(report.Violations)).
		Int("failed", len(report.Failed)).
		Msg("barrido de integridad terminado")
	return report, nil
}

func (a *Auditor) checkOne(ctx context.Context, deliveryItemID, actor string, report *Report) error {
	var (
		violation *domain.IntegrityViolation
		outcome   lifecycle.SettleResult
		found     bool
	)
	err := lifecycle.AtomicApplyByDelivery(ctx, a.txRunner, a.ledger, deliveryItemID, func(
		ctx context.Context,
		repos repository.Repos,
		snap *lifecycle.LoadSnapshot,
	) error {
		// Pudo cancelarse entre el listado y el bloqueo.
		if snap.Delivery.IsCancelled() {
			return nil
		}
		if snap.Load != nil && a.ledger.Overdrawn(snap.Mass) {
			violation = &domain.IntegrityViolation{
				DeliveryItemID: snap.Delivery.ID,
				LoadRecordID:   snap.Load.ID,
				ActualMass:     snap.Mass.ActualMass,
				AppliedMass:    snap.Mass.Applied,
				Detail:         "la masa aplicada supera la masa real de la carga",
			}
			return nil
		}

		_, drift := status.Drift(snap.StatusInput(), a.ledger.Epsilon())
		pendingFinalize := snap.Load != nil && !snap.Load.Finalized && a.ledger.IsExhausted(snap.Mass.Remaining)
		if !drift && !pendingFinalize {
			return nil
		}
		found = true

		var err error
		outcome, err = lifecycle.Settle(ctx, repos, a.ledger, snap, lifecycle.Transition{
			Actor:  actor,
			Reason: ReasonSweep,
			Kind:   entity.TransitionIntegritySweep,
			At:     a.now(),
		})
		return err
	})
	if err != nil {
		return err
	}

	if violation != nil {
		a.log.Warn().Err(violation).Str("delivery_item_id", deliveryItemID).Msg("barrido: violación de integridad")
		report.Violations = append(report.Violations, violation)
		report.InconsistenciesFound++
		return nil
	}
	if !found {
		return nil
	}
	report.InconsistenciesFound++
	if outcome.Changed {
		switch outcome.To {
		case entity.DeliveryStatusScheduled:
			report.CorrectedToScheduled++
		case entity.DeliveryStatusSent:
			report.CorrectedToSent++
		case entity.DeliveryStatusDelivered:
			report.CorrectedToDelivered++
		}
	}
	a.log.Info().
		Str("delivery_item_id", deliveryItemID).
		Str("from", string(outcome.From)).
		Str("to", string(outcome.To)).
		Bool("finalized", outcome.Finalized).
		Msg("barrido: entrega corregida")
	return nil
}
