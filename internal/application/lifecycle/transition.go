package lifecycle

import (
	"context"
	"time"

	"github.com/jhoicas/massa-api/internal/application/history"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/jhoicas/massa-api/internal/domain/status"
)

// Transition describe una transición solicitada y cómo debe quedar en el historial.
type Transition struct {
	To                 entity.DeliveryStatus
	Actor              string
	Reason             string
	Kind               entity.TransitionKind
	CancellationReason *string
	// Force omite CheckTransition. Solo lo usa el auditor, que corrige hacia el estado resuelto.
	Force bool
	At    time.Time
}

// Apply cambia el estado de la entrega y agrega la entrada de historial.
// Devuelve false si la entrega ya estaba en t.To (no se escribe nada).
func Apply(ctx context.Context, repos repository.Repos, snap *LoadSnapshot, t Transition) (bool, error) {
	from := snap.Delivery.Status
	if from == t.To {
		return false, nil
	}
	if !t.Force {
		if err := status.CheckTransition(from, t.To); err != nil {
			return false, err
		}
	}
	if err := repos.Deliveries.UpdateStatus(ctx, snap.Delivery.ID, t.To, t.CancellationReason, t.At); err != nil {
		return false, err
	}
	snap.Delivery.Status = t.To
	snap.Delivery.CancellationReason = t.CancellationReason
	snap.Delivery.UpdatedAt = t.At

	entry := &entity.StatusHistoryEntry{
		DeliveryItemID: snap.Delivery.ID,
		FromStatus:     from,
		ToStatus:       t.To,
		PercentApplied: snap.Mass.PercentApplied,
		RemainingMass:  snap.Mass.Remaining,
		Actor:          t.Actor,
		Reason:         t.Reason,
		Kind:           t.Kind,
		CreatedAt:      t.At,
	}
	if snap.Load != nil {
		id := snap.Load.ID
		entry.LoadRecordID = &id
	}
	if err := history.Record(ctx, repos.History, entry); err != nil {
		return false, err
	}
	return true, nil
}

// SettleResult qué cambió al asentar una carga.
type SettleResult struct {
	From      entity.DeliveryStatus
	To        entity.DeliveryStatus
	Changed   bool
	Finalized bool // la carga se finalizó en esta llamada
}

// Settle finaliza la carga si la masa restante es <= ε, resuelve el estado correcto con
// status.Resolve y, si difiere del guardado, aplica la transición (t.To se ignora).
func Settle(ctx context.Context, repos repository.Repos, lg ledger.Ledger, snap *LoadSnapshot, t Transition) (SettleResult, error) {
	res := SettleResult{From: snap.Delivery.Status}
	if snap.Load != nil && !snap.Load.Finalized && !snap.Delivery.IsCancelled() && lg.IsExhausted(snap.Mass.Remaining) {
		if err := Finalize(ctx, repos, snap.Load, t.At); err != nil {
			return res, err
		}
		res.Finalized = true
	}
	t.To = status.Resolve(snap.StatusInput(), lg.Epsilon())
	// El estado resuelto es la verdad aunque el guardado haya derivado (p. ej. SCHEDULED con carga).
	t.Force = true
	changed, err := Apply(ctx, repos, snap, t)
	if err != nil {
		return res, err
	}
	res.To = snap.Delivery.Status
	res.Changed = changed
	return res, nil
}

// Finalize marca la carga como finalizada y la persiste.
func Finalize(ctx context.Context, repos repository.Repos, load *entity.LoadRecord, at time.Time) error {
	load.Finalized = true
	load.FinalizedAt = &at
	load.UpdatedAt = at
	return repos.Loads.Update(ctx, load)
}
