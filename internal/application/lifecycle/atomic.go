// Package lifecycle reúne las primitivas atómicas compartidas por los casos de uso
// que mutan el libro de masa: AtomicApply (leer-modificar-escribir con la carga
// bloqueada) y Settle (finalización automática + transición de estado + historial).
package lifecycle

import (
	"context"
	"fmt"

	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/jhoicas/massa-api/internal/domain/status"
)

// LoadSnapshot estado leído dentro de la transacción, con las filas ya bloqueadas.
// Load es nil cuando la entrega aún no tiene carga.
type LoadSnapshot struct {
	Delivery     *entity.DeliveryItem
	Load         *entity.LoadRecord
	Applications []*entity.ApplicationDetail
	Mass         ledger.Remaining
}

// StatusInput arma la entrada del resolvedor a partir del snapshot.
func (s *LoadSnapshot) StatusInput() status.Input {
	in := status.Input{
		Stored:    s.Delivery.Status,
		Remaining: s.Mass.Remaining,
		Cancelled: s.Delivery.IsCancelled(),
		HasLoad:   s.Load != nil,
	}
	if s.Load != nil {
		in.Finalized = s.Load.Finalized
	}
	return in
}

// Recompute vuelve a derivar Mass después de modificar Load o Applications.
func (s *LoadSnapshot) Recompute(lg ledger.Ledger) {
	s.Mass = lg.ComputeRemaining(s.Load, s.Applications)
}

// AtomicApply ejecuta fn en una transacción con la carga y su entrega bloqueadas
// (orden de bloqueo: carga, entrega). fn recibe el snapshot actual y los repos de la tx;
// si devuelve error no queda nada visible.
func AtomicApply(
	ctx context.Context,
	tx repository.TxRunner,
	lg ledger.Ledger,
	loadRecordID string,
	fn func(ctx context.Context, repos repository.Repos, snap *LoadSnapshot) error,
) error {
	return tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		load, err := repos.Loads.GetForUpdate(ctx, loadRecordID)
		if err != nil {
			return err
		}
		if load == nil {
			return fmt.Errorf("carga %s: %w", loadRecordID, domain.ErrNotFound)
		}
		snap, err := lockAndRead(ctx, repos, lg, load.DeliveryItemID, load)
		if err != nil {
			return err
		}
		return fn(ctx, repos, snap)
	})
}

// AtomicApplyByDelivery igual que AtomicApply pero partiendo de la entrega; la carga puede no existir.
func AtomicApplyByDelivery(
	ctx context.Context,
	tx repository.TxRunner,
	lg ledger.Ledger,
	deliveryItemID string,
	fn func(ctx context.Context, repos repository.Repos, snap *LoadSnapshot) error,
) error {
	return tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var load *entity.LoadRecord
		found, err := repos.Loads.GetByDeliveryItem(ctx, deliveryItemID)
		if err != nil {
			return err
		}
		if found != nil {
			// Releer con bloqueo para respetar el orden carga → entrega.
			load, err = repos.Loads.GetForUpdate(ctx, found.ID)
			if err != nil {
				return err
			}
		}
		snap, err := lockAndRead(ctx, repos, lg, deliveryItemID, load)
		if err != nil {
			return err
		}
		return fn(ctx, repos, snap)
	})
}

func lockAndRead(
	ctx context.Context,
	repos repository.Repos,
	lg ledger.Ledger,
	deliveryItemID string,
	load *entity.LoadRecord,
) (*LoadSnapshot, error) {
	item, err := repos.Deliveries.GetForUpdate(ctx, deliveryItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("entrega %s: %w", deliveryItemID, domain.ErrNotFound)
	}
	snap := &LoadSnapshot{Delivery: item, Load: load}
	if load != nil {
		apps, err := repos.Applications.ListByLoad(ctx, load.ID)
		if err != nil {
			return nil, err
		}
		snap.Applications = apps
	}
	snap.Recompute(lg)
	return snap, nil
}
