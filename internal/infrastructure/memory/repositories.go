package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ── Requisiciones ────────────────────────────────────────────────────────────

type requisitionRepo struct{ v *view }

func (r *requisitionRepo) GetByID(_ context.Context, id string) (*entity.Requisition, error) {
	var out *entity.Requisition
	_ = r.v.with(func(st *state) error {
		if req, ok := st.requisitions[id]; ok {
			out = &req
		}
		return nil
	})
	return out, nil
}

// GetForUpdate: la transacción ya tiene el mutex del Store.
func (r *requisitionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Requisition, error) {
	return r.GetByID(ctx, id)
}

// ── Entregas ─────────────────────────────────────────────────────────────────

type deliveryRepo struct{ v *view }

func (r *deliveryRepo) Create(_ context.Context, item *entity.DeliveryItem) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.deliveries[item.ID]; ok {
			return domain.NewConflict("memory.create_delivery", fmt.Errorf("entrega %s duplicada", item.ID))
		}
		st.deliveries[item.ID] = *item
		return nil
	})
}

func (r *deliveryRepo) GetByID(_ context.Context, id string) (*entity.DeliveryItem, error) {
	var out *entity.DeliveryItem
	_ = r.v.with(func(st *state) error {
		if d, ok := st.deliveries[id]; ok {
			out = &d
		}
		return nil
	})
	return out, nil
}

func (r *deliveryRepo) GetForUpdate(ctx context.Context, id string) (*entity.DeliveryItem, error) {
	return r.GetByID(ctx, id)
}

func (r *deliveryRepo) UpdateStatus(_ context.Context, id string, status entity.DeliveryStatus, cancellationReason *string, at time.Time) error {
	return r.v.with(func(st *state) error {
		d, ok := st.deliveries[id]
		if !ok {
			return fmt.Errorf("entrega %s: %w", id, domain.ErrNotFound)
		}
		d.Status = status
		if cancellationReason != nil {
			reason := *cancellationReason
			d.CancellationReason = &reason
		}
		d.UpdatedAt = at
		st.deliveries[id] = d
		return nil
	})
}

func (r *deliveryRepo) ListByRequisition(_ context.Context, requisitionID string) ([]*entity.DeliveryItem, error) {
	var out []*entity.DeliveryItem
	_ = r.v.with(func(st *state) error {
		for _, d := range st.deliveries {
			if d.RequisitionID == requisitionID {
				d := d
				out = append(out, &d)
			}
		}
		return nil
	})
	sortDeliveries(out)
	return out, nil
}

func (r *deliveryRepo) ListAuditableIDs(_ context.Context) ([]string, error) {
	var items []*entity.DeliveryItem
	_ = r.v.with(func(st *state) error {
		for _, d := range st.deliveries {
			if d.IsCancelled() || !d.ProgrammedMass.IsPositive() {
				continue
			}
			d := d
			items = append(items, &d)
		}
		return nil
	})
	sortDeliveries(items)
	ids := make([]string, 0, len(items))
	for _, d := range items {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// ── Cargas ───────────────────────────────────────────────────────────────────

type loadRepo struct{ v *view }

func (r *loadRepo) Create(_ context.Context, load *entity.LoadRecord) error {
	return r.v.with(func(st *state) error {
		for _, l := range st.loads {
			if l.DeliveryItemID == load.DeliveryItemID {
				return domain.NewConflict("memory.create_load",
					fmt.Errorf("la entrega %s ya tiene carga", load.DeliveryItemID))
			}
		}
		st.loads[load.ID] = *load
		return nil
	})
}

func (r *loadRepo) GetByID(_ context.Context, id string) (*entity.LoadRecord, error) {
	var out *entity.LoadRecord
	_ = r.v.with(func(st *state) error {
		if l, ok := st.loads[id]; ok {
			out = &l
		}
		return nil
	})
	return out, nil
}

func (r *loadRepo) GetForUpdate(ctx context.Context, id string) (*entity.LoadRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *loadRepo) GetByDeliveryItem(_ context.Context, deliveryItemID string) (*entity.LoadRecord, error) {
	var out *entity.LoadRecord
	_ = r.v.with(func(st *state) error {
		for _, l := range st.loads {
			if l.DeliveryItemID == deliveryItemID {
				l := l
				out = &l
				return nil
			}
		}
		return nil
	})
	return out, nil
}

func (r *loadRepo) Update(_ context.Context, load *entity.LoadRecord) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.loads[load.ID]; !ok {
			return fmt.Errorf("carga %s: %w", load.ID, domain.ErrNotFound)
		}
		st.loads[load.ID] = *load
		return nil
	})
}

func (r *loadRepo) ListByRequisition(_ context.Context, requisitionID string) ([]*entity.LoadRecord, error) {
	var out []*entity.LoadRecord
	_ = r.v.with(func(st *state) error {
		for _, l := range st.loads {
			if d, ok := st.deliveries[l.DeliveryItemID]; ok && d.RequisitionID == requisitionID {
				l := l
				out = append(out, &l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DispatchedAt.Equal(out[j].DispatchedAt) {
			return out[i].DispatchedAt.Before(out[j].DispatchedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ── Aplicaciones ─────────────────────────────────────────────────────────────

type applicationRepo struct{ v *view }

func (r *applicationRepo) Create(_ context.Context, detail *entity.ApplicationDetail) error {
	return r.v.with(func(st *state) error {
		for _, a := range st.applications {
			if a.LoadRecordID != detail.LoadRecordID {
				continue
			}
			if a.Sequence == detail.Sequence {
				return domain.NewConflict("memory.create_application",
					fmt.Errorf("secuencia %d duplicada en la carga %s", detail.Sequence, detail.LoadRecordID))
			}
			if a.IdempotencyKey == detail.IdempotencyKey {
				return domain.NewConflict("memory.create_application",
					fmt.Errorf("llave de idempotencia duplicada en la carga %s", detail.LoadRecordID))
			}
		}
		st.applications[detail.ID] = *detail
		return nil
	})
}

func (r *applicationRepo) ListByLoad(_ context.Context, loadRecordID string) ([]*entity.ApplicationDetail, error) {
	var out []*entity.ApplicationDetail
	_ = r.v.with(func(st *state) error {
		for _, a := range st.applications {
			if a.LoadRecordID == loadRecordID {
				a := a
				out = append(out, &a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *applicationRepo) GetByIdempotencyKey(_ context.Context, loadRecordID, key string) (*entity.ApplicationDetail, error) {
	var out *entity.ApplicationDetail
	_ = r.v.with(func(st *state) error {
		for _, a := range st.applications {
			if a.LoadRecordID == loadRecordID && a.IdempotencyKey == key {
				a := a
				out = &a
				return nil
			}
		}
		return nil
	})
	return out, nil
}

func (r *applicationRepo) SumAppliedByRequisition(_ context.Context, requisitionID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	_ = r.v.with(func(st *state) error {
		for _, a := range st.applications {
			l, ok := st.loads[a.LoadRecordID]
			if !ok {
				continue
			}
			if d, ok := st.deliveries[l.DeliveryItemID]; ok && d.RequisitionID == requisitionID {
				sum = sum.Add(a.AppliedMass)
			}
		}
		return nil
	})
	return sum, nil
}

// ── Historial ────────────────────────────────────────────────────────────────

type historyRepo struct{ v *view }

func (r *historyRepo) Append(_ context.Context, entry *entity.StatusHistoryEntry) error {
	return r.v.with(func(st *state) error {
		st.historySeq++
		entry.Seq = st.historySeq
		st.history = append(st.history, *entry)
		return nil
	})
}

func (r *historyRepo) ListByDelivery(_ context.Context, deliveryItemID string, limit, offset int) ([]*entity.StatusHistoryEntry, error) {
	var out []*entity.StatusHistoryEntry
	_ = r.v.with(func(st *state) error {
		for _, e := range st.history {
			if e.DeliveryItemID == deliveryItemID {
				e := e
				out = append(out, &e)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	if offset > 0 {
		if offset >= len(out) {
			return []*entity.StatusHistoryEntry{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
