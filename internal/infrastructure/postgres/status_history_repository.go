package postgres

import (
	"context"

	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/repository"
)

var _ repository.StatusHistoryRepository = (*StatusHistoryRepo)(nil)

// StatusHistoryRepo bitácora de transiciones sobre PostgreSQL (usable con pool o tx).
type StatusHistoryRepo struct {
	q Querier
}

// NewStatusHistoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStatusHistoryRepository(q Querier) *StatusHistoryRepo {
	return &StatusHistoryRepo{q: q}
}

// Append inserta la entrada y devuelve en entry.Seq el orden de inserción asignado por la BD.
func (r *StatusHistoryRepo) Append(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO delivery_status_history
			(id, delivery_item_id, load_record_id, from_status, to_status, percent_applied, remaining_mass,
			 actor, reason, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq`,
		entry.ID, entry.DeliveryItemID, entry.LoadRecordID, entry.FromStatus, entry.ToStatus,
		entry.PercentApplied, entry.RemainingMass, entry.Actor, entry.Reason, entry.Kind, entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return classify("append status history", err)
	}
	return nil
}

// ListByDelivery devuelve las entradas de más reciente a más antigua. limit <= 0 = todas.
func (r *StatusHistoryRepo) ListByDelivery(ctx context.Context, deliveryItemID string, limit, offset int) ([]*entity.StatusHistoryEntry, error) {
	query := `
		SELECT id, seq, delivery_item_id, load_record_id, from_status, to_status, percent_applied,
		       remaining_mass, actor, reason, kind, created_at
		FROM delivery_status_history
		WHERE delivery_item_id = $1
		ORDER BY created_at DESC, seq DESC`
	args := []any{deliveryItemID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, max(offset, 0))
	} else if offset > 0 {
		query += ` OFFSET $2`
		args = append(args, offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list status history", err)
	}
	defer rows.Close()

	var out []*entity.StatusHistoryEntry
	for rows.Next() {
		var e entity.StatusHistoryEntry
		if err := rows.Scan(
			&e.ID, &e.Seq, &e.DeliveryItemID, &e.LoadRecordID, &e.FromStatus, &e.ToStatus, &e.PercentApplied,
			&e.RemainingMass, &e.Actor, &e.Reason, &e.Kind, &e.CreatedAt,
		); err != nil {
			return nil, classify("scan status history", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list status history", err)
	}
	return out, nil
}
