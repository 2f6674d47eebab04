package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/repository"
)

var _ repository.DeliveryItemRepository = (*DeliveryItemRepo)(nil)

// DeliveryItemRepo entregas programadas sobre PostgreSQL (usable con pool o tx).
type DeliveryItemRepo struct {
	q Querier
}

// NewDeliveryItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDeliveryItemRepository(q Querier) *DeliveryItemRepo {
	return &DeliveryItemRepo{q: q}
}

const deliveryColumns = `id, requisition_id, programmed_mass, scheduled_date, vehicle_id, team_id, plant_id,
	status, cancellation_reason, created_at, updated_at`

func scanDelivery(row pgx.Row) (*entity.DeliveryItem, error) {
	var d entity.DeliveryItem
	err := row.Scan(
		&d.ID, &d.RequisitionID, &d.ProgrammedMass, &d.ScheduledDate, &d.VehicleID, &d.TeamID, &d.PlantID,
		&d.Status, &d.CancellationReason, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create persiste una entrega.
func (r *DeliveryItemRepo) Create(ctx context.Context, item *entity.DeliveryItem) error {
	query := `
		INSERT INTO delivery_items (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.RequisitionID, item.ProgrammedMass, item.ScheduledDate, item.VehicleID, item.TeamID, item.PlantID,
		item.Status, item.CancellationReason, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return classify("create delivery item", err)
	}
	return nil
}

// GetByID obtiene una entrega; (nil, nil) si no existe.
func (r *DeliveryItemRepo) GetByID(ctx context.Context, id string) (*entity.DeliveryItem, error) {
	d, err := scanDelivery(r.q.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM delivery_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get delivery item", err)
	}
	return d, nil
}

// GetForUpdate obtiene la entrega y bloquea la fila (SELECT FOR UPDATE).
func (r *DeliveryItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.DeliveryItem, error) {
	d, err := scanDelivery(r.q.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM delivery_items WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get delivery item for update", err)
	}
	return d, nil
}

// UpdateStatus cambia el estado. cancellationReason nil conserva el valor guardado.
func (r *DeliveryItemRepo) UpdateStatus(ctx context.Context, id string, status entity.DeliveryStatus, cancellationReason *string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE delivery_items
		SET status = $2, cancellation_reason = COALESCE($3, cancellation_reason), updated_at = $4
		WHERE id = $1`, id, status, cancellationReason, at)
	if err != nil {
		return classify("update delivery status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entrega %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByRequisition lista las entregas de una requisición por fecha programada.
func (r *DeliveryItemRepo) ListByRequisition(ctx context.Context, requisitionID string) ([]*entity.DeliveryItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM delivery_items WHERE requisition_id = $1
		ORDER BY scheduled_date, created_at, id`, requisitionID)
	if err != nil {
		return nil, classify("list delivery items", err)
	}
	defer rows.Close()

	var out []*entity.DeliveryItem
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, classify("scan delivery item", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list delivery items", err)
	}
	return out, nil
}

// ListAuditableIDs IDs de entregas no canceladas con masa programada > 0.
func (r *DeliveryItemRepo) ListAuditableIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id FROM delivery_items
		WHERE status <> 'CANCELLED' AND programmed_mass > 0
		ORDER BY scheduled_date, created_at, id`)
	if err != nil {
		return nil, classify("list auditable deliveries", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify("list auditable deliveries", err)
	}
	return ids, nil
}
