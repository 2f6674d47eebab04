package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/repository"
)

var _ repository.LoadRecordRepository = (*LoadRecordRepo)(nil)

// LoadRecordRepo cargas sobre PostgreSQL (usable con pool o tx).
type LoadRecordRepo struct {
	q Querier
}

// NewLoadRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLoadRecordRepository(q Querier) *LoadRecordRepo {
	return &LoadRecordRepo{q: q}
}

const loadColumns = `id, delivery_item_id, departure_mass, return_mass, finalized, finalized_at,
	last_sequence, dispatched_at, updated_at`

func scanLoad(row pgx.Row) (*entity.LoadRecord, error) {
	var l entity.LoadRecord
	err := row.Scan(
		&l.ID, &l.DeliveryItemID, &l.DepartureMass, &l.ReturnMass, &l.Finalized, &l.FinalizedAt,
		&l.LastSequence, &l.DispatchedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoadRecordRepo) getOne(ctx context.Context, op, query string, arg string) (*entity.LoadRecord, error) {
	l, err := scanLoad(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return l, nil
}

// Create persiste una carga. Una segunda carga para la misma entrega viola el índice único (conflicto).
func (r *LoadRecordRepo) Create(ctx context.Context, load *entity.LoadRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO load_records (`+loadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		load.ID, load.DeliveryItemID, load.DepartureMass, load.ReturnMass, load.Finalized, load.FinalizedAt,
		load.LastSequence, load.DispatchedAt, load.UpdatedAt,
	)
	if err != nil {
		return classify("create load record", err)
	}
	return nil
}

// GetByID obtiene una carga; (nil, nil) si no existe.
func (r *LoadRecordRepo) GetByID(ctx context.Context, id string) (*entity.LoadRecord, error) {
	return r.getOne(ctx, "get load record", `SELECT `+loadColumns+` FROM load_records WHERE id = $1`, id)
}

// GetForUpdate obtiene la carga y bloquea la fila (SELECT FOR UPDATE).
func (r *LoadRecordRepo) GetForUpdate(ctx context.Context, id string) (*entity.LoadRecord, error) {
	return r.getOne(ctx, "get load record for update", `SELECT `+loadColumns+` FROM load_records WHERE id = $1 FOR UPDATE`, id)
}

// GetByDeliveryItem obtiene la carga de una entrega, sin bloqueo.
func (r *LoadRecordRepo) GetByDeliveryItem(ctx context.Context, deliveryItemID string) (*entity.LoadRecord, error) {
	return r.getOne(ctx, "get load by delivery", `SELECT `+loadColumns+` FROM load_records WHERE delivery_item_id = $1`, deliveryItemID)
}

// Update persiste retorno, finalización y contador de secuencia.
func (r *LoadRecordRepo) Update(ctx context.Context, load *entity.LoadRecord) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE load_records
		SET return_mass = $2, finalized = $3, finalized_at = $4, last_sequence = $5, updated_at = $6
		WHERE id = $1`,
		load.ID, load.ReturnMass, load.Finalized, load.FinalizedAt, load.LastSequence, load.UpdatedAt,
	)
	if err != nil {
		return classify("update load record", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("carga %s: %w", load.ID, domain.ErrNotFound)
	}
	return nil
}

// ListByRequisition lista las cargas de todas las entregas de la requisición.
func (r *LoadRecordRepo) ListByRequisition(ctx context.Context, requisitionID string) ([]*entity.LoadRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT l.id, l.delivery_item_id, l.departure_mass, l.return_mass, l.finalized, l.finalized_at,
		       l.last_sequence, l.dispatched_at, l.updated_at
		FROM load_records l
		JOIN delivery_items d ON d.id = l.delivery_item_id
		WHERE d.requisition_id = $1
		ORDER BY l.dispatched_at, l.id`, requisitionID)
	if err != nil {
		return nil, classify("list loads by requisition", err)
	}
	defer rows.Close()

	var out []*entity.LoadRecord
	for rows.Next() {
		l, err := scanLoad(rows)
		if err != nil {
			return nil, classify("scan load record", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list loads by requisition", err)
	}
	return out, nil
}
