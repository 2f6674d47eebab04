package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ApplicationDetailRepository = (*ApplicationDetailRepo)(nil)

// ApplicationDetailRepo aplicaciones sobre PostgreSQL (usable con pool o tx). Solo inserción.
type ApplicationDetailRepo struct {
	q Querier
}

// NewApplicationDetailRepository construye el adaptador. Pasar pool o tx (Querier).
func NewApplicationDetailRepository(q Querier) *ApplicationDetailRepo {
	return &ApplicationDetailRepo{q: q}
}

const applicationColumns = `id, load_record_id, sequence, site_name, applied_mass, measurements,
	idempotency_key, created_by, created_at`

func scanApplication(row pgx.Row) (*entity.ApplicationDetail, error) {
	var (
		a   entity.ApplicationDetail
		raw []byte
	)
	err := row.Scan(
		&a.ID, &a.LoadRecordID, &a.Sequence, &a.SiteName, &a.AppliedMass, &raw,
		&a.IdempotencyKey, &a.CreatedBy, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a.Measurements); err != nil {
			return nil, fmt.Errorf("measurements de la aplicación %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

// Create inserta la aplicación. Secuencia o llave repetidas en la carga violan índices únicos (conflicto).
func (r *ApplicationDetailRepo) Create(ctx context.Context, detail *entity.ApplicationDetail) error {
	measurements, err := json.Marshal(detail.Measurements)
	if err != nil {
		return fmt.Errorf("serializar measurements: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO application_details (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		detail.ID, detail.LoadRecordID, detail.Sequence, detail.SiteName, detail.AppliedMass, measurements,
		detail.IdempotencyKey, detail.CreatedBy, detail.CreatedAt,
	)
	if err != nil {
		return classify("create application detail", err)
	}
	return nil
}

// ListByLoad devuelve las aplicaciones de la carga ordenadas por secuencia.
func (r *ApplicationDetailRepo) ListByLoad(ctx context.Context, loadRecordID string) ([]*entity.ApplicationDetail, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM application_details WHERE load_record_id = $1
		ORDER BY sequence`, loadRecordID)
	if err != nil {
		return nil, classify("list applications", err)
	}
	defer rows.Close()

	var out []*entity.ApplicationDetail
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, classify("scan application", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list applications", err)
	}
	return out, nil
}

// GetByIdempotencyKey devuelve (nil, nil) si la llave no se ha usado en la carga.
func (r *ApplicationDetailRepo) GetByIdempotencyKey(ctx context.Context, loadRecordID, key string) (*entity.ApplicationDetail, error) {
	a, err := scanApplication(r.q.QueryRow(ctx, `
		SELECT `+applicationColumns+`
		FROM application_details WHERE load_record_id = $1 AND idempotency_key = $2`, loadRecordID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get application by idempotency key", err)
	}
	return a, nil
}

// SumAppliedByRequisition suma la masa aplicada en todas las cargas de la requisición.
func (r *ApplicationDetailRepo) SumAppliedByRequisition(ctx context.Context, requisitionID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(a.applied_mass), 0)
		FROM application_details a
		JOIN load_records l ON l.id = a.load_record_id
		JOIN delivery_items d ON d.id = l.delivery_item_id
		WHERE d.requisition_id = $1`, requisitionID).Scan(&sum)
	if err != nil {
		return decimal.Zero, classify("sum applied by requisition", err)
	}
	return sum, nil
}
