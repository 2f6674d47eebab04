package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/repository"
)

var _ repository.RequisitionRepository = (*RequisitionRepo)(nil)

// RequisitionRepo lectura de requisiciones sobre PostgreSQL (usable con pool o tx).
type RequisitionRepo struct {
	q Querier
}

// NewRequisitionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRequisitionRepository(q Querier) *RequisitionRepo {
	return &RequisitionRepo{q: q}
}

const selectRequisition = `
	SELECT id, code, cost_center_id, total_mass, created_at
	FROM requisitions WHERE id = $1`

// GetByID obtiene una requisición; (nil, nil) si no existe.
func (r *RequisitionRepo) GetByID(ctx context.Context, id string) (*entity.Requisition, error) {
	return r.get(ctx, "get requisition", selectRequisition, id)
}

// GetForUpdate obtiene la requisición y bloquea la fila (SELECT FOR UPDATE).
func (r *RequisitionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Requisition, error) {
	return r.get(ctx, "get requisition for update", selectRequisition+` FOR UPDATE`, id)
}

func (r *RequisitionRepo) get(ctx context.Context, op, query, id string) (*entity.Requisition, error) {
	var req entity.Requisition
	err := r.q.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.Code, &req.CostCenterID, &req.TotalMass, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return &req, nil
}
