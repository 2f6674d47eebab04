package repository

import (
	"context"

	"github.com/jhoicas/massa-api/internal/domain/entity"
)

// RequisitionRepository puerto de lectura de requisiciones (dato maestro externo).
// GetByID y GetForUpdate devuelven (nil, nil) si no existe.
type RequisitionRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Requisition, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) para serializar la programación contra el presupuesto.
	GetForUpdate(ctx context.Context, id string) (*entity.Requisition, error)
}
