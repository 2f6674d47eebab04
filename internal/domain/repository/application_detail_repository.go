package repository

import (
	"context"

	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ApplicationDetailRepository puerto de persistencia de aplicaciones (solo inserción).
type ApplicationDetailRepository interface {
	Create(ctx context.Context, detail *entity.ApplicationDetail) error
	// ListByLoad devuelve las aplicaciones de la carga ordenadas por secuencia.
	ListByLoad(ctx context.Context, loadRecordID string) ([]*entity.ApplicationDetail, error)
	// GetByIdempotencyKey devuelve (nil, nil) si la llave no se ha usado en la carga.
	GetByIdempotencyKey(ctx context.Context, loadRecordID, key string) (*entity.ApplicationDetail, error)
	SumAppliedByRequisition(ctx context.Context, requisitionID string) (decimal.Decimal, error)
}
