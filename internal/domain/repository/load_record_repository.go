package repository

import (
	"context"

	"github.com/jhoicas/massa-api/internal/domain/entity"
)

// LoadRecordRepository puerto de persistencia de cargas (pesajes).
// Usado dentro de transacciones; GetForUpdate es el punto de serialización por carga.
type LoadRecordRepository interface {
	Create(ctx context.Context, load *entity.LoadRecord) error
	GetByID(ctx context.Context, id string) (*entity.LoadRecord, error)
	// GetForUpdate obtiene la carga y bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.LoadRecord, error)
	GetByDeliveryItem(ctx context.Context, deliveryItemID string) (*entity.LoadRecord, error)
	// Update persiste retorno, finalización y contador de secuencia.
	Update(ctx context.Context, load *entity.LoadRecord) error
	ListByRequisition(ctx context.Context, requisitionID string) ([]*entity.LoadRecord, error)
}
