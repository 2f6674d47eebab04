package repository

import (
	"context"
	"time"

	"github.com/jhoicas/massa-api/internal/domain/entity"
)

// DeliveryItemRepository puerto de persistencia de entregas programadas.
// Las entregas nunca se borran; GetByID/GetForUpdate devuelven (nil, nil) si no existe.
type DeliveryItemRepository interface {
	Create(ctx context.Context, item *entity.DeliveryItem) error
	GetByID(ctx context.Context, id string) (*entity.DeliveryItem, error)
	GetForUpdate(ctx context.Context, id string) (*entity.DeliveryItem, error)
	UpdateStatus(ctx context.Context, id string, status entity.DeliveryStatus, cancellationReason *string, at time.Time) error
	ListByRequisition(ctx context.Context, requisitionID string) ([]*entity.DeliveryItem, error)
	// ListAuditableIDs devuelve los IDs de entregas no canceladas con masa programada > 0.
	ListAuditableIDs(ctx context.Context) ([]string, error)
}
