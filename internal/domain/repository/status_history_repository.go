package repository

import (
	"context"

	"github.com/jhoicas/massa-api/internal/domain/entity"
)

// StatusHistoryRepository bitácora de transiciones. No hay Update ni Delete.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *entity.StatusHistoryEntry) error
	// ListByDelivery devuelve las entradas de más reciente a más antigua. limit <= 0 = todas.
	ListByDelivery(ctx context.Context, deliveryItemID string, limit, offset int) ([]*entity.StatusHistoryEntry, error)
}
