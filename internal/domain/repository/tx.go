package repository

import "context"

// Repos agrupa los repositorios atados a una misma transacción.
type Repos struct {
	Requisitions RequisitionRepository
	Deliveries   DeliveryItemRepository
	Loads        LoadRecordRepository
	Applications ApplicationDetailRepository
	History      StatusHistoryRepository
}

// TxRunner ejecuta fn dentro de una transacción con repositorios atados a ella.
// Commit si fn devuelve nil, Rollback en cualquier otro caso (incluida la cancelación de ctx).
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
