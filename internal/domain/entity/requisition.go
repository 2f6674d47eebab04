package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requisition representa la requisición que autoriza una masa total (t) para un centro de costo.
// Es dato maestro externo: este núcleo solo la lee.
type Requisition struct {
	ID           string
	Code         string
	CostCenterID string
	TotalMass    decimal.Decimal // toneladas, >= 0
	CreatedAt    time.Time
}
