package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoadRecord representa el pesaje de la carga de una entrega (salida y, opcionalmente, retorno).
type LoadRecord struct {
	ID             string
	DeliveryItemID string
	DepartureMass  decimal.Decimal
	ReturnMass     *decimal.Decimal // nil hasta que el vehículo regresa
	Finalized      bool
	FinalizedAt    *time.Time
	LastSequence   int // contador de secuencia de aplicaciones (sin huecos)
	DispatchedAt   time.Time
	UpdatedAt      time.Time
}

// ActualMass masa real = salida − retorno; solo salida si no hay retorno registrado.
func (l *LoadRecord) ActualMass() decimal.Decimal {
	if l.ReturnMass == nil {
		return l.DepartureMass
	}
	return l.DepartureMass.Sub(*l.ReturnMass)
}
