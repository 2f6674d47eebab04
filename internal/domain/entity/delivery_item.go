package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryStatus estado del ciclo de vida de una entrega programada.
type DeliveryStatus string

// Estados de la entrega programada.
const (
	DeliveryStatusScheduled DeliveryStatus = "SCHEDULED" // programada, sin carga
	DeliveryStatusSent      DeliveryStatus = "SENT"      // carga despachada
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED" // masa aplicada por completo (terminal)
	DeliveryStatusCancelled DeliveryStatus = "CANCELLED" // cancelada por un administrador (terminal)
)

// Valid indica si s es uno de los estados conocidos.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusScheduled, DeliveryStatusSent, DeliveryStatusDelivered, DeliveryStatusCancelled:
		return true
	}
	return false
}

// DeliveryItem representa una entrega programada derivada de una requisición.
// VehicleID, TeamID y PlantID son llaves opacas de datos maestros externos.
type DeliveryItem struct {
	ID                 string
	RequisitionID      string
	ProgrammedMass     decimal.Decimal
	ScheduledDate      time.Time
	VehicleID          string
	TeamID             string
	PlantID            string
	Status             DeliveryStatus
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsCancelled indica si la entrega fue cancelada.
func (d *DeliveryItem) IsCancelled() bool {
	return d.Status == DeliveryStatusCancelled
}

// IsActive indica si la entrega sigue en las vistas de programación (no terminal).
func (d *DeliveryItem) IsActive() bool {
	return d.Status == DeliveryStatusScheduled || d.Status == DeliveryStatusSent
}
