package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Measurements medidas descriptivas de la aplicación. Se guardan pero no entran en la aritmética de masa.
type Measurements struct {
	AreaM2      *decimal.Decimal `json:"area_m2,omitempty"`
	ThicknessCm *decimal.Decimal `json:"thickness_cm,omitempty"`
	WidthM      *decimal.Decimal `json:"width_m,omitempty"`
	LengthM     *decimal.Decimal `json:"length_m,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}

// ApplicationDetail representa una aplicación de masa en un sitio (calle/logradouro).
// Inmutable: las correcciones se hacen a nivel de entrega, nunca editando el detalle.
type ApplicationDetail struct {
	ID             string
	LoadRecordID   string
	Sequence       int // 1..n por carga, asignada dentro de la transacción
	SiteName       string
	AppliedMass    decimal.Decimal // > 0
	Measurements   Measurements
	IdempotencyKey string
	CreatedBy      string
	CreatedAt      time.Time
}
