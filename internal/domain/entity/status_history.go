package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransitionKind origen de una transición de estado.
type TransitionKind string

// Tipos de transición registrados en el historial.
const (
	TransitionAutomatic      TransitionKind = "AUTOMATIC"       // despacho o aplicación
	TransitionAdministrative TransitionKind = "ADMINISTRATIVE"  // cancelación
	TransitionManualOverride TransitionKind = "MANUAL_OVERRIDE" // finalización manual
	TransitionIntegritySweep TransitionKind = "INTEGRITY_SWEEP" // corrección del auditor
)

// StatusHistoryEntry registro de auditoría de una transición (solo inserción).
type StatusHistoryEntry struct {
	ID             string
	Seq            int64 // orden de inserción, desempate para CreatedAt iguales
	DeliveryItemID string
	LoadRecordID   *string
	FromStatus     DeliveryStatus
	ToStatus       DeliveryStatus
	PercentApplied decimal.Decimal
	RemainingMass  decimal.Decimal
	Actor          string
	Reason         string
	Kind           TransitionKind
	CreatedAt      time.Time
}
