// Package status implementa la máquina de estados de la entrega programada.
//
// Resolve es la única fórmula que deriva el estado correcto a partir de la masa.
// La usan tanto los casos de uso en línea (una entrega) como el auditor (barrido).
package status

import (
	"fmt"

	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Input datos mínimos para resolver el estado de una entrega.
type Input struct {
	Stored    entity.DeliveryStatus
	Remaining decimal.Decimal
	Cancelled bool
	HasLoad   bool
	Finalized bool // la carga fue finalizada (automática o manualmente)
}

// Resolve devuelve el estado correcto:
//   - cancelada → CANCELLED
//   - con carga finalizada o masa restante <= ε → DELIVERED
//   - con carga → SENT
//   - sin carga → SCHEDULED
func Resolve(in Input, epsilon decimal.Decimal) entity.DeliveryStatus {
	if in.Cancelled {
		return entity.DeliveryStatusCancelled
	}
	if !in.HasLoad {
		return entity.DeliveryStatusScheduled
	}
	if in.Finalized || in.Remaining.LessThanOrEqual(epsilon) {
		return entity.DeliveryStatusDelivered
	}
	return entity.DeliveryStatusSent
}

// Drift indica si el estado guardado difiere del estado resuelto.
func Drift(in Input, epsilon decimal.Decimal) (entity.DeliveryStatus, bool) {
	resolved := Resolve(in, epsilon)
	return resolved, resolved != in.Stored
}

// IsTerminal indica si ninguna transición puede salir de s.
func IsTerminal(s entity.DeliveryStatus) bool {
	return s == entity.DeliveryStatusDelivered || s == entity.DeliveryStatusCancelled
}

var allowed = map[entity.DeliveryStatus][]entity.DeliveryStatus{
	entity.DeliveryStatusScheduled: {entity.DeliveryStatusSent, entity.DeliveryStatusCancelled},
	entity.DeliveryStatusSent:      {entity.DeliveryStatusDelivered, entity.DeliveryStatusCancelled},
}

// CanTransition indica si from → to es una transición en línea permitida.
// from == to no es transición (se trata como no-op por quien llama).
func CanTransition(from, to entity.DeliveryStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition devuelve un ValidationError si from → to no está permitida.
func CheckTransition(from, to entity.DeliveryStatus) error {
	if from == to || CanTransition(from, to) {
		return nil
	}
	if IsTerminal(from) {
		return domain.NewValidationError(domain.CodeInvalidTransition,
			fmt.Sprintf("la entrega está en estado terminal %s", from))
	}
	return domain.NewValidationError(domain.CodeInvalidTransition,
		fmt.Sprintf("transición no permitida: %s → %s", from, to))
}
