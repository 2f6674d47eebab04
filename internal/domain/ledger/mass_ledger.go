// Package ledger contiene la aritmética pura del libro de masa (sin I/O).
// Se usa igual en el camino autoritativo (dentro de la transacción) y en la
// estimación local, por eso no depende de ningún repositorio.
package ledger

import (
	"fmt"

	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// DefaultTolerance ε por defecto (0,01 t). Es el único umbral con el que la masa
// restante se considera cero; se configura con MASS_TOLERANCE.
var DefaultTolerance = decimal.New(1, -2)

// Ledger aplica las reglas de conservación de masa con una tolerancia fija.
type Ledger struct {
	epsilon decimal.Decimal
}

// New construye el libro con la tolerancia indicada. Una tolerancia negativa se trata como cero.
func New(epsilon decimal.Decimal) Ledger {
	if epsilon.IsNegative() {
		epsilon = decimal.Zero
	}
	return Ledger{epsilon: epsilon}
}

// Default construye el libro con DefaultTolerance.
func Default() Ledger { return New(DefaultTolerance) }

// Epsilon devuelve la tolerancia vigente.
func (l Ledger) Epsilon() decimal.Decimal { return l.epsilon }

// IsExhausted indica si la masa restante se considera cero (remaining <= ε).
func (l Ledger) IsExhausted(remaining decimal.Decimal) bool {
	return remaining.LessThanOrEqual(l.epsilon)
}

// Remaining resultado de ComputeRemaining para una carga.
type Remaining struct {
	ActualMass     decimal.Decimal
	Applied        decimal.Decimal
	Remaining      decimal.Decimal // max(0, real − aplicado)
	PercentApplied decimal.Decimal // aplicado / real, 0 si real <= 0
}

// ComputeRemaining suma las aplicaciones de la carga y deriva masa restante y porcentaje.
// load nil equivale a masa real desconocida (0).
func (l Ledger) ComputeRemaining(load *entity.LoadRecord, applications []*entity.ApplicationDetail) Remaining {
	actual := decimal.Zero
	if load != nil {
		actual = load.ActualMass()
	}
	return l.FromTotals(actual, SumApplied(applications))
}

// FromTotals deriva Remaining a partir de totales ya sumados (p. ej. devueltos por el procedimiento remoto).
func (l Ledger) FromTotals(actual, applied decimal.Decimal) Remaining {
	remaining := actual.Sub(applied)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return Remaining{
		ActualMass:     actual,
		Applied:        applied,
		Remaining:      remaining,
		PercentApplied: Percent(applied, actual),
	}
}

// Overdrawn indica si lo aplicado supera la masa real más ε (violación de integridad).
func (l Ledger) Overdrawn(r Remaining) bool {
	return r.Applied.GreaterThan(r.ActualMass.Add(l.epsilon))
}

// SumApplied suma AppliedMass de las aplicaciones.
func SumApplied(applications []*entity.ApplicationDetail) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range applications {
		if a == nil {
			continue
		}
		sum = sum.Add(a.AppliedMass)
	}
	return sum
}

// Percent devuelve part/whole sin dividir nunca por cero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return part.Div(whole)
}

// ValidationResult resultado de validar una aplicación o una programación propuesta.
type ValidationResult struct {
	OK             bool
	Code           string
	Reason         string
	Overage        decimal.Decimal
	RemainingAfter decimal.Decimal // masa que quedaría si se acepta (vista previa)
}

// Err convierte el resultado en *domain.ValidationError (nil si OK).
func (r ValidationResult) Err() error {
	if r.OK {
		return nil
	}
	return &domain.ValidationError{Code: r.Code, Reason: r.Reason, Overage: r.Overage}
}

// ValidateProposedApplication valida una aplicación contra la masa restante actual.
func (l Ledger) ValidateProposedApplication(remaining, requested decimal.Decimal) ValidationResult {
	if !requested.IsPositive() {
		return ValidationResult{
			Code:   domain.CodeInvalidMass,
			Reason: "la masa aplicada debe ser mayor que cero",
		}
	}
	if requested.GreaterThan(remaining.Add(l.epsilon)) {
		overage := requested.Sub(remaining)
		return ValidationResult{
			Code: domain.CodeExceedsAvailable,
			Reason: fmt.Sprintf("la masa solicitada (%s t) excede la masa disponible (%s t) en %s t",
				requested.String(), remaining.String(), overage.String()),
			Overage: overage,
		}
	}
	after := remaining.Sub(requested)
	if after.IsNegative() {
		after = decimal.Zero
	}
	return ValidationResult{OK: true, RemainingAfter: after}
}

// ValidateScheduling valida que una nueva entrega no exceda el presupuesto de la requisición:
// Σ programado (sin canceladas) + solicitado <= total.
func (l Ledger) ValidateScheduling(total, programmed, requested decimal.Decimal) ValidationResult {
	if !requested.IsPositive() {
		return ValidationResult{
			Code:   domain.CodeInvalidMass,
			Reason: "la masa programada debe ser mayor que cero",
		}
	}
	available := total.Sub(programmed)
	if requested.GreaterThan(available) {
		overage := requested.Sub(available)
		return ValidationResult{
			Code: domain.CodeBudgetExceeded,
			Reason: fmt.Sprintf("la masa programada (%s t) excede el saldo de la requisición (%s t) en %s t",
				requested.String(), available.String(), overage.String()),
			Overage: overage,
		}
	}
	return ValidationResult{OK: true, RemainingAfter: available.Sub(requested)}
}

// Balance vista agregada de una requisición.
type Balance struct {
	Total           decimal.Decimal
	Applied         decimal.Decimal
	Programmed      decimal.Decimal
	Available       decimal.Decimal // total − programado
	PercentComplete decimal.Decimal // aplicado / total
}

// RequisitionBalance calcula masa aplicada, programada y disponible de una requisición.
// applied es la suma de las aplicaciones de todas las cargas de la requisición.
func (l Ledger) RequisitionBalance(total decimal.Decimal, deliveries []*entity.DeliveryItem, applied decimal.Decimal) Balance {
	return Balance{
		Total:           total,
		Applied:         applied,
		Programmed:      ProgrammedMass(deliveries),
		Available:       total.Sub(ProgrammedMass(deliveries)),
		PercentComplete: Percent(applied, total),
	}
}

// ProgrammedMass suma la masa programada de las entregas no canceladas.
func ProgrammedMass(deliveries []*entity.DeliveryItem) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range deliveries {
		if d == nil || d.IsCancelled() {
			continue
		}
		sum = sum.Add(d.ProgrammedMass)
	}
	return sum
}
