package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Cada tipo concreto de abajo responde a errors.Is con su sentinela.
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrUnavailable        = errors.New("almacenamiento no disponible")
	ErrIntegrityViolation = errors.New("violación de integridad")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrRetriesExhausted   = errors.New("reintentos agotados")
)

// Códigos de validación (estables, usados por la capa HTTP y por los tests).
const (
	CodeInvalidMass        = "INVALID_MASS"
	CodeExceedsAvailable   = "EXCEEDS_AVAILABLE_MASS"
	CodeEmptySite          = "EMPTY_SITE_NAME"
	CodeMissingIdempotency = "MISSING_IDEMPOTENCY_KEY"
	CodeIdempotencyReuse   = "IDEMPOTENCY_KEY_REUSED"
	CodeMissingActor       = "MISSING_ACTOR"
	CodeMissingReason      = "MISSING_REASON"
	CodeAlreadyFinalized   = "ALREADY_FINALIZED"
	CodeNoApplications     = "NO_APPLICATIONS"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeDeliveryCancelled  = "DELIVERY_CANCELLED"
	CodeBudgetExceeded     = "BUDGET_EXCEEDED"
	CodeAlreadyDispatched  = "ALREADY_DISPATCHED"
	CodeInvalidWeighing    = "INVALID_WEIGHING"
)

// ValidationError error corregible por quien llama. Reason es legible y se muestra tal cual.
type ValidationError struct {
	Code    string
	Reason  string
	Overage decimal.Decimal // excedente exacto cuando Code == CodeExceedsAvailable
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError construye un ValidationError sin excedente.
func NewValidationError(code, reason string) *ValidationError {
	return &ValidationError{Code: code, Reason: reason}
}

// ConflictError carrera perdida contra otra escritura; se reintenta la operación completa.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrConflict)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrConflict, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NewConflict envuelve err como conflicto de concurrencia.
func NewConflict(op string, err error) *ConflictError {
	return &ConflictError{Op: op, Err: err}
}

// InfrastructureError la base de datos (u otro colaborador) no respondió.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrUnavailable)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrUnavailable, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func (e *InfrastructureError) Is(target error) bool { return target == ErrUnavailable }

// NewInfrastructure envuelve err como fallo de infraestructura.
func NewInfrastructure(op string, err error) *InfrastructureError {
	return &InfrastructureError{Op: op, Err: err}
}

// IntegrityViolation estado almacenado que no se puede reconciliar automáticamente.
// Se reporta para inspección manual; nunca se corrige sola.
type IntegrityViolation struct {
	DeliveryItemID string
	LoadRecordID   string
	ActualMass     decimal.Decimal
	AppliedMass    decimal.Decimal
	Detail         string
}

func (e *IntegrityViolation) Error() string {
	return fmt.Sprintf("%s: entrega %s carga %s: %s (aplicado %s t, real %s t)",
		ErrIntegrityViolation, e.DeliveryItemID, e.LoadRecordID, e.Detail,
		e.AppliedMass.String(), e.ActualMass.String())
}

func (e *IntegrityViolation) Is(target error) bool { return target == ErrIntegrityViolation }

// IsRetryable indica si el error es un conflicto transitorio.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
