package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Requests ─────────────────────────────────────────────────────────────────
// Las reglas de masa (> 0, saldo disponible) las valida el dominio para devolver su código.

// ScheduleDeliveryRequest programa una entrega contra una requisición.
type ScheduleDeliveryRequest struct {
	ProgrammedMass decimal.Decimal `json:"programmed_mass"`
	ScheduledDate  *time.Time      `json:"scheduled_date"`
	VehicleID      string          `json:"vehicle_id" validate:"max=64"`
	TeamID         string          `json:"team_id" validate:"max=64"`
	PlantID        string          `json:"plant_id" validate:"max=64"`
}

// DispatchRequest pesaje de salida de la carga.
type DispatchRequest struct {
	DepartureMass decimal.Decimal `json:"departure_mass"`
}

// CancelDeliveryRequest cancelación administrativa; el motivo es obligatorio.
type CancelDeliveryRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ReturnWeightRequest pesaje de retorno.
type ReturnWeightRequest struct {
	ReturnMass decimal.Decimal `json:"return_mass"`
}

// MeasurementsDTO medidas descriptivas de la aplicación.
type MeasurementsDTO struct {
	AreaM2      *decimal.Decimal `json:"area_m2,omitempty" validate:"omitempty,gte=0"`
	ThicknessCm *decimal.Decimal `json:"thickness_cm,omitempty" validate:"omitempty,gte=0"`
	WidthM      *decimal.Decimal `json:"width_m,omitempty" validate:"omitempty,gte=0"`
	LengthM     *decimal.Decimal `json:"length_m,omitempty" validate:"omitempty,gte=0"`
	Notes       string           `json:"notes,omitempty" validate:"max=1000"`
}

// RecordApplicationRequest aplicación de masa en un sitio. La llave de idempotencia viaja en el header
// Idempotency-Key; idempotency_key en el cuerpo se acepta si falta el header.
type RecordApplicationRequest struct {
	SiteName       string          `json:"site_name" validate:"max=200"`
	AppliedMass    decimal.Decimal `json:"applied_mass"`
	Measurements   MeasurementsDTO `json:"measurements"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=128"`
}

// FinalizeLoadRequest finalización manual.
type FinalizeLoadRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ── Responses ────────────────────────────────────────────────────────────────

// DeliveryItemResponse entrega programada.
type DeliveryItemResponse struct {
	ID                 string          `json:"id"`
	RequisitionID      string          `json:"requisition_id"`
	ProgrammedMass     decimal.Decimal `json:"programmed_mass"`
	ScheduledDate      time.Time       `json:"scheduled_date"`
	VehicleID          string          `json:"vehicle_id,omitempty"`
	TeamID             string          `json:"team_id,omitempty"`
	PlantID            string          `json:"plant_id,omitempty"`
	Status             string          `json:"status"`
	CancellationReason *string         `json:"cancellation_reason,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LoadRecordResponse carga despachada.
type LoadRecordResponse struct {
	ID             string           `json:"id"`
	DeliveryItemID string           `json:"delivery_item_id"`
	DepartureMass  decimal.Decimal  `json:"departure_mass"`
	ReturnMass     *decimal.Decimal `json:"return_mass,omitempty"`
	ActualMass     decimal.Decimal  `json:"actual_mass"`
	Finalized      bool             `json:"finalized"`
	DispatchedAt   time.Time        `json:"dispatched_at"`
}

// WeighingResponse estado de la carga tras el pesaje de retorno.
type WeighingResponse struct {
	LoadRecordID  string          `json:"load_record_id"`
	ActualMass    decimal.Decimal `json:"actual_mass"`
	RemainingMass decimal.Decimal `json:"remaining_mass"`
	Status        string          `json:"status"`
	Finalized     bool            `json:"finalized"`
}

// ApplicationResultResponse resultado de registrar una aplicación.
type ApplicationResultResponse struct {
	DetailID       string          `json:"detail_id"`
	Sequence       int             `json:"sequence"`
	RemainingMass  decimal.Decimal `json:"remaining_mass"`
	PercentApplied decimal.Decimal `json:"percent_applied"`
	Status         string          `json:"status"`
	Finalized      bool            `json:"finalized"`
	Replayed       bool            `json:"replayed"`
}

// FinalizeResultResponse totales al finalizar manualmente.
type FinalizeResultResponse struct {
	LoadRecordID    string          `json:"load_record_id"`
	TotalApplied    decimal.Decimal `json:"total_applied"`
	TotalMass       decimal.Decimal `json:"total_mass"`
	NumApplications int             `json:"num_applications"`
	Residual        decimal.Decimal `json:"residual"`
	Status          string          `json:"status"`
}

// MassReadingResponse lectura de masa con su origen.
type MassReadingResponse struct {
	LoadRecordID   string          `json:"load_record_id"`
	ActualMass     decimal.Decimal `json:"actual_mass"`
	Applied        decimal.Decimal `json:"applied"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentApplied decimal.Decimal `json:"percent_applied"`
	Source         string          `json:"source"`
	Estimated      bool            `json:"estimated"`
}

// StatusHistoryResponse entrada del historial.
type StatusHistoryResponse struct {
	ID             string          `json:"id"`
	DeliveryItemID string          `json:"delivery_item_id"`
	LoadRecordID   *string         `json:"load_record_id,omitempty"`
	FromStatus     string          `json:"from_status"`
	ToStatus       string          `json:"to_status"`
	PercentApplied decimal.Decimal `json:"percent_applied"`
	RemainingMass  decimal.Decimal `json:"remaining_mass"`
	Actor          string          `json:"actor"`
	Reason         string          `json:"reason"`
	Kind           string          `json:"kind"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HistoryPageResponse página del historial.
type HistoryPageResponse struct {
	Items []StatusHistoryResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// HistoryStatsResponse estadísticas del historial.
type HistoryStatsResponse struct {
	DeliveryItemID   string     `json:"delivery_item_id"`
	TotalTransitions int        `json:"total_transitions"`
	CurrentStatus    string     `json:"current_status,omitempty"`
	LastUpdate       *time.Time `json:"last_update,omitempty"`
	LastActor        string     `json:"last_actor,omitempty"`
	TransitionChain  []string   `json:"transition_chain"`
	ManualOverrides  int        `json:"manual_overrides"`
	SweepCorrections int        `json:"sweep_corrections"`
}

// DeliveryRowResponse fila del avance por entrega.
type DeliveryRowResponse struct {
	DeliveryItemID string    `json:"delivery_item_id"`
	LoadRecordID   string    `json:"load_record_id,omitempty"`
	Status         string    `json:"status"`
	StatusLabel    string    `json:"status_label"`
	ScheduledDate  time.Time `json:"scheduled_date"`
	Programmed     string    `json:"programmed"`
	Actual         string    `json:"actual,omitempty"`
	Applied        string    `json:"applied,omitempty"`
	Remaining      string    `json:"remaining,omitempty"`
	PercentApplied string    `json:"percent_applied,omitempty"`
	Finalized      bool      `json:"finalized"`
	Vehicle        string    `json:"vehicle,omitempty"`
	Team           string    `json:"team,omitempty"`
	Plant          string    `json:"plant,omitempty"`
}

// ProgressResponse avance de una requisición listo para mostrar.
type ProgressResponse struct {
	RequisitionID       string                `json:"requisition_id"`
	Code                string                `json:"code"`
	TotalFormatted      string                `json:"total_formatted"`
	AppliedFormatted    string                `json:"applied_formatted"`
	ProgrammedFormatted string                `json:"programmed_formatted"`
	AvailableFormatted  string                `json:"available_formatted"`
	PercentTotal        string                `json:"percent_total"`
	PercentValue        decimal.Decimal       `json:"percent_value"`
	StatusMessage       string                `json:"status_message"`
	Deliveries          []DeliveryRowResponse `json:"deliveries"`
}

// IntegrityViolationResponse carga con más masa aplicada que real.
type IntegrityViolationResponse struct {
	DeliveryItemID string          `json:"delivery_item_id"`
	LoadRecordID   string          `json:"load_record_id"`
	ActualMass     decimal.Decimal `json:"actual_mass"`
	AppliedMass    decimal.Decimal `json:"applied_mass"`
	Detail         string          `json:"detail"`
}

// SweepFailureResponse entrega que no se pudo revisar.
type SweepFailureResponse struct {
	DeliveryItemID string `json:"delivery_item_id"`
	Error          string `json:"error"`
}

// SweepReportResponse resultado del barrido de integridad.
type SweepReportResponse struct {
	TotalChecked         int                          `json:"total_checked"`
	CorrectedToScheduled int                          `json:"corrected_to_scheduled"`
	CorrectedToSent      int                          `json:"corrected_to_sent"`
	CorrectedToDelivered int                          `json:"corrected_to_delivered"`
	InconsistenciesFound int                          `json:"inconsistencies_found"`
	Violations           []IntegrityViolationResponse `json:"violations"`
	Failed               []SweepFailureResponse       `json:"failed"`
	StartedAt            time.Time                    `json:"started_at"`
	FinishedAt           time.Time                    `json:"finished_at"`
}
