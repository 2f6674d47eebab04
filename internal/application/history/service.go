// Package history es la bitácora de transiciones de estado de las entregas.
// Solo inserción: una entrada duplicada es síntoma de un bug y debe quedar visible.
package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Record valida y agrega una entrada usando el repositorio recibido (normalmente atado a una tx).
func Record(ctx context.Context, repo repository.StatusHistoryRepository, e *entity.StatusHistoryEntry) error {
	if e.DeliveryItemID == "" {
		return domain.NewValidationError("MISSING_DELIVERY", "la entrada de historial requiere la entrega")
	}
	if !e.ToStatus.Valid() || (e.FromStatus != "" && !e.FromStatus.Valid()) {
		return domain.NewValidationError(domain.CodeInvalidTransition,
			fmt.Sprintf("estado inválido en historial: %q → %q", e.FromStatus, e.ToStatus))
	}
	if strings.TrimSpace(e.Actor) == "" {
		return domain.NewValidationError(domain.CodeMissingActor, "la transición requiere el actor que la realiza")
	}
	if e.Kind == "" {
		e.Kind = entity.TransitionAutomatic
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return repo.Append(ctx, e)
}

// Service consultas y escritura directa de la bitácora.
type Service struct {
	repo repository.StatusHistoryRepository
}

// NewService construye el servicio de historial.
func NewService(repo repository.StatusHistoryRepository) *Service {
	return &Service{repo: repo}
}

// AppendInput datos de una transición a registrar.
type AppendInput struct {
	DeliveryItemID string
	LoadRecordID   string
	FromStatus     entity.DeliveryStatus
	ToStatus       entity.DeliveryStatus
	PercentApplied decimal.Decimal
	RemainingMass  decimal.Decimal
	Actor          string
	Reason         string
	Kind           entity.TransitionKind
}

// Append agrega una entrada fuera de cualquier transacción de negocio.
func (s *Service) Append(ctx context.Context, in AppendInput) (*entity.StatusHistoryEntry, error) {
	e := &entity.StatusHistoryEntry{
		DeliveryItemID: in.DeliveryItemID,
		FromStatus:     in.FromStatus,
		ToStatus:       in.ToStatus,
		PercentApplied: in.PercentApplied,
		RemainingMass:  in.RemainingMass,
		Actor:          in.Actor,
		Reason:         in.Reason,
		Kind:           in.Kind,
	}
	if in.LoadRecordID != "" {
		id := in.LoadRecordID
		e.LoadRecordID = &id
	}
	if err := Record(ctx, s.repo, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListByDelivery devuelve el historial de la entrega, de más reciente a más antiguo.
func (s *Service) ListByDelivery(ctx context.Context, deliveryItemID string, limit, offset int) ([]*entity.StatusHistoryEntry, error) {
	if deliveryItemID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.ListByDelivery(ctx, deliveryItemID, limit, offset)
}

// Statistics deriva las estadísticas de la entrega a partir del historial completo.
func (s *Service) Statistics(ctx context.Context, deliveryItemID string) (*Statistics, error) {
	if deliveryItemID == "" {
		return nil, domain.ErrInvalidInput
	}
	entries, err := s.repo.ListByDelivery(ctx, deliveryItemID, 0, 0)
	if err != nil {
		return nil, err
	}
	stats := ComputeStatistics(entries)
	return &stats, nil
}

// Statistics resumen derivado de la secuencia almacenada.
type Statistics struct {
	TotalTransitions int
	CurrentStatus    entity.DeliveryStatus // "" si no hay historial
	LastUpdate       *time.Time
	LastActor        string
	TransitionChain  []string // orden cronológico, p. ej. "SCHEDULED→SENT"
	ManualOverrides  int
	SweepCorrections int
}

// ComputeStatistics es puro: no depende del orden en que lleguen las entradas.
func ComputeStatistics(entries []*entity.StatusHistoryEntry) Statistics {
	sorted := make([]*entity.StatusHistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			sorted = append(sorted, e)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	stats := Statistics{
		TotalTransitions: len(sorted),
		TransitionChain:  make([]string, 0, len(sorted)),
	}
	for _, e := range sorted {
		stats.TransitionChain = append(stats.TransitionChain, string(e.FromStatus)+"→"+string(e.ToStatus))
		switch e.Kind {
		case entity.TransitionManualOverride:
			stats.ManualOverrides++
		case entity.TransitionIntegritySweep:
			stats.SweepCorrections++
		}
	}
	if n := len(sorted); n > 0 {
		last := sorted[n-1]
		at := last.CreatedAt
		stats.CurrentStatus = last.ToStatus
		stats.LastUpdate = &at
		stats.LastActor = last.Actor
	}
	return stats
}
