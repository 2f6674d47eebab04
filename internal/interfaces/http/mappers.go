package http

import (
	"github.com/jhoicas/massa-api/internal/application/audit"
	"github.com/jhoicas/massa-api/internal/application/dto"
	"github.com/jhoicas/massa-api/internal/application/history"
	"github.com/jhoicas/massa-api/internal/application/progress"
	"github.com/jhoicas/massa-api/internal/application/recording"
	"github.com/jhoicas/massa-api/internal/domain/entity"
)

func toDeliveryResponse(d *entity.DeliveryItem) dto.DeliveryItemResponse {
	return dto.DeliveryItemResponse{
		ID:                 d.ID,
		RequisitionID:      d.RequisitionID,
		ProgrammedMass:     d.ProgrammedMass,
		ScheduledDate:      d.ScheduledDate,
		VehicleID:          d.VehicleID,
		TeamID:             d.TeamID,
		PlantID:            d.PlantID,
		Status:             string(d.Status),
		CancellationReason: d.CancellationReason,
		UpdatedAt:          d.UpdatedAt,
	}
}

func toLoadResponse(l *entity.LoadRecord) dto.LoadRecordResponse {
	return dto.LoadRecordResponse{
		ID:             l.ID,
		DeliveryItemID: l.DeliveryItemID,
		DepartureMass:  l.DepartureMass,
		ReturnMass:     l.ReturnMass,
		ActualMass:     l.ActualMass(),
		Finalized:      l.Finalized,
		DispatchedAt:   l.DispatchedAt,
	}
}

func toHistoryResponse(e *entity.StatusHistoryEntry) dto.StatusHistoryResponse {
	return dto.StatusHistoryResponse{
		ID:             e.ID,
		DeliveryItemID: e.DeliveryItemID,
		LoadRecordID:   e.LoadRecordID,
		FromStatus:     string(e.FromStatus),
		ToStatus:       string(e.ToStatus),
		PercentApplied: e.PercentApplied,
		RemainingMass:  e.RemainingMass,
		Actor:          e.Actor,
		Reason:         e.Reason,
		Kind:           string(e.Kind),
		CreatedAt:      e.CreatedAt,
	}
}

func toStatsResponse(deliveryItemID string, s *history.Statistics) dto.HistoryStatsResponse {
	return dto.HistoryStatsResponse{
		DeliveryItemID:   deliveryItemID,
		TotalTransitions: s.TotalTransitions,
		CurrentStatus:    string(s.CurrentStatus),
		LastUpdate:       s.LastUpdate,
		LastActor:        s.LastActor,
		TransitionChain:  s.TransitionChain,
		ManualOverrides:  s.ManualOverrides,
		SweepCorrections: s.SweepCorrections,
	}
}

func toMassResponse(r *recording.MassReading) dto.MassReadingResponse {
	return dto.MassReadingResponse{
		LoadRecordID:   r.LoadRecordID,
		ActualMass:     r.ActualMass,
		Applied:        r.Applied,
		Remaining:      r.Remaining,
		PercentApplied: r.PercentApplied,
		Source:         r.Source,
		Estimated:      r.Estimated,
	}
}

func toProgressResponse(d *progress.DisplayData) dto.ProgressResponse {
	out := dto.ProgressResponse{
		RequisitionID:       d.RequisitionID,
		Code:                d.Code,
		TotalFormatted:      d.TotalFormatted,
		AppliedFormatted:    d.AppliedFormatted,
		ProgrammedFormatted: d.ProgrammedFormatted,
		AvailableFormatted:  d.AvailableFormatted,
		PercentTotal:        d.PercentTotal,
		PercentValue:        d.PercentValue,
		StatusMessage:       d.StatusMessage,
		Deliveries:          make([]dto.DeliveryRowResponse, 0, len(d.Deliveries)),
	}
	for _, r := range d.Deliveries {
		out.Deliveries = append(out.Deliveries, dto.DeliveryRowResponse{
			DeliveryItemID: r.DeliveryItemID,
			LoadRecordID:   r.LoadRecordID,
			Status:         string(r.Status),
			StatusLabel:    r.StatusLabel,
			ScheduledDate:  r.ScheduledDate,
			Programmed:     r.ProgrammedFormatted,
			Actual:         r.ActualFormatted,
			Applied:        r.AppliedFormatted,
			Remaining:      r.RemainingFormatted,
			PercentApplied: r.PercentApplied,
			Finalized:      r.Finalized,
			Vehicle:        r.Vehicle,
			Team:           r.Team,
			Plant:          r.Plant,
		})
	}
	return out
}

func toSweepResponse(r *audit.Report) dto.SweepReportResponse {
	out := dto.SweepReportResponse{
		TotalChecked:         r.TotalChecked,
		CorrectedToScheduled: r.CorrectedToScheduled,
		CorrectedToSent:      r.CorrectedToSent,
		CorrectedToDelivered: r.CorrectedToDelivered,
		InconsistenciesFound: r.InconsistenciesFound,
		Violations:           make([]dto.IntegrityViolationResponse, 0, len(r.Violations)),
		Failed:               make([]dto.SweepFailureResponse, 0, len(r.Failed)),
		StartedAt:            r.StartedAt,
		FinishedAt:           r.FinishedAt,
	}
	for _, v := range r.Violations {
		out.Violations = append(out.Violations, dto.IntegrityViolationResponse{
			DeliveryItemID: v.DeliveryItemID,
			LoadRecordID:   v.LoadRecordID,
			ActualMass:     v.ActualMass,
			AppliedMass:    v.AppliedMass,
			Detail:         v.Detail,
		})
	}
	for _, f := range r.Failed {
		out.Failed = append(out.Failed, dto.SweepFailureResponse{DeliveryItemID: f.DeliveryItemID, Error: f.Error})
	}
	return out
}
