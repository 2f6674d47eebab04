// Package progress proyecta el estado del libro de masa en datos listos para mostrar.
// Solo lectura: se puede consultar con la frecuencia que quiera la UI.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/massa-api/internal/application/recording"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLocale configuración regional de los números formateados.
const DefaultLocale = "es-CO"

// DisplayData avance de una requisición.
type DisplayData struct {
	RequisitionID       string
	Code                string
	TotalFormatted      string
	AppliedFormatted    string
	ProgrammedFormatted string
	AvailableFormatted  string
	PercentTotal        string
	PercentValue        decimal.Decimal // aplicado/total en porcentaje (0–100), sin formato
	StatusMessage       string
	Deliveries          []DeliveryRow
}

// DeliveryRow fila de una entrega programada.
type DeliveryRow struct {
	DeliveryItemID      string
	LoadRecordID        string
	Status              entity.DeliveryStatus
	StatusLabel         string
	ScheduledDate       time.Time
	ProgrammedFormatted string
	ActualFormatted     string
	AppliedFormatted    string
	RemainingFormatted  string
	PercentApplied      string
	Finalized           bool
	Vehicle             string
	Team                string
	Plant               string
}

// Presenter arma DisplayData a partir del libro.
type Presenter struct {
	txRunner   repository.TxRunner
	master     repository.MasterDataLookup
	calculator recording.MassCalculator
	ledger     ledger.Ledger
	printer    *message.Printer
	log        zerolog.Logger
}

// NewPresenter construye el presentador. locale vacío o inválido usa DefaultLocale.
func NewPresenter(
	txRunner repository.TxRunner,
	master repository.MasterDataLookup,
	calculator recording.MassCalculator,
	lg ledger.Ledger,
	locale string,
	log zerolog.Logger,
) *Presenter {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.MustParse(DefaultLocale)
	}
	return &Presenter{
		txRunner:   txRunner,
		master:     master,
		calculator: calculator,
		ledger:     lg,
		printer:    message.NewPrinter(tag),
		log:        log,
	}
}

type requisitionView struct {
	req        *entity.Requisition
	deliveries []*entity.DeliveryItem
	loads      map[string]*entity.LoadRecord // por DeliveryItemID
	mass       map[string]ledger.Remaining   // por LoadRecordID
	applied    decimal.Decimal
}

// GetDisplayData lee la requisición con sus entregas y cargas y formatea los totales.
func (p *Presenter) GetDisplayData(ctx context.Context, requisitionID string) (*DisplayData, error) {
	if requisitionID == "" {
		return nil, domain.ErrInvalidInput
	}
	view, err := p.read(ctx, requisitionID)
	if err != nil {
		return nil, err
	}

	balance := p.ledger.RequisitionBalance(view.req.TotalMass, view.deliveries, view.applied)
	percent := balance.PercentComplete.Mul(decimal.NewFromInt(100))
	data := &DisplayData{
		RequisitionID:       view.req.ID,
		Code:                view.req.Code,
		TotalFormatted:      p.tonnes(balance.Total),
		AppliedFormatted:    p.tonnes(balance.Applied),
		ProgrammedFormatted: p.tonnes(balance.Programmed),
		AvailableFormatted:  p.tonnes(balance.Available),
		PercentTotal:        p.percent(percent),
		PercentValue:        percent.Round(2),
		StatusMessage:       p.statusMessage(balance, view.deliveries),
		Deliveries:          make([]DeliveryRow, 0, len(view.deliveries)),
	}

	for _, d := range view.deliveries {
		row := DeliveryRow{
			DeliveryItemID:      d.ID,
			Status:              d.Status,
			StatusLabel:         StatusLabel(d.Status),
			ScheduledDate:       d.ScheduledDate,
			ProgrammedFormatted: p.tonnes(d.ProgrammedMass),
			Vehicle:             p.displayName(ctx, repository.MasterVehicle, d.VehicleID),
			Team:                p.displayName(ctx, repository.MasterTeam, d.TeamID),
			Plant:               p.displayName(ctx, repository.MasterPlant, d.PlantID),
		}
		if load, ok := view.loads[d.ID]; ok {
			m := view.mass[load.ID]
			row.LoadRecordID = load.ID
			row.Finalized = load.Finalized
			row.ActualFormatted = p.tonnes(m.ActualMass)
			row.AppliedFormatted = p.tonnes(m.Applied)
			row.RemainingFormatted = p.tonnes(m.Remaining)
			row.PercentApplied = p.percent(m.PercentApplied.Mul(decimal.NewFromInt(100)))
		}
		data.Deliveries = append(data.Deliveries, row)
	}
	return data, nil
}

func (p *Presenter) read(ctx context.Context, requisitionID string) (*requisitionView, error) {
	view := &requisitionView{
		loads: make(map[string]*entity.LoadRecord),
		mass:  make(map[string]ledger.Remaining),
	}
	err := p.txRunner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		req, err := repos.Requisitions.GetByID(ctx, requisitionID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("requisición %s: %w", requisitionID, domain.ErrNotFound)
		}
		view.req = req

		if view.deliveries, err = repos.Deliveries.ListByRequisition(ctx, requisitionID); err != nil {
			return err
		}
		loads, err := repos.Loads.ListByRequisition(ctx, requisitionID)
		if err != nil {
			return err
		}
		for _, l := range loads {
			apps, err := repos.Applications.ListByLoad(ctx, l.ID)
			if err != nil {
				return err
			}
			view.loads[l.DeliveryItemID] = l
			view.mass[l.ID] = p.ledger.ComputeRemaining(l, apps)
		}
		view.applied, err = repos.Applications.SumAppliedByRequisition(ctx, requisitionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// GetLoadMass lectura de masa de una carga con su origen (remoto o estimación local).
func (p *Presenter) GetLoadMass(ctx context.Context, loadRecordID string) (*recording.MassReading, error) {
	if loadRecordID == "" {
		return nil, domain.ErrInvalidInput
	}
	return p.calculator.Compute(ctx, loadRecordID)
}

// FormatTonnes formatea una masa en toneladas con la configuración regional del presentador.
func (p *Presenter) FormatTonnes(d decimal.Decimal) string { return p.tonnes(d) }

func (p *Presenter) tonnes(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return p.printer.Sprintf("%.2f t", f)
}

func (p *Presenter) percent(d decimal.Decimal) string {
	f, _ := d.Round(1).Float64()
	return p.printer.Sprintf("%.1f %%", f)
}

func (p *Presenter) displayName(ctx context.Context, kind repository.MasterDataKind, id string) string {
	if id == "" || p.master == nil {
		return ""
	}
	name, err := p.master.DisplayName(ctx, kind, id)
	if err != nil {
		// El nombre es decorativo: se muestra el ID.
		p.log.Warn().Err(err).Str("kind", string(kind)).Str("id", id).Msg("no se pudo resolver el nombre")
		return id
	}
	if name == "" {
		return id
	}
	return name
}

func (p *Presenter) statusMessage(b ledger.Balance, deliveries []*entity.DeliveryItem) string {
	active := 0
	for _, d := range deliveries {
		if !d.IsCancelled() {
			active++
		}
	}
	switch {
	case b.Total.IsPositive() && b.Applied.GreaterThanOrEqual(b.Total.Sub(p.ledger.Epsilon())):
		return "Requisición completada"
	case active == 0:
		return "Sin entregas programadas"
	case b.Available.IsNegative():
		return "La masa programada supera el total de la requisición"
	case !b.Available.IsPositive():
		return "Toda la masa de la requisición está programada"
	default:
		return p.printer.Sprintf("En ejecución: %s aplicado, %s disponible para programar",
			p.tonnes(b.Applied), p.tonnes(b.Available))
	}
}

// StatusLabel texto para mostrar de un estado de entrega.
func StatusLabel(s entity.DeliveryStatus) string {
	switch s {
	case entity.DeliveryStatusScheduled:
		return "Programada"
	case entity.DeliveryStatusSent:
		return "Enviada"
	case entity.DeliveryStatusDelivered:
		return "Entregada"
	case entity.DeliveryStatusCancelled:
		return "Cancelada"
	default:
		return string(s)
	}
}
