package recording

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Origen de una lectura de masa.
const (
	SourceRemote        = "REMOTE"         // procedimiento almacenado (autoritativo)
	SourceLocalEstimate = "LOCAL_ESTIMATE" // suma local, solo para mostrar
)

// MassReading lectura de masa de una carga, siempre etiquetada con su origen.
type MassReading struct {
	LoadRecordID   string
	ActualMass     decimal.Decimal
	Applied        decimal.Decimal
	Remaining      decimal.Decimal
	PercentApplied decimal.Decimal
	Source         string
	Estimated      bool
}

// MassCalculator calcula la masa de una carga para consulta. Nunca se usa para aceptar o rechazar escrituras.
type MassCalculator interface {
	Compute(ctx context.Context, loadRecordID string) (*MassReading, error)
}

// RemoteCompute delega la suma al procedimiento del almacenamiento.
type RemoteCompute struct {
	proc   repository.LoadMassProcedure
	ledger ledger.Ledger
}

// NewRemoteCompute construye el cálculo autoritativo.
func NewRemoteCompute(proc repository.LoadMassProcedure, lg ledger.Ledger) *RemoteCompute {
	return &RemoteCompute{proc: proc, ledger: lg}
}

// Compute ejecuta el procedimiento y deriva el resto con el mismo libro que el camino local.
func (c *RemoteCompute) Compute(ctx context.Context, loadRecordID string) (*MassReading, error) {
	actual, applied, err := c.proc.ComputeLoadMass(ctx, loadRecordID)
	if err != nil {
		return nil, err
	}
	r := c.ledger.FromTotals(actual, applied)
	return &MassReading{
		LoadRecordID:   loadRecordID,
		ActualMass:     r.ActualMass,
		Applied:        r.Applied,
		Remaining:      r.Remaining,
		PercentApplied: r.PercentApplied,
		Source:         SourceRemote,
	}, nil
}

// LocalEstimate relee la carga y todas sus aplicaciones y suma del lado del servicio.
type LocalEstimate struct {
	loads  repository.LoadRecordRepository
	apps   repository.ApplicationDetailRepository
	ledger ledger.Ledger
}

// NewLocalEstimate construye el cálculo de respaldo.
func NewLocalEstimate(loads repository.LoadRecordRepository, apps repository.ApplicationDetailRepository, lg ledger.Ledger) *LocalEstimate {
	return &LocalEstimate{loads: loads, apps: apps, ledger: lg}
}

// Compute devuelve una estimación marcada como tal.
func (c *LocalEstimate) Compute(ctx context.Context, loadRecordID string) (*MassReading, error) {
	load, err := c.loads.GetByID(ctx, loadRecordID)
	if err != nil {
		return nil, err
	}
	if load == nil {
		return nil, fmt.Errorf("carga %s: %w", loadRecordID, domain.ErrNotFound)
	}
	apps, err := c.apps.ListByLoad(ctx, loadRecordID)
	if err != nil {
		return nil, err
	}
	r := c.ledger.ComputeRemaining(load, apps)
	return &MassReading{
		LoadRecordID:   loadRecordID,
		ActualMass:     r.ActualMass,
		Applied:        r.Applied,
		Remaining:      r.Remaining,
		PercentApplied: r.PercentApplied,
		Source:         SourceLocalEstimate,
		Estimated:      true,
	}, nil
}

// ResilientCalculator usa el cálculo remoto y, solo ante fallo de infraestructura, la estimación local.
type ResilientCalculator struct {
	primary  MassCalculator
	fallback MassCalculator
	log      zerolog.Logger
}

// NewResilientCalculator construye el calculador con respaldo.
func NewResilientCalculator(primary, fallback MassCalculator, log zerolog.Logger) *ResilientCalculator {
	return &ResilientCalculator{primary: primary, fallback: fallback, log: log}
}

// Compute nunca sustituye en silencio: la lectura de respaldo sale con Estimated=true.
func (c *ResilientCalculator) Compute(ctx context.Context, loadRecordID string) (*MassReading, error) {
	reading, err := c.primary.Compute(ctx, loadRecordID)
	if err == nil {
		return reading, nil
	}
	if !errors.Is(err, domain.ErrUnavailable) {
		return nil, err
	}
	c.log.Warn().Err(err).Str("load_record_id", loadRecordID).
		Msg("cálculo remoto de masa no disponible, usando estimación local")
	estimate, ferr := c.fallback.Compute(ctx, loadRecordID)
	if ferr != nil {
		return nil, ferr
	}
	estimate.Estimated = true
	return estimate, nil
}
