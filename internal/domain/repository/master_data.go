package repository

import (
	"context"

	"github.com/shopspring/decimal"
)

// MasterDataKind tipo de dato maestro con nombre para mostrar.
type MasterDataKind string

// Tipos de datos maestros consultados por el presentador.
const (
	MasterVehicle MasterDataKind = "vehicle"
	MasterTeam    MasterDataKind = "team"
	MasterPlant   MasterDataKind = "plant"
)

// MasterDataLookup colaborador externo de solo lectura: nombres de vehículos, equipos y plantas.
// Devuelve "" si el ID no existe.
type MasterDataLookup interface {
	DisplayName(ctx context.Context, kind MasterDataKind, id string) (string, error)
}

// LoadMassProcedure cálculo autoritativo de masa de una carga ejecutado en el almacenamiento
// (procedimiento almacenado). Devuelve masa real y suma aplicada.
type LoadMassProcedure interface {
	ComputeLoadMass(ctx context.Context, loadRecordID string) (actual, applied decimal.Decimal, err error)
}
