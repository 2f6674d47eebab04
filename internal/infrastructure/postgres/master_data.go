package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/massa-api/internal/domain/repository"
)

var _ repository.MasterDataLookup = (*MasterDataRepo)(nil)

// MasterDataRepo nombres para mostrar de vehículos, equipos y plantas.
type MasterDataRepo struct {
	q Querier
}

// NewMasterDataRepository construye el adaptador.
func NewMasterDataRepository(q Querier) *MasterDataRepo {
	return &MasterDataRepo{q: q}
}

var masterDataQueries = map[repository.MasterDataKind]string{
	repository.MasterVehicle: `SELECT plate FROM vehicles WHERE id = $1`,
	repository.MasterTeam:    `SELECT name FROM teams WHERE id = $1`,
	repository.MasterPlant:   `SELECT name FROM plants WHERE id = $1`,
}

// DisplayName devuelve "" si el ID no existe.
func (r *MasterDataRepo) DisplayName(ctx context.Context, kind repository.MasterDataKind, id string) (string, error) {
	query, ok := masterDataQueries[kind]
	if !ok {
		return "", fmt.Errorf("tipo de dato maestro desconocido: %s", kind)
	}
	var name string
	if err := r.q.QueryRow(ctx, query, id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", classify("master data "+string(kind), err)
	}
	return name, nil
}
