package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.LoadMassProcedure = (*MassProcedure)(nil)

// MassProcedure invoca la función compute_load_mass de la BD.
type MassProcedure struct {
	q Querier
}

// NewMassProcedure construye el adaptador del cálculo remoto.
func NewMassProcedure(q Querier) *MassProcedure {
	return &MassProcedure{q: q}
}

// ComputeLoadMass devuelve masa real y suma aplicada calculadas en la BD.
func (p *MassProcedure) ComputeLoadMass(ctx context.Context, loadRecordID string) (decimal.Decimal, decimal.Decimal, error) {
	var actual, applied decimal.Decimal
	err := p.q.QueryRow(ctx, `SELECT actual_mass, applied_mass FROM compute_load_mass($1)`, loadRecordID).
		Scan(&actual, &applied)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("carga %s: %w", loadRecordID, domain.ErrNotFound)
		}
		return decimal.Zero, decimal.Zero, classify("compute_load_mass", err)
	}
	return actual, applied, nil
}
