package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/repository"
	"github.com/jhoicas/massa-api/internal/infrastructure/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	s.AddRequisition(entity.Requisition{ID: "req-1", TotalMass: d("100")})
	err := s.Run(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		if err := repos.Deliveries.Create(ctx, &entity.DeliveryItem{
			ID: "d-1", RequisitionID: "req-1", ProgrammedMass: d("50"), Status: entity.DeliveryStatusSent,
		}); err != nil {
			return err
		}
		return repos.Loads.Create(ctx, &entity.LoadRecord{ID: "l-1", DeliveryItemID: "d-1", DepartureMass: d("50")})
	})
	require.NoError(t, err)
	return s
}

// ──────────────────────────────────────────────────────────────────────────────
// Transacciones
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_ErrorDescartaLosCambios(t *testing.T) {
	s := seed(t)
	boom := errors.New("boom")

	err := s.Run(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		require.NoError(t, repos.Applications.Create(ctx, &entity.ApplicationDetail{
			ID: "a-1", LoadRecordID: "l-1", Sequence: 1, AppliedMass: d("10"), IdempotencyKey: "k",
		}))
		require.NoError(t, repos.Deliveries.UpdateStatus(ctx, "d-1", entity.DeliveryStatusDelivered, nil, time.Now()))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	apps, err := s.Applications().ListByLoad(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Empty(t, apps)

	err = s.Run(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		item, err := repos.Deliveries.GetByID(ctx, "d-1")
		require.NoError(t, err)
		assert.Equal(t, entity.DeliveryStatusSent, item.Status)
		return nil
	})
	require.NoError(t, err)
}

func TestRun_ContextoCanceladoEsInfraestructura(t *testing.T) {
	s := seed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Run(ctx, func(context.Context, repository.Repos) error { return nil })
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
}

// ──────────────────────────────────────────────────────────────────────────────
// Restricciones de unicidad
// ──────────────────────────────────────────────────────────────────────────────

func TestUnicidad_SonConflictos(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	err := s.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		return repos.Loads.Create(ctx, &entity.LoadRecord{ID: "l-2", DeliveryItemID: "d-1", DepartureMass: d("1")})
	})
	assert.True(t, errors.Is(err, domain.ErrConflict), "una sola carga por entrega")

	create := func(id string, seq int, key string) error {
		return s.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
			return repos.Applications.Create(ctx, &entity.ApplicationDetail{
				ID: id, LoadRecordID: "l-1", Sequence: seq, AppliedMass: d("1"), IdempotencyKey: key,
			})
		})
	}
	require.NoError(t, create("a-1", 1, "k-1"))
	assert.True(t, errors.Is(create("a-2", 1, "k-2"), domain.ErrConflict), "secuencia duplicada")
	assert.True(t, errors.Is(create("a-3", 2, "k-1"), domain.ErrConflict), "llave duplicada")
	require.NoError(t, create("a-4", 2, "k-2"))

	prev, err := s.Applications().GetByIdempotencyKey(ctx, "l-1", "k-2")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "a-4", prev.ID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestHistory_OrdenYPaginacion(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{t0, t0.Add(time.Minute), t0.Add(time.Minute), t0.Add(2 * time.Minute)} {
		require.NoError(t, s.History().Append(ctx, &entity.StatusHistoryEntry{
			ID: string(rune('a' + i)), DeliveryItemID: "d-1", ToStatus: entity.DeliveryStatusSent, Actor: "x", CreatedAt: at,
		}))
	}
	require.NoError(t, s.History().Append(ctx, &entity.StatusHistoryEntry{ID: "otra", DeliveryItemID: "d-2", CreatedAt: t0}))

	all, err := s.History().ListByDelivery(ctx, "d-1", 0, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, e := range all {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids, "más reciente primero; empate por orden de inserción")

	page, err := s.History().ListByDelivery(ctx, "d-1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.Equal(t, "b", page[1].ID)

	empty, err := s.History().ListByDelivery(ctx, "d-1", 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestComputeLoadMass(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		ret := d("5")
		load, err := repos.Loads.GetForUpdate(ctx, "l-1")
		if err != nil {
			return err
		}
		load.ReturnMass = &ret
		if err := repos.Loads.Update(ctx, load); err != nil {
			return err
		}
		return repos.Applications.Create(ctx, &entity.ApplicationDetail{
			ID: "a-1", LoadRecordID: "l-1", Sequence: 1, AppliedMass: d("12.5"), IdempotencyKey: "k",
		})
	}))

	actual, applied, err := s.ComputeLoadMass(ctx, "l-1")
	require.NoError(t, err)
	assert.True(t, d("45").Equal(actual))
	assert.True(t, d("12.5").Equal(applied))

	sum, err := s.Applications().SumAppliedByRequisition(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, d("12.5").Equal(sum))

	_, _, err = s.ComputeLoadMass(ctx, "no-existe")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListAuditableIDs_OmiteCanceladasYSinMasa(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := repos.Deliveries.Create(ctx, &entity.DeliveryItem{ID: "d-2", RequisitionID: "req-1", ProgrammedMass: d("5"), Status: entity.DeliveryStatusCancelled}); err != nil {
			return err
		}
		return repos.Deliveries.Create(ctx, &entity.DeliveryItem{ID: "d-3", RequisitionID: "req-1", ProgrammedMass: decimal.Zero, Status: entity.DeliveryStatusScheduled})
	}))

	var ids []string
	require.NoError(t, s.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		ids, err = repos.Deliveries.ListAuditableIDs(ctx)
		return err
	}))
	assert.Equal(t, []string{"d-1"}, ids)
}
