package recording_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/massa-api/internal/application/recording"
	"github.com/jhoicas/massa-api/internal/application/scheduling"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/infrastructure/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store    *memory.Store
	ledger   ledger.Ledger
	sched    *scheduling.UseCase
	recorder *recording.RecordApplicationUseCase
}

func newFixture(t *testing.T, epsilon string) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddRequisition(entity.Requisition{ID: "req-1", Code: "REQ-1", TotalMass: d("500"), CreatedAt: time.Now()})
	lg := ledger.New(d(epsilon))
	log := zerolog.Nop()
	return &fixture{
		store:    store,
		ledger:   lg,
		sched:    scheduling.NewUseCase(store, lg, log),
		recorder: recording.NewRecordApplicationUseCase(store, lg, nil, recording.RetryPolicy{MaxAttempts: 3}, log),
	}
}

// dispatch programa y despacha una carga; ret opcional registra el pesaje de retorno.
func (f *fixture) dispatch(t *testing.T, programmed, departure, ret string) (*entity.DeliveryItem, *entity.LoadRecord) {
	t.Helper()
	ctx := context.Background()
	item, err := f.sched.Schedule(ctx, scheduling.ScheduleInput{RequisitionID: "req-1", ProgrammedMass: d(programmed)})
	require.NoError(t, err)
	load, err := f.sched.Dispatch(ctx, scheduling.DispatchInput{DeliveryItemID: item.ID, DepartureMass: d(departure), Actor: "despacho"})
	require.NoError(t, err)
	if ret != "" {
		_, err = f.sched.RecordReturnWeight(ctx, scheduling.WeighingInput{LoadRecordID: load.ID, ReturnMass: d(ret), Actor: "bascula"})
		require.NoError(t, err)
	}
	return item, load
}

func (f *fixture) apply(loadID, site, mass, key string) (*recording.Result, error) {
	return f.recorder.RecordApplication(context.Background(), recording.Input{
		LoadRecordID:   loadID,
		SiteName:       site,
		AppliedMass:    d(mass),
		IdempotencyKey: key,
		Actor:          "cuadrilla-7",
	})
}

func nopLog() zerolog.Logger { return zerolog.Nop() }
