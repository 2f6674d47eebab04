package recording_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/massa-api/internal/application/recording"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios de extremo a extremo
// ──────────────────────────────────────────────────────────────────────────────

// Requisición de 500 t, entrega de 100 t, pesaje 100/2 → 98 t reales; 60 + 38 completan la entrega.
func TestRecordApplication_CompletaEntregaConDosAplicaciones(t *testing.T) {
	f := newFixture(t, "0.01")
	item, load := f.dispatch(t, "100", "100", "2")

	res, err := f.apply(load.ID, "Calle 10", "60", "k-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sequence)
	assert.True(t, d("38").Equal(res.RemainingMass))
	assert.Equal(t, entity.DeliveryStatusSent, res.Status)
	assert.False(t, res.Finalized)

	res, err = f.apply(load.ID, "Calle 11", "38", "k-2")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sequence)
	assert.True(t, res.RemainingMass.IsZero())
	assert.Equal(t, entity.DeliveryStatusDelivered, res.Status)
	assert.True(t, res.Finalized)

	entries, err := f.store.History().ListByDelivery(context.Background(), item.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2, "SCHEDULED→SENT al despachar y SENT→DELIVERED al completar")
	assert.Equal(t, entity.DeliveryStatusDelivered, entries[0].ToStatus)
	assert.Equal(t, "cuadrilla-7", entries[0].Actor)
	assert.Equal(t, recording.ReasonCompleted, entries[0].Reason)
	assert.Equal(t, entity.DeliveryStatusSent, entries[1].ToStatus)
}

// Carga de 50 t: 40 aceptadas, 15 rechazadas con excedente exacto de 5 t.
func TestRecordApplication_ExcedeDisponible(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "50", "50", "")

	_, err := f.apply(load.ID, "Calle 1", "40", "k-1")
	require.NoError(t, err)

	_, err = f.apply(load.ID, "Calle 2", "15", "k-2")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.CodeExceedsAvailable, verr.Code)
	assert.True(t, d("5").Equal(verr.Overage))

	apps, err := f.store.Applications().ListByLoad(context.Background(), load.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1, "el rechazo no deja ningún registro")
}

func TestRecordApplication_RestanteExactoVsRestanteMasDosCentesimas(t *testing.T) {
	t.Run("restante exacto se acepta y entrega", func(t *testing.T) {
		f := newFixture(t, "0.01")
		_, load := f.dispatch(t, "20", "20", "")
		res, err := f.apply(load.ID, "Calle 1", "20", "k-1")
		require.NoError(t, err)
		assert.Equal(t, entity.DeliveryStatusDelivered, res.Status)
	})
	t.Run("restante + 0,02 se rechaza", func(t *testing.T) {
		f := newFixture(t, "0.01")
		_, load := f.dispatch(t, "20", "20", "")
		_, err := f.apply(load.ID, "Calle 1", "20.02", "k-1")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

// Dos aplicaciones simultáneas de 60 t sobre 100 t: exactamente una se acepta.
func TestRecordApplication_ConcurrenciaNoExcedeMasaReal(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "100", "100", "")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.apply(load.ID, "Calle", "60", []string{"k-a", "k-b"}[i])
		}(i)
	}
	wg.Wait()

	ok, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInvalidInput):
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	reading, err := recording.NewLocalEstimate(f.store.Loads(), f.store.Applications(), f.ledger).Compute(context.Background(), load.ID)
	require.NoError(t, err)
	assert.True(t, d("60").Equal(reading.Applied))
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordApplication_ReintentoConMismaLlaveNoDuplica(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "100", "100", "")

	first, err := f.apply(load.ID, "Calle 5", "30", "k-1")
	require.NoError(t, err)
	replay, err := f.apply(load.ID, "  Calle 5 ", "30", "k-1")
	require.NoError(t, err)

	assert.True(t, replay.Replayed)
	assert.Equal(t, first.DetailID, replay.DetailID)
	assert.Equal(t, first.Sequence, replay.Sequence)

	apps, err := f.store.Applications().ListByLoad(context.Background(), load.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestRecordApplication_SitioEnFormasUnicodeDistintasCoincide(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "100", "100", "")

	_, err := f.apply(load.ID, "Calle Bogot\u00e1", "10", "k-1")
	require.NoError(t, err)
	replay, err := f.apply(load.ID, "Calle Bogota\u0301", "10", "k-1")
	require.NoError(t, err, "la forma descompuesta es la misma calle")
	assert.True(t, replay.Replayed)
}

func TestRecordApplication_LlaveReutilizadaConOtrosDatos(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "100", "100", "")

	_, err := f.apply(load.ID, "Calle 5", "30", "k-1")
	require.NoError(t, err)

	_, err = f.apply(load.ID, "Calle 5", "31", "k-1")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.CodeIdempotencyReuse, verr.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordApplication_Validaciones(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "100", "100", "")

	cases := []struct {
		name string
		in   recording.Input
		code string
	}{
		{"sitio vacío", recording.Input{LoadRecordID: load.ID, SiteName: "  ", AppliedMass: d("1"), IdempotencyKey: "k", Actor: "a"}, domain.CodeEmptySite},
		{"masa cero", recording.Input{LoadRecordID: load.ID, SiteName: "C", AppliedMass: d("0"), IdempotencyKey: "k", Actor: "a"}, domain.CodeInvalidMass},
		{"masa negativa", recording.Input{LoadRecordID: load.ID, SiteName: "C", AppliedMass: d("-2"), IdempotencyKey: "k", Actor: "a"}, domain.CodeInvalidMass},
		{"sin llave", recording.Input{LoadRecordID: load.ID, SiteName: "C", AppliedMass: d("1"), Actor: "a"}, domain.CodeMissingIdempotency},
		{"sin actor", recording.Input{LoadRecordID: load.ID, SiteName: "C", AppliedMass: d("1"), IdempotencyKey: "k"}, domain.CodeMissingActor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.recorder.RecordApplication(context.Background(), tc.in)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "%v", err)
			assert.Equal(t, tc.code, verr.Code)
		})
	}
}

func TestRecordApplication_CargaInexistente(t *testing.T) {
	f := newFixture(t, "0.01")
	_, err := f.apply("no-existe", "Calle", "1", "k")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRecordApplication_CargaFinalizada(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "10", "10", "")
	_, err := f.apply(load.ID, "Calle", "10", "k-1")
	require.NoError(t, err)

	_, err = f.apply(load.ID, "Calle", "1", "k-2")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.CodeAlreadyFinalized, verr.Code)
}

func TestRecordApplication_SecuenciaSinHuecos(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "100", "100", "")

	_, _ = f.apply(load.ID, "A", "10", "k-1")
	_, _ = f.apply(load.ID, "B", "500", "k-2") // rechazada
	res, err := f.apply(load.ID, "C", "10", "k-3")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sequence, "un rechazo no consume secuencia")
}

// ──────────────────────────────────────────────────────────────────────────────
// Bloqueo distribuido
// ──────────────────────────────────────────────────────────────────────────────

type lockerFunc func(ctx context.Context, key string) (func(), error)

func (f lockerFunc) Obtain(ctx context.Context, key string) (func(), error) { return f(ctx, key) }

func TestRecordApplication_BloqueoOcupadoSeReintentaYEscala(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "100", "100", "")

	attempts := 0
	busy := lockerFunc(func(context.Context, string) (func(), error) {
		attempts++
		return nil, domain.NewConflict("lock", nil)
	})
	uc := recording.NewRecordApplicationUseCase(f.store, f.ledger, busy, recording.RetryPolicy{MaxAttempts: 3}, nopLog())
	_, err := uc.RecordApplication(context.Background(), recording.Input{
		LoadRecordID: load.ID, SiteName: "C", AppliedMass: d("1"), IdempotencyKey: "k", Actor: "a",
	})
	assert.True(t, errors.Is(err, domain.ErrUnavailable), "conflicto persistente escala a infraestructura")
	assert.Equal(t, 3, attempts)
}

func TestRecordApplication_LiberaElBloqueo(t *testing.T) {
	f := newFixture(t, "0.01")
	_, load := f.dispatch(t, "100", "100", "")

	var keys []string
	released := 0
	locker := lockerFunc(func(_ context.Context, key string) (func(), error) {
		keys = append(keys, key)
		return func() { released++ }, nil
	})
	uc := recording.NewRecordApplicationUseCase(f.store, f.ledger, locker, recording.DefaultRetryPolicy, nopLog())
	_, err := uc.RecordApplication(context.Background(), recording.Input{
		LoadRecordID: load.ID, SiteName: "C", AppliedMass: d("1"), IdempotencyKey: "k", Actor: "a",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"massa:load:" + load.ID}, keys)
	assert.Equal(t, 1, released)
}
