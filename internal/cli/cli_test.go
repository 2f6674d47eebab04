package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/massa-api/internal/application/recording"
	"github.com/jhoicas/massa-api/internal/application/scheduling"
	"github.com/jhoicas/massa-api/internal/bootstrap"
	"github.com/jhoicas/massa-api/internal/cli"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/pkg/config"
	"github.com/rs/zerolog"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func memoryServices(t *testing.T) *bootstrap.Services {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{StoreDriver: config.StoreDriverMemory},
		Mass:      config.MassConfig{Tolerance: decimal.RequireFromString("0.01"), MaxAttempts: 3},
		Presenter: config.PresenterConfig{Locale: "es-CO"},
	}
	svc, err := bootstrap.Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, svc.Memory)
	svc.Memory.AddRequisition(entity.Requisition{
		ID: "req-1", Code: "REQ-1", TotalMass: decimal.NewFromInt(200), CreatedAt: time.Now(),
	})
	return svc
}

// loadWithApplication programa, despacha y aplica; devuelve (deliveryID, loadID).
func loadWithApplication(t *testing.T, svc *bootstrap.Services, departure, applied string) (string, string) {
	t.Helper()
	ctx := context.Background()
	item, err := svc.Scheduling.Schedule(ctx, scheduling.ScheduleInput{
		RequisitionID: "req-1", ProgrammedMass: decimal.RequireFromString(departure),
	})
	require.NoError(t, err)
	load, err := svc.Scheduling.Dispatch(ctx, scheduling.DispatchInput{
		DeliveryItemID: item.ID, DepartureMass: decimal.RequireFromString(departure), Actor: "despacho",
	})
	require.NoError(t, err)
	_, err = svc.Recorder.RecordApplication(ctx, recording.Input{
		LoadRecordID: load.ID, SiteName: "Calle 1", AppliedMass: decimal.RequireFromString(applied),
		IdempotencyKey: "k-1", Actor: "cuadrilla",
	})
	require.NoError(t, err)
	return item.ID, load.ID
}

func run(t *testing.T, svc *bootstrap.Services, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommandWith(func(context.Context) (*bootstrap.Services, error) { return svc, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestRootCommand_Subcomandos(t *testing.T) {
	cmd := cli.NewRootCommand()
	for _, name := range []string{"sweep", "finalize", "history"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestRootCommand_FormatoInvalido(t *testing.T) {
	_, err := run(t, memoryServices(t), "sweep", "--format", "yaml")
	assert.Error(t, err)
}

func TestSweep_SinDesviaciones_JSON(t *testing.T) {
	svc := memoryServices(t)
	loadWithApplication(t, svc, "40", "10")

	out, err := run(t, svc, "sweep", "--format", "json")
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, float64(1), report["total_checked"])
	assert.Equal(t, float64(0), report["inconsistencies_found"])
}

func TestFinalize_CierraLaCargaYQuedaEnElHistorial(t *testing.T) {
	svc := memoryServices(t)
	deliveryID, loadID := loadWithApplication(t, svc, "30", "29.5")

	out, err := run(t, svc, "finalize", "--load", loadID, "--actor", "ops:maria", "--reason", "residuo")
	require.NoError(t, err)
	assert.Contains(t, out, "DELIVERED")
	assert.Contains(t, out, "residuo 0.5 t")

	out, err = run(t, svc, "history", "--delivery", deliveryID, "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Cierres manuales:    1")
	assert.Contains(t, out, "ops:maria")
}

func TestFinalize_SinFlagsObligatorios(t *testing.T) {
	_, err := run(t, memoryServices(t), "finalize", "--load", "x")
	assert.Error(t, err, "--actor es obligatorio")
}

func TestFinalize_CargaYaFinalizada_CodigoDeSalida1(t *testing.T) {
	svc := memoryServices(t)
	_, loadID := loadWithApplication(t, svc, "20", "20")

	_, err := run(t, svc, "finalize", "--load", loadID, "--actor", "ops")
	require.Error(t, err)
	assert.Equal(t, cli.ExitFailure, cli.GetExitCode(err))
}

func TestHistory_ListaMasRecientePrimero(t *testing.T) {
	svc := memoryServices(t)
	deliveryID, _ := loadWithApplication(t, svc, "20", "20")

	out, err := run(t, svc, "history", "--delivery", deliveryID)
	require.NoError(t, err)
	delivered := bytes.Index([]byte(out), []byte("SENT      → DELIVERED"))
	sent := bytes.Index([]byte(out), []byte("SCHEDULED → SENT"))
	require.GreaterOrEqual(t, delivered, 0, out)
	require.GreaterOrEqual(t, sent, 0, out)
	assert.Less(t, delivered, sent)
}

func TestHistory_EntregaSinHistorial(t *testing.T) {
	out, err := run(t, memoryServices(t), "history", "--delivery", "no-existe")
	require.NoError(t, err)
	assert.Contains(t, out, "Sin historial")
}
