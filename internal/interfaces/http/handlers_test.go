package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/massa-api/internal/application/audit"
	"github.com/jhoicas/massa-api/internal/application/finalization"
	"github.com/jhoicas/massa-api/internal/application/history"
	"github.com/jhoicas/massa-api/internal/application/progress"
	"github.com/jhoicas/massa-api/internal/application/recording"
	"github.com/jhoicas/massa-api/internal/application/scheduling"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/jhoicas/massa-api/internal/domain/entity"
	"github.com/jhoicas/massa-api/internal/domain/ledger"
	"github.com/jhoicas/massa-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/massa-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/massa-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers: API completa sobre el almacenamiento en memoria
// ──────────────────────────────────────────────────────────────────────────────

const testRequisitionID = "req-1"

func buildAPI(t *testing.T, totalMass string) *fiber.App {
	t.Helper()
	return buildAPIWithLocker(t, totalMass, nil)
}

func buildAPIWithLocker(t *testing.T, totalMass string, locker recording.LoadLocker) *fiber.App {
	t.Helper()
	log := zerolog.Nop()
	lg := ledger.Default()
	store := memory.NewStore()
	store.AddRequisition(entity.Requisition{
		ID:        testRequisitionID,
		Code:      "REQ-2024-001",
		TotalMass: decimal.RequireFromString(totalMass),
		CreatedAt: time.Now(),
	})

	calc := recording.NewResilientCalculator(
		recording.NewRemoteCompute(store, lg),
		recording.NewLocalEstimate(store.Loads(), store.Applications(), lg),
		log,
	)
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Scheduling: scheduling.NewUseCase(store, lg, log),
		Recorder:   recording.NewRecordApplicationUseCase(store, lg, locker, recording.RetryPolicy{MaxAttempts: 3}, log),
		Finalizer:  finalization.NewForceFinalizeUseCase(store, lg, log),
		History:    history.NewService(store.History()),
		Presenter:  progress.NewPresenter(store, store, calc, lg, progress.DefaultLocale, log),
		Auditor:    audit.NewAuditor(store, lg, log),
		JWTSecret:  testJWTSecret,
		Log:        log,
	})
	return app
}

type apiCall struct {
	method  string
	path    string
	role    string
	body    string
	headers map[string]string
}

func call(t *testing.T, app *fiber.App, c apiCall) (int, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if c.body != "" {
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(c.method, c.path, nil)
	}
	if c.role != "" {
		req.Header.Set("Authorization", tokenForRole(t, c.role))
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

// prepareLoad programa y despacha una entrega; devuelve (deliveryID, loadID).
func prepareLoad(t *testing.T, app *fiber.App, programmed, departure string) (string, string) {
	t.Helper()
	status, body := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/requisitions/" + testRequisitionID + "/deliveries",
		role: pkgjwt.RoleDispatcher, body: `{"programmed_mass": ` + programmed + `}`,
	})
	require.Equal(t, http.StatusCreated, status, "programar: %v", body)
	deliveryID := body["id"].(string)

	status, body = call(t, app, apiCall{
		method: http.MethodPost, path: "/api/deliveries/" + deliveryID + "/dispatch",
		role: pkgjwt.RoleDispatcher, body: `{"departure_mass": ` + departure + `}`,
	})
	require.Equal(t, http.StatusCreated, status, "despachar: %v", body)
	return deliveryID, body["id"].(string)
}

func apply(t *testing.T, app *fiber.App, loadID, site, mass, key string) (int, map[string]interface{}) {
	t.Helper()
	return call(t, app, apiCall{
		method: http.MethodPost, path: "/api/loads/" + loadID + "/applications",
		role:    pkgjwt.RoleOperator,
		body:    `{"site_name": "` + site + `", "applied_mass": ` + mass + `}`,
		headers: map[string]string{apphttp.HeaderIdempotencyKey: key},
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_FlujoCompleto_EntregaSeCompletaConDosAplicaciones(t *testing.T) {
	app := buildAPI(t, "500")
	deliveryID, loadID := prepareLoad(t, app, "100", "100")

	status, body := call(t, app, apiCall{
		method: http.MethodPut, path: "/api/loads/" + loadID + "/return-weight",
		role: pkgjwt.RoleDispatcher, body: `{"return_mass": 2}`,
	})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "98", body["actual_mass"])
	assert.Equal(t, "SENT", body["status"])

	status, body = apply(t, app, loadID, "Calle 10", "60", "k-1")
	require.Equal(t, http.StatusCreated, status, "%v", body)
	assert.Equal(t, "38", body["remaining_mass"])
	assert.Equal(t, "SENT", body["status"])

	status, body = apply(t, app, loadID, "Calle 11", "38", "k-2")
	require.Equal(t, http.StatusCreated, status, "%v", body)
	assert.Equal(t, "0", body["remaining_mass"])
	assert.Equal(t, "DELIVERED", body["status"])
	assert.Equal(t, true, body["finalized"])

	status, body = call(t, app, apiCall{
		method: http.MethodGet, path: "/api/deliveries/" + deliveryID + "/history",
		role: pkgjwt.RoleOperator,
	})
	require.Equal(t, http.StatusOK, status)
	items := body["items"].([]interface{})
	require.Len(t, items, 2, "despacho y entrega completa")
	assert.Equal(t, "DELIVERED", items[0].(map[string]interface{})["to_status"], "más reciente primero")
	assert.Equal(t, "SENT", items[1].(map[string]interface{})["to_status"])
	page := body["page"].(map[string]interface{})
	assert.Equal(t, float64(20), page["limit"])
	assert.Equal(t, false, page["has_more"])

	status, body = call(t, app, apiCall{
		method: http.MethodGet, path: "/api/deliveries/" + deliveryID + "/history/stats",
		role: pkgjwt.RoleOperator,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["total_transitions"])
	assert.Equal(t, "DELIVERED", body["current_status"])
	assert.Equal(t, testUserID, body["last_actor"])
}

func TestAPI_AplicacionExcedida_Retorna400ConExcedente(t *testing.T) {
	app := buildAPI(t, "500")
	_, loadID := prepareLoad(t, app, "50", "50")

	status, _ := apply(t, app, loadID, "Calle 1", "40", "k-1")
	require.Equal(t, http.StatusCreated, status)

	status, body := apply(t, app, loadID, "Calle 2", "15", "k-2")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EXCEEDS_AVAILABLE_MASS", body["code"])
	assert.Equal(t, "5", body["overage"])
	assert.Contains(t, body["message"], "excede la masa disponible", "el motivo se muestra tal cual")
}

func TestAPI_ReintentoConMismaLlave_Retorna200SinAplicarDeNuevo(t *testing.T) {
	app := buildAPI(t, "500")
	_, loadID := prepareLoad(t, app, "100", "100")

	status, first := apply(t, app, loadID, "Calle 1", "30", "k-1")
	require.Equal(t, http.StatusCreated, status)

	status, replay := apply(t, app, loadID, "Calle 1", "30", "k-1")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, replay["replayed"])
	assert.Equal(t, first["detail_id"], replay["detail_id"])

	status, body := call(t, app, apiCall{method: http.MethodGet, path: "/api/loads/" + loadID + "/mass", role: pkgjwt.RoleOperator})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "30", body["applied"], "la masa se aplica una sola vez")
	assert.Equal(t, "REMOTE", body["source"])
	assert.Equal(t, false, body["estimated"])

	status, body = apply(t, app, loadID, "Calle 2", "30", "k-1")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSED", body["code"])
}

func TestAPI_LlavesDistintasDelMismoLargo_AplicanAmbas(t *testing.T) {
	app := buildAPI(t, "500")
	_, loadID := prepareLoad(t, app, "100", "100")

	status, body := apply(t, app, loadID, "Calle A", "10", "aaa")
	require.Equal(t, http.StatusCreated, status, "%v", body)
	status, body = apply(t, app, loadID, "Calle B", "10", "bbb")
	require.Equal(t, http.StatusCreated, status, "la llave guardada no debe cambiar con la siguiente petición: %v", body)

	status, body = apply(t, app, loadID, "Calle A", "10", "aaa")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["replayed"])

	status, body = call(t, app, apiCall{method: http.MethodGet, path: "/api/loads/" + loadID + "/mass", role: pkgjwt.RoleOperator})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "20", body["applied"])
}

// busyLocker simula otro proceso que retiene el bloqueo de la carga.
type busyLocker struct{}

func (busyLocker) Obtain(context.Context, string) (func(), error) {
	return nil, domain.NewConflict("lock", nil)
}

func TestAPI_ConflictoPersistente_Retorna503(t *testing.T) {
	app := buildAPIWithLocker(t, "500", busyLocker{})
	_, loadID := prepareLoad(t, app, "100", "100")

	status, body := apply(t, app, loadID, "Calle 1", "10", "k-1")
	assert.Equal(t, http.StatusServiceUnavailable, status, "%v", body)
	assert.Equal(t, "UNAVAILABLE", body["code"])
}

func TestAPI_AplicacionSinLlaveDeIdempotencia_Retorna400(t *testing.T) {
	app := buildAPI(t, "500")
	_, loadID := prepareLoad(t, app, "100", "100")

	status, body := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/loads/" + loadID + "/applications",
		role: pkgjwt.RoleOperator, body: `{"site_name": "Calle 1", "applied_mass": 10}`,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MISSING_IDEMPOTENCY_KEY", body["code"])
}

func TestAPI_LlaveEnElCuerpo_SeAceptaSinHeader(t *testing.T) {
	app := buildAPI(t, "500")
	_, loadID := prepareLoad(t, app, "100", "100")

	status, body := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/loads/" + loadID + "/applications",
		role: pkgjwt.RoleOperator, body: `{"site_name": "Calle 1", "applied_mass": 10, "idempotency_key": "k-body"}`,
	})
	assert.Equal(t, http.StatusCreated, status, "%v", body)
}

func TestAPI_MedidaNegativa_Retorna400ConCampo(t *testing.T) {
	app := buildAPI(t, "500")
	_, loadID := prepareLoad(t, app, "100", "100")

	status, body := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/loads/" + loadID + "/applications",
		role:    pkgjwt.RoleOperator,
		body:    `{"site_name": "Calle 1", "applied_mass": 10, "measurements": {"area_m2": -3}}`,
		headers: map[string]string{apphttp.HeaderIdempotencyKey: "k-1"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
	fields := body["fields"].(map[string]interface{})
	assert.Equal(t, "gte", fields["area_m2"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Programación y cancelación
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_ProgramarMasDelSaldo_Retorna400(t *testing.T) {
	app := buildAPI(t, "100")
	prepareLoad(t, app, "80", "80")

	status, body := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/requisitions/" + testRequisitionID + "/deliveries",
		role: pkgjwt.RoleDispatcher, body: `{"programmed_mass": 30}`,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BUDGET_EXCEEDED", body["code"])
}

func TestAPI_RequisicionInexistente_Retorna404(t *testing.T) {
	app := buildAPI(t, "100")
	status, body := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/requisitions/no-existe/deliveries",
		role: pkgjwt.RoleDispatcher, body: `{"programmed_mass": 10}`,
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestAPI_CancelarSinMotivo_Retorna400YConMotivoCancela(t *testing.T) {
	app := buildAPI(t, "100")
	deliveryID, loadID := prepareLoad(t, app, "50", "50")

	status, body := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/deliveries/" + deliveryID + "/cancel",
		role: pkgjwt.RoleAdmin, body: `{"reason": "  "}`,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MISSING_REASON", body["code"])

	status, body = call(t, app, apiCall{
		method: http.MethodPost, path: "/api/deliveries/" + deliveryID + "/cancel",
		role: pkgjwt.RoleAdmin, body: `{"reason": "vía cerrada"}`,
	})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "CANCELLED", body["status"])
	assert.Equal(t, "vía cerrada", body["cancellation_reason"])

	status, body = apply(t, app, loadID, "Calle 1", "10", "k-1")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DELIVERY_CANCELLED", body["code"])
}

func TestAPI_DespachadorNoPuedeCancelar(t *testing.T) {
	app := buildAPI(t, "100")
	deliveryID, _ := prepareLoad(t, app, "50", "50")

	status, _ := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/deliveries/" + deliveryID + "/cancel",
		role: pkgjwt.RoleDispatcher, body: `{"reason": "x"}`,
	})
	assert.Equal(t, http.StatusForbidden, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Finalización manual y barrido
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_FinalizarManual_SoloAdmin(t *testing.T) {
	app := buildAPI(t, "100")
	deliveryID, loadID := prepareLoad(t, app, "30", "30")
	status, _ := apply(t, app, loadID, "Calle 1", "29.5", "k-1")
	require.Equal(t, http.StatusCreated, status)

	status, _ = call(t, app, apiCall{method: http.MethodPost, path: "/api/loads/" + loadID + "/finalize", role: pkgjwt.RoleOperator})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/loads/" + loadID + "/finalize",
		role: pkgjwt.RoleAdmin, body: `{"reason": "residuo de báscula"}`,
	})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "DELIVERED", body["status"])
	assert.Equal(t, "0.5", body["residual"])
	assert.Equal(t, float64(1), body["num_applications"])

	_, body = call(t, app, apiCall{
		method: http.MethodGet, path: "/api/deliveries/" + deliveryID + "/history/stats", role: pkgjwt.RoleAdmin,
	})
	assert.Equal(t, float64(1), body["manual_overrides"])

	status, body = call(t, app, apiCall{method: http.MethodPost, path: "/api/loads/" + loadID + "/finalize", role: pkgjwt.RoleAdmin})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ALREADY_FINALIZED", body["code"])
}

func TestAPI_BarridoDeIntegridad_SoloAdminYSinCorreccionesEnEstadoSano(t *testing.T) {
	app := buildAPI(t, "100")
	_, loadID := prepareLoad(t, app, "40", "40")
	_, _ = apply(t, app, loadID, "Calle 1", "10", "k-1")

	status, _ := call(t, app, apiCall{method: http.MethodPost, path: "/api/admin/integrity-sweep", role: pkgjwt.RoleDispatcher})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := call(t, app, apiCall{method: http.MethodPost, path: "/api/admin/integrity-sweep", role: pkgjwt.RoleAdmin})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, float64(1), body["total_checked"])
	assert.Equal(t, float64(0), body["inconsistencies_found"])
	assert.Empty(t, body["violations"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_Avance_MuestraTotalesFormateados(t *testing.T) {
	app := buildAPI(t, "500")
	_, loadID := prepareLoad(t, app, "100", "100")
	_, _ = apply(t, app, loadID, "Calle 1", "50", "k-1")

	status, body := call(t, app, apiCall{
		method: http.MethodGet, path: "/api/requisitions/" + testRequisitionID + "/progress", role: pkgjwt.RoleOperator,
	})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "REQ-2024-001", body["code"])
	assert.Equal(t, "10", body["percent_value"])
	assert.Contains(t, body["status_message"], "En ejecución")
	rows := body["deliveries"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "Enviada", rows[0].(map[string]interface{})["status_label"])
}

func TestAPI_MasaDeCargaInexistente_Retorna404(t *testing.T) {
	app := buildAPI(t, "500")
	status, _ := call(t, app, apiCall{method: http.MethodGet, path: "/api/loads/no-existe/mass", role: pkgjwt.RoleOperator})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_HistorialConLimiteInvalido_Retorna400(t *testing.T) {
	app := buildAPI(t, "500")
	deliveryID, _ := prepareLoad(t, app, "100", "100")
	status, body := call(t, app, apiCall{
		method: http.MethodGet, path: "/api/deliveries/" + deliveryID + "/history?limit=500", role: pkgjwt.RoleOperator,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
}

func TestAPI_SinToken_Retorna401(t *testing.T) {
	app := buildAPI(t, "500")
	status, _ := call(t, app, apiCall{method: http.MethodGet, path: "/api/requisitions/" + testRequisitionID + "/progress"})
	assert.Equal(t, http.StatusUnauthorized, status)
}
