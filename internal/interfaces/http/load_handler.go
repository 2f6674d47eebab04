package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/massa-api/internal/application/dto"
	"github.com/jhoicas/massa-api/internal/application/finalization"
	"github.com/jhoicas/massa-api/internal/application/progress"
	"github.com/jhoicas/massa-api/internal/application/recording"
	"github.com/jhoicas/massa-api/internal/application/scheduling"
	"github.com/jhoicas/massa-api/internal/domain/entity"
)

// LoadHandler operaciones sobre una carga: pesaje de retorno, aplicaciones, lectura de masa y cierre manual.
type LoadHandler struct {
	scheduling *scheduling.UseCase
	recorder   *recording.RecordApplicationUseCase
	finalizer  *finalization.ForceFinalizeUseCase
	presenter  *progress.Presenter
	validate   *requestValidator
	errs       errorWriter
}

// NewLoadHandler construye el handler.
func NewLoadHandler(
	uc *scheduling.UseCase,
	recorder *recording.RecordApplicationUseCase,
	finalizer *finalization.ForceFinalizeUseCase,
	presenter *progress.Presenter,
	rv *requestValidator,
	errs errorWriter,
) *LoadHandler {
	return &LoadHandler{
		scheduling: uc,
		recorder:   recorder,
		finalizer:  finalizer,
		presenter:  presenter,
		validate:   rv,
		errs:       errs,
	}
}

// ReturnWeight godoc
// @Summary      Registrar pesaje de retorno
// @Tags         loads
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la carga"
// @Param        body  body  dto.ReturnWeightRequest  true  "return_mass"
// @Success      200   {object}  dto.WeighingResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/loads/{id}/return-weight [put]
func (h *LoadHandler) ReturnWeight(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.ReturnWeightRequest
	if ok, err := h.validate.parse(c, &in); !ok {
		return err
	}
	loadID := pathID(c)
	res, err := h.scheduling.RecordReturnWeight(c.Context(), scheduling.WeighingInput{
		LoadRecordID: loadID,
		ReturnMass:   in.ReturnMass,
		Actor:        userID,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.WeighingResponse{
		LoadRecordID:  loadID,
		ActualMass:    res.ActualMass,
		RemainingMass: res.RemainingMass,
		Status:        string(res.Status),
		Finalized:     res.Finalized,
	})
}

// RecordApplication godoc
// @Summary      Registrar aplicación de masa
// @Description  Agrega una aplicación en un sitio. Reintentar con la misma Idempotency-Key devuelve el resultado original (200).
// @Tags         loads
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string                        true  "ID de la carga"
// @Param        Idempotency-Key  header  string                        true  "Llave única por aplicación"
// @Param        body             body    dto.RecordApplicationRequest  true  "site_name, applied_mass, measurements"
// @Success      201  {object}  dto.ApplicationResultResponse
// @Success      200  {object}  dto.ApplicationResultResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/loads/{id}/applications [post]
func (h *LoadHandler) RecordApplication(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.RecordApplicationRequest
	if ok, err := h.validate.parse(c, &in); !ok {
		return err
	}
	res, err := h.recorder.RecordApplication(c.Context(), recording.Input{
		LoadRecordID: pathID(c),
		SiteName:     in.SiteName,
		AppliedMass:  in.AppliedMass,
		Measurements: entity.Measurements{
			AreaM2:      in.Measurements.AreaM2,
			ThicknessCm: in.Measurements.ThicknessCm,
			WidthM:      in.Measurements.WidthM,
			LengthM:     in.Measurements.LengthM,
			Notes:       in.Measurements.Notes,
		},
		IdempotencyKey: GetIdempotencyKey(c),
		Actor:          userID,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	code := fiber.StatusCreated
	if res.Replayed {
		code = fiber.StatusOK
	}
	return c.Status(code).JSON(dto.ApplicationResultResponse{
		DetailID:       res.DetailID,
		Sequence:       res.Sequence,
		RemainingMass:  res.RemainingMass,
		PercentApplied: res.PercentApplied,
		Status:         string(res.Status),
		Finalized:      res.Finalized,
		Replayed:       res.Replayed,
	})
}

// Mass godoc
// @Summary      Masa de la carga
// @Description  Cálculo remoto; si no está disponible se devuelve una estimación local marcada (estimated=true).
// @Tags         loads
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la carga"
// @Success      200  {object}  dto.MassReadingResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/loads/{id}/mass [get]
func (h *LoadHandler) Mass(c *fiber.Ctx) error {
	reading, err := h.presenter.GetLoadMass(c.Context(), pathID(c))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(toMassResponse(reading))
}

// Finalize godoc
// @Summary      Finalizar carga manualmente
// @Description  Cierra la carga aunque quede residuo de pesaje. Solo administradores.
// @Tags         loads
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true   "ID de la carga"
// @Param        body  body  dto.FinalizeLoadRequest  false  "reason"
// @Success      200   {object}  dto.FinalizeResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/loads/{id}/finalize [post]
func (h *LoadHandler) Finalize(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.FinalizeLoadRequest
	if len(c.Body()) > 0 {
		if ok, err := h.validate.parse(c, &in); !ok {
			return err
		}
	}
	loadID := pathID(c)
	res, err := h.finalizer.ForceFinalize(c.Context(), finalization.Input{
		LoadRecordID: loadID,
		Actor:        userID,
		Reason:       in.Reason,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.FinalizeResultResponse{
		LoadRecordID:    loadID,
		TotalApplied:    res.TotalApplied,
		TotalMass:       res.TotalMass,
		NumApplications: res.NumApplications,
		Residual:        res.Residual,
		Status:          string(res.Status),
	})
}
