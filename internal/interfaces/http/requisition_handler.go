package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/massa-api/internal/application/dto"
	"github.com/jhoicas/massa-api/internal/application/progress"
	"github.com/jhoicas/massa-api/internal/application/scheduling"
)

// RequisitionHandler programación de entregas y avance de la requisición.
type RequisitionHandler struct {
	scheduling *scheduling.UseCase
	presenter  *progress.Presenter
	validate   *requestValidator
	errs       errorWriter
}

// NewRequisitionHandler construye el handler.
func NewRequisitionHandler(uc *scheduling.UseCase, presenter *progress.Presenter, rv *requestValidator, errs errorWriter) *RequisitionHandler {
	return &RequisitionHandler{scheduling: uc, presenter: presenter, validate: rv, errs: errs}
}

// Schedule godoc
// @Summary      Programar entrega
// @Description  Crea una entrega SCHEDULED si la masa programada cabe en el saldo de la requisición.
// @Tags         requisitions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID de la requisición"
// @Param        body  body  dto.ScheduleDeliveryRequest  true  "programmed_mass, scheduled_date, vehicle_id, team_id, plant_id"
// @Success      201   {object}  dto.DeliveryItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requisitions/{id}/deliveries [post]
func (h *RequisitionHandler) Schedule(c *fiber.Ctx) error {
	var in dto.ScheduleDeliveryRequest
	if ok, err := h.validate.parse(c, &in); !ok {
		return err
	}
	var date time.Time
	if in.ScheduledDate != nil {
		date = *in.ScheduledDate
	}
	item, err := h.scheduling.Schedule(c.Context(), scheduling.ScheduleInput{
		RequisitionID:  pathID(c),
		ProgrammedMass: in.ProgrammedMass,
		ScheduledDate:  date,
		VehicleID:      in.VehicleID,
		TeamID:         in.TeamID,
		PlantID:        in.PlantID,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDeliveryResponse(item))
}

// Progress godoc
// @Summary      Avance de la requisición
// @Tags         requisitions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la requisición"
// @Success      200  {object}  dto.ProgressResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/requisitions/{id}/progress [get]
func (h *RequisitionHandler) Progress(c *fiber.Ctx) error {
	data, err := h.presenter.GetDisplayData(c.Context(), pathID(c))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(toProgressResponse(data))
}
