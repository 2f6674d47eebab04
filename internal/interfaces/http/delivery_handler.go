package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/massa-api/internal/application/dto"
	"github.com/jhoicas/massa-api/internal/application/history"
	"github.com/jhoicas/massa-api/internal/application/scheduling"
)

// DeliveryHandler eventos de la entrega (despacho, cancelación) y su historial.
type DeliveryHandler struct {
	scheduling *scheduling.UseCase
	history    *history.Service
	validate   *requestValidator
	errs       errorWriter
}

// NewDeliveryHandler construye el handler.
func NewDeliveryHandler(uc *scheduling.UseCase, hs *history.Service, rv *requestValidator, errs errorWriter) *DeliveryHandler {
	return &DeliveryHandler{scheduling: uc, history: hs, validate: rv, errs: errs}
}

// Dispatch godoc
// @Summary      Despachar carga
// @Description  Registra el pesaje de salida y pasa la entrega de SCHEDULED a SENT.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID de la entrega"
// @Param        body  body  dto.DispatchRequest  true  "departure_mass"
// @Success      201   {object}  dto.LoadRecordResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id}/dispatch [post]
func (h *DeliveryHandler) Dispatch(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.DispatchRequest
	if ok, err := h.validate.parse(c, &in); !ok {
		return err
	}
	load, err := h.scheduling.Dispatch(c.Context(), scheduling.DispatchInput{
		DeliveryItemID: pathID(c),
		DepartureMass:  in.DepartureMass,
		Actor:          userID,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toLoadResponse(load))
}

// Cancel godoc
// @Summary      Cancelar entrega
// @Description  Cancelación administrativa, irreversible. El motivo es obligatorio.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID de la entrega"
// @Param        body  body  dto.CancelDeliveryRequest  true  "reason"
// @Success      200   {object}  dto.DeliveryItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id}/cancel [post]
func (h *DeliveryHandler) Cancel(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.CancelDeliveryRequest
	if ok, err := h.validate.parse(c, &in); !ok {
		return err
	}
	item, err := h.scheduling.Cancel(c.Context(), scheduling.CancelInput{
		DeliveryItemID: pathID(c),
		Reason:         in.Reason,
		Actor:          userID,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(toDeliveryResponse(item))
}

// History godoc
// @Summary      Historial de estados de la entrega
// @Description  Más reciente primero.
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la entrega"
// @Param        limit   query  int     false  "Máximo de entradas (1-100, por defecto 20)"
// @Param        offset  query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.HistoryPageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id}/history [get]
func (h *DeliveryHandler) History(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros de página inválidos"})
	}
	if ok, err := h.validate.check(c, &page); !ok {
		return err
	}
	page.DefaultPage()

	entries, err := h.history.ListByDelivery(c.Context(), pathID(c), page.Limit, page.Offset)
	if err != nil {
		return h.errs.write(c, err)
	}
	out := dto.HistoryPageResponse{
		Items: make([]dto.StatusHistoryResponse, 0, len(entries)),
		Page:  dto.NewPageResponse(page, len(entries)),
	}
	for _, e := range entries {
		out.Items = append(out.Items, toHistoryResponse(e))
	}
	return c.JSON(out)
}

// Stats godoc
// @Summary      Estadísticas del historial de la entrega
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la entrega"
// @Success      200  {object}  dto.HistoryStatsResponse
// @Router       /api/deliveries/{id}/history/stats [get]
func (h *DeliveryHandler) Stats(c *fiber.Ctx) error {
	id := pathID(c)
	stats, err := h.history.Statistics(c.Context(), id)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(toStatsResponse(id, stats))
}
