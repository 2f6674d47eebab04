package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/massa-api/internal/application/audit"
)

// AdminHandler operaciones administrativas.
type AdminHandler struct {
	auditor *audit.Auditor
	errs    errorWriter
}

// NewAdminHandler construye el handler.
func NewAdminHandler(auditor *audit.Auditor, errs errorWriter) *AdminHandler {
	return &AdminHandler{auditor: auditor, errs: errs}
}

// Sweep godoc
// @Summary      Barrido de integridad
// @Description  Recalcula el estado de cada entrega activa y corrige las desviaciones. Las cargas con más masa aplicada que real se reportan sin corregir.
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SweepReportResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/admin/integrity-sweep [post]
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	report, err := h.auditor.Sweep(c.Context(), userID)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(toSweepResponse(report))
}
