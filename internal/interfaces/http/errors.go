package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/massa-api/internal/application/dto"
	"github.com/jhoicas/massa-api/internal/domain"
	"github.com/rs/zerolog"
)

// errorWriter traduce errores de dominio a respuestas HTTP.
// Los fallos de infraestructura se registran completos y al cliente solo le llega un mensaje genérico.
type errorWriter struct {
	log zerolog.Logger
}

func (w errorWriter) write(c *fiber.Ctx, err error) error {
	var (
		verr *domain.ValidationError
		viol *domain.IntegrityViolation
	)
	switch {
	case errors.As(err, &verr):
		resp := dto.ErrorResponse{Code: verr.Code, Message: verr.Reason}
		if verr.Code == domain.CodeExceedsAvailable {
			resp.Overage = verr.Overage.String()
		}
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.As(err, &viol):
		w.log.Error().Err(err).Str("delivery_item_id", viol.DeliveryItemID).Str("load_record_id", viol.LoadRecordID).
			Msg("violación de integridad")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "INTEGRITY_VIOLATION", Message: viol.Detail})
	case errors.Is(err, domain.ErrUnavailable):
		w.log.Error().Err(err).Str("path", c.Path()).Msg("almacenamiento no disponible")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "UNAVAILABLE", Message: "servicio no disponible, intente de nuevo"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "otra operación modificó el recurso; intente de nuevo"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	default:
		w.log.Error().Err(err).Str("path", c.Path()).Msg("error no clasificado")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
