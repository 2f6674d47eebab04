package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/jhoicas/massa-api/internal/application/dto"
	"github.com/jhoicas/massa-api/internal/domain"
)

// HeaderIdempotencyKey header con la llave que el cliente genera una vez por aplicación
// y reutiliza en cada reintento.
const HeaderIdempotencyKey = "Idempotency-Key"

const localIdempotencyKey = "idempotency_key"

// maxIdempotencyKeyLen coincide con el largo de la columna en la base.
const maxIdempotencyKeyLen = 128

// RequireIdempotencyKey exige el header Idempotency-Key en escrituras no idempotentes por naturaleza.
// Si falta, acepta idempotency_key del cuerpo JSON; el handler la lee con GetIdempotencyKey.
//   - 400 MISSING_IDEMPOTENCY_KEY → sin llave en header ni cuerpo.
//   - 400 VALIDATION              → llave demasiado larga.
func RequireIdempotencyKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
		if key == "" {
			var body struct {
				IdempotencyKey string `json:"idempotency_key"`
			}
			if len(c.Body()) > 0 {
				_ = c.BodyParser(&body)
			}
			key = strings.TrimSpace(body.IdempotencyKey)
		}
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code:    domain.CodeMissingIdempotency,
				Message: "el header " + HeaderIdempotencyKey + " es obligatorio",
			})
		}
		if len(key) > maxIdempotencyKeyLen {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code:    "VALIDATION",
				Message: "la llave de idempotencia es demasiado larga",
			})
		}
		// la llave termina en el almacenamiento; no puede apuntar al buffer de fasthttp
		c.Locals(localIdempotencyKey, utils.CopyString(key))
		return c.Next()
	}
}

// pathID devuelve el parámetro :id copiado fuera del buffer de la petición.
func pathID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}

// GetIdempotencyKey devuelve la llave validada por RequireIdempotencyKey.
func GetIdempotencyKey(c *fiber.Ctx) string {
	s, _ := c.Locals(localIdempotencyKey).(string)
	return s
}
