package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/massa-api/internal/application/audit"
	"github.com/jhoicas/massa-api/internal/application/finalization"
	"github.com/jhoicas/massa-api/internal/application/history"
	"github.com/jhoicas/massa-api/internal/application/progress"
	"github.com/jhoicas/massa-api/internal/application/recording"
	"github.com/jhoicas/massa-api/internal/application/scheduling"
	"github.com/jhoicas/massa-api/pkg/jwt"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Scheduling *scheduling.UseCase
	Recorder   *recording.RecordApplicationUseCase
	Finalizer  *finalization.ForceFinalizeUseCase
	History    *history.Service
	Presenter  *progress.Presenter
	Auditor    *audit.Auditor
	JWTSecret  string
	Log        zerolog.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	rv := newRequestValidator()
	errs := errorWriter{log: deps.Log}

	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	dispatchers := RequireRole(jwt.RoleAdmin, jwt.RoleDispatcher)
	fieldStaff := RequireRole(jwt.RoleAdmin, jwt.RoleDispatcher, jwt.RoleOperator)
	admins := RequireRole(jwt.RoleAdmin)

	// Requisiciones
	requisitions := protected.Group("/requisitions")
	requisitionHandler := NewRequisitionHandler(deps.Scheduling, deps.Presenter, rv, errs)
	requisitions.Post("/:id/deliveries", dispatchers, requisitionHandler.Schedule)
	requisitions.Get("/:id/progress", requisitionHandler.Progress)

	// Entregas
	deliveries := protected.Group("/deliveries")
	deliveryHandler := NewDeliveryHandler(deps.Scheduling, deps.History, rv, errs)
	deliveries.Post("/:id/dispatch", dispatchers, deliveryHandler.Dispatch)
	deliveries.Post("/:id/cancel", admins, deliveryHandler.Cancel)
	deliveries.Get("/:id/history", deliveryHandler.History)
	deliveries.Get("/:id/history/stats", deliveryHandler.Stats)

	// Cargas
	loads := protected.Group("/loads")
	loadHandler := NewLoadHandler(deps.Scheduling, deps.Recorder, deps.Finalizer, deps.Presenter, rv, errs)
	loads.Put("/:id/return-weight", dispatchers, loadHandler.ReturnWeight)
	loads.Post("/:id/applications", fieldStaff, RequireIdempotencyKey(), loadHandler.RecordApplication)
	loads.Get("/:id/mass", loadHandler.Mass)
	loads.Post("/:id/finalize", admins, loadHandler.Finalize)

	// Administración
	admin := protected.Group("/admin", admins)
	adminHandler := NewAdminHandler(deps.Auditor, errs)
	admin.Post("/integrity-sweep", adminHandler.Sweep)
}
