package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/kardex/internal/application/inventory"
	"github.com/jhoicas/kardex/internal/application/stock"
	"github.com/jhoicas/kardex/pkg/logger"
)

// Roles con permiso de escritura en el libro.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Query        *stock.QueryEngine
	Orchestrator *inventory.Orchestrator
	JWTSecret    string
	Logger       *logger.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token; la sucursal sale del token.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	stockHandler := NewStockHandler(deps.Query, log.Component("http_stock"))
	stockGroup := api.Group("/stock")
	stockGroup.Get("/:product_id", stockHandler.CurrentQuantity)
	stockGroup.Get("/:product_id/warehouses", stockHandler.Breakdown)
	stockGroup.Get("/:product_id/availability", stockHandler.Availability)
	stockGroup.Get("/:product_id/value", stockHandler.Value)
	stockGroup.Get("/:product_id/movements", stockHandler.History)
	api.Get("/transfers/:id", stockHandler.Transfer)

	movementHandler := NewMovementHandler(deps.Orchestrator, log.Component("http_movements"))
	movements := api.Group("/movements", RequireRole(RoleAdmin, RoleBodeguero))
	movements.Post("/adjustments", movementHandler.Adjust)
	movements.Post("/transfers", movementHandler.Transfer)
}
