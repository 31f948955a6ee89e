package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/inventario-ledger/internal/application/analytics"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Coordinator    *inventory.FulfillmentCoordinator
	Reconstruction *inventory.ReconstructionUseCase
	Queries        *inventory.StockQueryUseCase
	Sweeper        Sweeper // nil si la reposición automática está deshabilitada
	Dashboard      *appanalytics.DashboardUseCase
	JWTSecret      string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	inv := app.Group("/api/inventory", AuthMiddleware(deps.JWTSecret))
	h := NewInventoryHandler(deps.Coordinator, deps.Reconstruction, deps.Queries, deps.Sweeper)

	operators := RequireRole(RoleAdmin, RoleBodeguero, RoleSistema)
	admins := RequireRole(RoleAdmin)
	system := RequireRole(RoleAdmin, RoleSistema)

	// Mutaciones
	inv.Post("/assign", admins, h.Assign)
	inv.Post("/orders", system, h.FulfillOrder)
	inv.Post("/restock", operators, h.Restock)
	inv.Post("/adjust", RequireRole(RoleAdmin, RoleBodeguero), h.Adjust)
	inv.Post("/transfer", RequireRole(RoleAdmin, RoleBodeguero), h.Transfer)
	inv.Post("/restock/sweep", system, h.Sweep)

	// Snapshot y reconstrucción
	inv.Get("/stock", operators, h.ListStock)
	inv.Get("/stock/:product/:warehouse", operators, h.GetStock)
	inv.Delete("/stock/:product/:warehouse", admins, h.RemovePairing)
	inv.Patch("/stock/:product/:warehouse/automation", admins, h.SetAutomation)
	inv.Get("/stock/:product/:warehouse/at", operators, h.GetStockAt)
	inv.Get("/stock/:product/:warehouse/history", operators, h.GetHistory)
	inv.Get("/stock/:product/:warehouse/last-restock", operators, h.GetLastRestock)

	// Ledger
	inv.Get("/warehouses/:id/activity", operators, h.GetActivity)
	if deps.Dashboard != nil {
		inv.Get("/warehouses/:id/dashboard", operators, NewDashboardHandler(deps.Dashboard).GetSummary)
	}
	inv.Get("/events", operators, h.ListEvents)
	inv.Get("/references/:type/:id", operators, h.FindByReference)

	// Auditoría y exportación
	inv.Post("/audit/:product/:warehouse", admins, h.Audit)
	inv.Get("/export", admins, h.Export)
}
