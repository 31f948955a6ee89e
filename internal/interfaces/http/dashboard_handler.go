package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/inventario-ledger/internal/application/analytics"
)

// DashboardHandler maneja el resumen por bodega.
type DashboardHandler struct {
	uc *appanalytics.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary devuelve el estado del snapshot y los movimientos del día y del mes.
// GET /api/inventory/warehouses/:id/dashboard
//
// Respuesta: DashboardSummaryDTO (pairs, units, conteos por disponibilidad,
// today_in/out, month_in/out, top_movers[5], date_label).
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.uc.GetSummary(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}
