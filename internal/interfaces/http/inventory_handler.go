package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Sweeper lo que el handler necesita del scheduler de reposición.
type Sweeper interface {
	Sweep(ctx context.Context, month string) (inventory.SweepReport, error)
}

// InventoryHandler expone el ledger de inventario por HTTP (protegido).
type InventoryHandler struct {
	coord   *inventory.FulfillmentCoordinator
	recon   *inventory.ReconstructionUseCase
	queries *inventory.StockQueryUseCase
	sweeper Sweeper
}

// NewInventoryHandler construye el handler. sweeper puede ser nil.
func NewInventoryHandler(
	coord *inventory.FulfillmentCoordinator,
	recon *inventory.ReconstructionUseCase,
	queries *inventory.StockQueryUseCase,
	sweeper Sweeper,
) *InventoryHandler {
	return &InventoryHandler{coord: coord, recon: recon, queries: queries, sweeper: sweeper}
}

// Assign godoc
// @Summary      Asignar producto a bodega con stock inicial
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AssignRequest  true  "product_id, warehouse_id, quantity, automated_restock"
// @Success      201   {object}  dto.MutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/assign [post]
func (h *InventoryHandler) Assign(c *fiber.Ctx) error {
	var in dto.AssignRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.coord.AssignInitial(c.Context(), entity.StockKey{ProductID: in.ProductID, WarehouseID: in.WarehouseID},
		in.Quantity, in.AutomatedRestock, actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMutation(res))
}

// RemovePairing godoc
// @Summary      Eliminar el par producto/bodega (el historial se conserva)
// @Tags         inventory
// @Security     Bearer
// @Param        product    path  string  true  "ID del producto"
// @Param        warehouse  path  string  true  "ID de la bodega"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product}/{warehouse} [delete]
func (h *InventoryHandler) RemovePairing(c *fiber.Ctx) error {
	if err := h.coord.RemovePairing(c.Context(), pathKey(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetAutomation godoc
// @Summary      Activar o desactivar la reposición automática del par
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Param        product    path  string                 true  "ID del producto"
// @Param        warehouse  path  string                 true  "ID de la bodega"
// @Param        body       body  dto.AutomationRequest  true  "enabled"
// @Success      204
// @Router       /api/inventory/stock/{product}/{warehouse}/automation [patch]
func (h *InventoryHandler) SetAutomation(c *fiber.Ctx) error {
	var in dto.AutomationRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.coord.SetAutomatedRestock(c.Context(), pathKey(c), in.Enabled); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// FulfillOrder godoc
// @Summary      Descontar un pedido (todas las líneas o ninguna)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OrderRequest  true  "order_id, lines"
// @Success      201   {object}  dto.OrderResponse
// @Failure      409   {object}  dto.InsufficientStockResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/orders [post]
func (h *InventoryHandler) FulfillOrder(c *fiber.Ctx) error {
	var in dto.OrderRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	lines := make([]inventory.OrderLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, inventory.OrderLine{ProductID: l.ProductID, WarehouseID: l.WarehouseID, Quantity: l.Quantity})
	}
	results, err := h.coord.FulfillOrder(c.Context(), in.OrderID, lines, actor(c))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.OrderResponse{OrderID: in.OrderID, Lines: make([]dto.MutationResponse, 0, len(results))}
	for _, r := range results {
		out.Lines = append(out.Lines, toMutation(r))
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Restock godoc
// @Summary      Registrar entrada de mercancía
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RestockRequest  true  "product_id, warehouse_id, quantity, reference_id"
// @Success      201   {object}  dto.MutationResponse
// @Router       /api/inventory/restock [post]
func (h *InventoryHandler) Restock(c *fiber.Ctx) error {
	var in dto.RestockRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	source := entity.SourceAPI
	if in.Source != "" {
		source = entity.Source(strings.ToUpper(in.Source))
		if source != entity.SourceAPI && source != entity.SourceImport {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "source: debe ser API o IMPORT"})
		}
	}
	a := actor(c)
	res, err := h.coord.Increment(c.Context(), entity.StockKey{ProductID: in.ProductID, WarehouseID: in.WarehouseID},
		in.Quantity, entity.ActionRestock, inventory.Reference{
			ID:        in.ReferenceID,
			Type:      entity.ReferenceReceipt,
			Source:    source,
			ActorID:   a.ID,
			ActorName: a.Name,
			Notes:     in.Notes,
			Metadata:  in.Metadata,
		})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMutation(res))
}

// Adjust godoc
// @Summary      Ajuste manual o corrección de sistema
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustRequest  true  "product_id, warehouse_id, delta, reason, correction"
// @Success      201   {object}  dto.MutationResponse
// @Failure      409   {object}  dto.InsufficientStockResponse
// @Router       /api/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	action := entity.ActionAdjustment
	if in.Correction {
		action = entity.ActionSystemCorrection
	}
	res, err := h.coord.Adjust(c.Context(), entity.StockKey{ProductID: in.ProductID, WarehouseID: in.WarehouseID},
		in.Delta, in.Reason, actor(c), action)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMutation(res))
}

// Transfer godoc
// @Summary      Transferir stock entre bodegas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_warehouse_id, to_warehouse_id, quantity"
// @Success      201   {object}  dto.TransferResponse
// @Router       /api/inventory/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	a := actor(c)
	out, inRes, err := h.coord.Transfer(c.Context(), in.ProductID, in.FromWarehouseID, in.ToWarehouseID, in.Quantity,
		inventory.Reference{ID: in.ReferenceID, ActorID: a.ID, ActorName: a.Name, Notes: in.Notes})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResponse{Out: toMutation(out), In: toMutation(inRes)})
}

// GetStock godoc
// @Summary      Stock actual del par
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product    path  string  true  "ID del producto"
// @Param        warehouse  path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product}/{warehouse} [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	view, err := h.queries.GetCurrentStock(c.Context(), pathKey(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockResponse{
		ProductID:        view.Key.ProductID,
		WarehouseID:      view.Key.WarehouseID,
		Quantity:         view.Quantity,
		Availability:     string(view.Availability),
		AutomatedRestock: view.AutomatedRestock,
		Quarantined:      view.Quarantined,
		UpdatedAt:        view.UpdatedAt,
	})
}

// ListStock godoc
// @Summary      Listar snapshots
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        product_id    query  string  false  "Filtrar por producto"
// @Param        availability  query  string  false  "OUT_OF_STOCK,LOW_IN_STOCK,IN_STOCK (separadas por coma)"
// @Success      200  {array}  dto.StockResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) ListStock(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return invalidQuery(c, "limit/offset")
	}
	page.DefaultPage()
	f := repository.StockFilter{
		WarehouseID:   c.Query("warehouse_id"),
		ProductID:     c.Query("product_id"),
		AutomatedOnly: c.QueryBool("automated_only", false),
		Limit:         page.Limit,
		Offset:        page.Offset,
	}
	for _, a := range strings.Split(c.Query("availability"), ",") {
		if a = strings.TrimSpace(strings.ToUpper(a)); a != "" {
			f.Availability = append(f.Availability, entity.Availability(a))
		}
	}
	stocks, err := h.queries.ListStock(c.Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockResponse, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, dto.StockResponse{
			ProductID:        s.ProductID,
			WarehouseID:      s.WarehouseID,
			Quantity:         s.Quantity,
			Availability:     string(s.Availability),
			AutomatedRestock: s.AutomatedRestock,
			Quarantined:      s.Quarantined,
			UpdatedAt:        s.UpdatedAt,
		})
	}
	return c.JSON(fiber.Map{"items": out, "limit": page.Limit, "offset": page.Offset})
}

// GetStockAt godoc
// @Summary      Stock reconstruido en un instante
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product    path   string  true  "ID del producto"
// @Param        warehouse  path   string  true  "ID de la bodega"
// @Param        t          query  string  true  "Instante RFC3339"
// @Success      200  {object}  dto.StockAtResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product}/{warehouse}/at [get]
func (h *InventoryHandler) GetStockAt(c *fiber.Ctx) error {
	at, err := parseTime(c.Query("t"))
	if err != nil || at == nil {
		return invalidQuery(c, "t (RFC3339)")
	}
	key := pathKey(c)
	qty, err := h.recon.GetStockAtTime(c.Context(), key, *at)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockAtResponse{ProductID: key.ProductID, WarehouseID: key.WarehouseID, At: *at, Quantity: qty})
}

// GetHistory godoc
// @Summary      Timeline reconstruido del par
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product    path   string  true   "ID del producto"
// @Param        warehouse  path   string  true   "ID de la bodega"
// @Param        from       query  string  false  "Desde (RFC3339)"
// @Param        to         query  string  false  "Hasta (RFC3339)"
// @Success      200  {array}  dto.TimelinePointDTO
// @Router       /api/inventory/stock/{product}/{warehouse}/history [get]
func (h *InventoryHandler) GetHistory(c *fiber.Ctx) error {
	r, err := parseRange(c)
	if err != nil {
		return invalidQuery(c, "from/to (RFC3339)")
	}
	points, err := h.recon.GetHistory(c.Context(), pathKey(c), r)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.TimelinePointDTO, 0, len(points))
	for _, p := range points {
		out = append(out, toPoint(p))
	}
	return c.JSON(out)
}

// GetLastRestock godoc
// @Summary      Última entrada de mercancía del par
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ChangeEventDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product}/{warehouse}/last-restock [get]
func (h *InventoryHandler) GetLastRestock(c *fiber.Ctx) error {
	e, err := h.queries.GetLastRestock(c.Context(), pathKey(c))
	if err != nil {
		return writeError(c, err)
	}
	if e == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el par no tiene entradas registradas"})
	}
	return c.JSON(toEvent(*e))
}

// GetActivity godoc
// @Summary      Actividad reciente de una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "ID de la bodega"
// @Param        limit  query  int     false  "Máximo de eventos (default 20)"
// @Success      200  {array}  dto.ChangeEventDTO
// @Router       /api/inventory/warehouses/{id}/activity [get]
func (h *InventoryHandler) GetActivity(c *fiber.Ctx) error {
	events, err := h.queries.GetRecentActivity(c.Context(), c.Params("id"), c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toEvents(events))
}

// ListEvents godoc
// @Summary      Listado filtrado del ledger
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        product_id    query  string  false  "Producto"
// @Param        action_type   query  string  false  "Tipo de acción"
// @Param        source        query  string  false  "Origen"
// @Param        actor_id      query  string  false  "Operador"
// @Param        q             query  string  false  "Búsqueda libre"
// @Success      200  {array}  dto.ChangeEventDTO
// @Router       /api/inventory/events [get]
func (h *InventoryHandler) ListEvents(c *fiber.Ctx) error {
	r, err := parseRange(c)
	if err != nil {
		return invalidQuery(c, "from/to (RFC3339)")
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return invalidQuery(c, "limit/offset")
	}
	page.DefaultPage()
	events, err := h.queries.ListEvents(c.Context(), repository.EventFilter{
		WarehouseID: c.Query("warehouse_id"),
		ProductID:   c.Query("product_id"),
		ActionType:  entity.ActionType(strings.ToUpper(c.Query("action_type"))),
		Source:      entity.Source(strings.ToUpper(c.Query("source"))),
		ActorID:     c.Query("actor_id"),
		From:        r.From,
		To:          r.To,
		Search:      c.Query("q"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toEvents(events))
}

// FindByReference godoc
// @Summary      Eventos causados por un objeto de negocio
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        type  path  string  true  "ORDER, RECEIPT, TRANSFER, ..."
// @Param        id    path  string  true  "ID de la referencia"
// @Success      200  {array}  dto.ChangeEventDTO
// @Router       /api/inventory/references/{type}/{id} [get]
func (h *InventoryHandler) FindByReference(c *fiber.Ctx) error {
	events, err := h.queries.FindByReference(c.Context(), c.Params("id"), strings.ToUpper(c.Params("type")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toEvents(events))
}

// Audit godoc
// @Summary      Auditar el par contra el ledger
// @Description  Reconstruye desde génesis y compara con el snapshot. Si hay fallas la llave
//
//	queda en cuarentena y responde 500 con el reporte.
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.AuditResponse
// @Failure      500  {object}  dto.AuditResponse
// @Router       /api/inventory/audit/{product}/{warehouse} [post]
func (h *InventoryHandler) Audit(c *fiber.Ctx) error {
	report, err := h.recon.Audit(c.Context(), pathKey(c))
	if err != nil && !errors.Is(err, domain.ErrConsistency) {
		return writeError(c, err)
	}
	out := dto.AuditResponse{
		ProductID:   report.Key.ProductID,
		WarehouseID: report.Key.WarehouseID,
		Replayed:    report.Replayed,
		Snapshot:    report.Snapshot,
		EventCount:  report.EventCount,
		Consistent:  len(report.Faults) == 0,
		Quarantined: report.Quarantined,
		Faults:      make([]dto.ConsistencyFaultDTO, 0, len(report.Faults)),
	}
	for _, f := range report.Faults {
		out.Faults = append(out.Faults, dto.ConsistencyFaultDTO{
			EventID: f.EventID, At: f.At, Expected: f.Expected, Recorded: f.Recorded, Reason: f.Reason,
		})
	}
	status := fiber.StatusOK
	if !out.Consistent {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(out)
}

// Export godoc
// @Summary      Exportar el timeline reconstruido (paginado)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        product_id    query  string  false  "Producto"
// @Param        from          query  string  false  "Desde (RFC3339)"
// @Param        to            query  string  false  "Hasta (RFC3339)"
// @Success      200  {object}  dto.ExportResponse
// @Router       /api/inventory/export [get]
func (h *InventoryHandler) Export(c *fiber.Ctx) error {
	r, err := parseRange(c)
	if err != nil {
		return invalidQuery(c, "from/to (RFC3339)")
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return invalidQuery(c, "limit/offset")
	}
	result, err := h.recon.ExportTimeline(c.Context(), inventory.ExportFilter{
		WarehouseID: c.Query("warehouse_id"),
		ProductID:   c.Query("product_id"),
		From:        r.From,
		To:          r.To,
	}, page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.ExportResponse{
		Rows:         make([]dto.ExportRowDTO, 0, len(result.Rows)),
		PageResponse: dto.PageResponse{Limit: result.Limit, Offset: result.Offset, Total: result.Total},
	}
	for _, row := range result.Rows {
		out.Rows = append(out.Rows, dto.ExportRowDTO{
			TimelinePointDTO: toPoint(row.TimelinePoint),
			ProductSKU:       row.ProductSKU,
			ProductTitle:     row.ProductTitle,
			WarehouseName:    row.WarehouseName,
		})
	}
	return c.JSON(out)
}

// Sweep godoc
// @Summary      Ejecutar el barrido de reposición automática
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        month  query  string  false  "Mes de predicción yyyyMM (default: actual)"
// @Success      200  {object}  dto.SweepResponse
// @Router       /api/inventory/restock/sweep [post]
func (h *InventoryHandler) Sweep(c *fiber.Ctx) error {
	if h.sweeper == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "RESTOCK_DISABLED", Message: "la reposición automática no está habilitada"})
	}
	month := c.Query("month")
	if month != "" {
		if _, err := time.Parse(inventory.MonthLayout, month); err != nil {
			return invalidQuery(c, "month (yyyyMM)")
		}
	}
	report, err := h.sweeper.Sweep(c.Context(), month)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SweepResponse{
		Month:       report.Month,
		Candidates:  report.Candidates,
		Restocked:   report.Restocked,
		Satisfied:   report.Satisfied,
		Quarantined: report.Quarantined,
		Failed:      report.Failed,
		Units:       report.Units,
	})
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// writeError traduce la taxonomía de errores del dominio a HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var ise *domain.InsufficientStockError
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ise):
		return c.Status(fiber.StatusConflict).JSON(dto.InsufficientStockResponse{
			ErrorResponse: dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()},
			ProductID:     ise.ProductID,
			WarehouseID:   ise.WarehouseID,
			Requested:     ise.Requested,
			Available:     ise.Available,
			Shortfall:     ise.Shortfall(),
		})
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: ve.Error()})
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "par producto/bodega no encontrado"})
	case errors.Is(err, domain.ErrAlreadyAssigned):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_ASSIGNED", Message: "el producto ya está asignado a la bodega"})
	case errors.Is(err, domain.ErrContention):
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "CONTENTION", Message: "llave ocupada, reintente"})
	case errors.Is(err, domain.ErrConsistency):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "CONSISTENCY", Message: "inconsistencia de inventario: la llave quedó en revisión"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func invalidQuery(c *fiber.Ctx, param string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetro inválido: " + param})
}

func actor(c *fiber.Ctx) inventory.Actor {
	return inventory.Actor{ID: GetUserID(c), Name: GetUserName(c)}
}

func pathKey(c *fiber.Ctx) entity.StockKey {
	return entity.StockKey{ProductID: c.Params("product"), WarehouseID: c.Params("warehouse")}
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func parseRange(c *fiber.Ctx) (entity.TimeRange, error) {
	from, err := parseTime(c.Query("from"))
	if err != nil {
		return entity.TimeRange{}, err
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		return entity.TimeRange{}, err
	}
	return entity.TimeRange{From: from, To: to}, nil
}

func toMutation(r *inventory.Result) dto.MutationResponse {
	return dto.MutationResponse{
		ProductID:        r.Key.ProductID,
		WarehouseID:      r.Key.WarehouseID,
		PreviousQuantity: r.PreviousQuantity,
		NewQuantity:      r.NewQuantity,
		Availability:     string(r.Availability),
		EventID:          r.EventID,
		Timestamp:        r.Timestamp,
	}
}

func toPoint(p entity.TimelinePoint) dto.TimelinePointDTO {
	return dto.TimelinePointDTO{
		ProductID:      p.ProductID,
		WarehouseID:    p.WarehouseID,
		EventID:        p.EventID,
		Timestamp:      p.Timestamp,
		ActionType:     string(p.ActionType),
		QuantityChange: p.QuantityChange,
		Balance:        p.Balance,
	}
}

func toEvent(e entity.ChangeEvent) dto.ChangeEventDTO {
	return dto.ChangeEventDTO{
		ID:               e.ID,
		ProductID:        e.ProductID,
		WarehouseID:      e.WarehouseID,
		ActionType:       string(e.ActionType),
		QuantityChange:   e.QuantityChange,
		PreviousQuantity: e.PreviousQuantity,
		NewQuantity:      e.NewQuantity,
		Source:           string(e.Source),
		ReferenceID:      e.ReferenceID,
		ReferenceType:    e.ReferenceType,
		ActorID:          e.ActorID,
		ActorName:        e.ActorName,
		Timestamp:        e.Timestamp,
		Notes:            e.Notes,
		Metadata:         e.Metadata,
	}
}

func toEvents(events []entity.ChangeEvent) []dto.ChangeEventDTO {
	out := make([]dto.ChangeEventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, toEvent(e))
	}
	return out
}
