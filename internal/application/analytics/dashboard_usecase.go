// Package analytics contiene los casos de uso de reportes sobre el snapshot y el
// ledger de inventario (solo lectura).
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

const dashboardTopMovers = 5 // productos en el widget de mayor salida

// DashboardUseCase genera el resumen de una bodega: estado del snapshot y
// movimientos del día y del mes en curso.
//
// Fuente de datos: StockRepository y ChangeEventRepository (consultas read-only,
// sin bloqueos).
type DashboardUseCase struct {
	stockRepo repository.StockRepository
	eventRepo repository.ChangeEventRepository
	now       func() time.Time
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(stockRepo repository.StockRepository, eventRepo repository.ChangeEventRepository) *DashboardUseCase {
	return &DashboardUseCase{stockRepo: stockRepo, eventRepo: eventRepo, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *DashboardUseCase) WithClock(now func() time.Time) *DashboardUseCase {
	uc.now = now
	return uc
}

// GetSummary construye el DashboardSummaryDTO de la bodega indicada.
//
// Tres llamadas en paralelo:
//  1. List(bodega)              → conteos por disponibilidad, unidades, cuarentenas
//  2. FindAll(bodega, hoy)      → entradas y salidas del día
//  3. FindAll(bodega, mes)      → entradas, salidas y productos de mayor salida
func (uc *DashboardUseCase) GetSummary(ctx context.Context, warehouseID string) (*dto.DashboardSummaryDTO, error) {
	if warehouseID == "" {
		return nil, domain.NewValidationError("warehouse_id", "es requerido")
	}
	now := uc.now().UTC()

	// ── Rangos de fecha ────────────────────────────────────────────────────────
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	type stocksResult struct {
		stocks []*entity.Stock
		err    error
	}
	type eventsResult struct {
		events []entity.ChangeEvent
		err    error
	}

	stocksCh := make(chan stocksResult, 1)
	todayCh := make(chan eventsResult, 1)
	monthCh := make(chan eventsResult, 1)

	go func() {
		s, err := uc.stockRepo.List(ctx, repository.StockFilter{WarehouseID: warehouseID})
		stocksCh <- stocksResult{s, err}
	}()
	go func() {
		e, err := uc.eventRepo.FindAll(ctx, repository.EventFilter{WarehouseID: warehouseID, From: &todayStart, To: &now})
		todayCh <- eventsResult{e, err}
	}()
	go func() {
		e, err := uc.eventRepo.FindAll(ctx, repository.EventFilter{WarehouseID: warehouseID, From: &monthStart, To: &now})
		monthCh <- eventsResult{e, err}
	}()

	stocks := <-stocksCh
	today := <-todayCh
	month := <-monthCh

	if stocks.err != nil {
		return nil, fmt.Errorf("dashboard: snapshot: %w", stocks.err)
	}
	if today.err != nil {
		return nil, fmt.Errorf("dashboard: movimientos de hoy: %w", today.err)
	}
	if month.err != nil {
		return nil, fmt.Errorf("dashboard: movimientos del mes: %w", month.err)
	}

	out := &dto.DashboardSummaryDTO{WarehouseID: warehouseID, DateLabel: monthLabel(now)}
	for _, s := range stocks.stocks {
		out.Pairs++
		out.Units += s.Quantity
		switch s.Availability {
		case entity.AvailabilityOutOfStock:
			out.OutOfStock++
		case entity.AvailabilityLow:
			out.LowInStock++
		default:
			out.InStock++
		}
		if s.Quarantined {
			out.Quarantined++
		}
	}
	out.TodayIn, out.TodayOut = flows(today.events)
	out.MonthIn, out.MonthOut = flows(month.events)
	out.TopMovers = topMovers(month.events, dashboardTopMovers)
	return out, nil
}

// flows suma unidades que entraron y salieron (salidas en positivo).
func flows(events []entity.ChangeEvent) (in, out int64) {
	for _, e := range events {
		if e.QuantityChange > 0 {
			in += e.QuantityChange
		} else {
			out -= e.QuantityChange
		}
	}
	return in, out
}

// topMovers productos con más unidades despachadas por pedidos.
func topMovers(events []entity.ChangeEvent, n int) []dto.TopMoverDTO {
	units := make(map[string]int64)
	for _, e := range events {
		if e.ActionType == entity.ActionOrder {
			units[e.ProductID] -= e.QuantityChange
		}
	}
	movers := make([]dto.TopMoverDTO, 0, len(units))
	for id, u := range units {
		movers = append(movers, dto.TopMoverDTO{ProductID: id, Units: u})
	}
	sort.Slice(movers, func(i, j int) bool {
		if movers[i].Units != movers[j].Units {
			return movers[i].Units > movers[j].Units
		}
		return movers[i].ProductID < movers[j].ProductID
	})
	if len(movers) > n {
		movers = movers[:n]
	}
	return movers
}

// monthLabel devuelve una etiqueta legible del mes, ej: "Febrero 2026".
func monthLabel(t time.Time) string {
	months := [...]string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
	return fmt.Sprintf("%s %d", months[t.Month()-1], t.Year())
}
