package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// EventFilter filtros del listado de eventos del ledger (todos opcionales).
type EventFilter struct {
	WarehouseID string
	ProductID   string
	ActionType  entity.ActionType
	Source      entity.Source
	ActorID     string
	From        *time.Time
	To          *time.Time
	Search      string // texto libre sobre notas, actor y referencia
	Limit       int
	Offset      int
}

// ChangeEventRepository puerto del ledger append-only (DIP).
// No expone update ni delete: las correcciones se registran como eventos nuevos.
// Los appends concurrentes sobre una misma llave solo son seguros a través del
// coordinador de inventario.
type ChangeEventRepository interface {
	// Append valida y persiste el evento; asigna ID si viene vacío y lo devuelve.
	Append(ctx context.Context, event *entity.ChangeEvent) (string, error)
	// FindByKey eventos de la llave en orden (timestamp, id) dentro del rango.
	FindByKey(ctx context.Context, key entity.StockKey, r entity.TimeRange) ([]entity.ChangeEvent, error)
	FindByReference(ctx context.Context, referenceID, referenceType string) ([]entity.ChangeEvent, error)
	// FindLatestByKeyAndAction devuelve nil si no hay eventos de ese tipo.
	FindLatestByKeyAndAction(ctx context.Context, key entity.StockKey, action entity.ActionType) (*entity.ChangeEvent, error)
	// FindRecentByWarehouse los últimos limit eventos de la bodega, más reciente primero.
	FindRecentByWarehouse(ctx context.Context, warehouseID string, limit int) ([]entity.ChangeEvent, error)
	// FindAll listado filtrado y paginado en orden (timestamp, id).
	FindAll(ctx context.Context, f EventFilter) ([]entity.ChangeEvent, error)
}
