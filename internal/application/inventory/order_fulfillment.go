package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// OrderLine línea de pedido a descontar de una bodega.
type OrderLine struct {
	ProductID   string
	WarehouseID string
	Quantity    int64
}

// FulfillOrder descuenta todas las líneas del pedido en una sola transacción, con las
// llaves bloqueadas en orden. Si una línea no se puede cumplir el pedido completo se
// rechaza y no se escribe ningún evento.
func (c *FulfillmentCoordinator) FulfillOrder(ctx context.Context, orderID string, lines []OrderLine, actor Actor) ([]*Result, error) {
	if orderID == "" {
		return nil, domain.NewValidationError("order_id", "es requerido")
	}
	if len(lines) == 0 {
		return nil, domain.NewValidationError("lines", "el pedido no tiene líneas")
	}

	keys := make([]entity.StockKey, 0, len(lines))
	for i, line := range lines {
		key := entity.StockKey{ProductID: line.ProductID, WarehouseID: line.WarehouseID}
		if err := validateKey(key); err != nil {
			return nil, fmt.Errorf("línea %d: %w", i+1, err)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("línea %d: %w", i+1, domain.NewValidationError("quantity", "debe ser mayor que cero"))
		}
		keys = append(keys, key)
	}
	keys = entity.SortKeys(keys)

	ref := Reference{
		ID:        orderID,
		Type:      entity.ReferenceOrder,
		Source:    entity.SourceAPI,
		ActorID:   actor.ID,
		ActorName: actor.Name,
	}
	return c.mutate(ctx, keys, func(eventRepo repository.ChangeEventRepository, stockRepo repository.StockRepository) ([]*Result, error) {
		// Filas bloqueadas en el mismo orden que el KeyLocker.
		locked := make(map[entity.StockKey]*entity.Stock, len(keys))
		for _, k := range keys {
			s, err := lockStock(ctx, stockRepo, k)
			if err != nil {
				return nil, err
			}
			locked[k] = s
		}
		results := make([]*Result, 0, len(lines))
		for i, line := range lines {
			key := entity.StockKey{ProductID: line.ProductID, WarehouseID: line.WarehouseID}
			res, err := c.apply(ctx, eventRepo, stockRepo, locked[key], -line.Quantity, entity.ActionOrder, ref)
			if err != nil {
				return nil, fmt.Errorf("línea %d (%s): %w", i+1, key, err)
			}
			results = append(results, res)
		}
		return results, nil
	})
}
