package inventory

import (
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ValidateEvent reglas de frontera del ledger; todo adaptador las aplica antes de persistir.
func ValidateEvent(e *entity.ChangeEvent) error {
	if e == nil {
		return domain.NewValidationError("event", "es nulo")
	}
	if e.ProductID == "" {
		return domain.NewValidationError("product_id", "es requerido")
	}
	if e.WarehouseID == "" {
		return domain.NewValidationError("warehouse_id", "es requerido")
	}
	if e.ActionType == "" {
		return domain.NewValidationError("action_type", "es requerido")
	}
	if !e.ActionType.Valid() {
		return domain.NewValidationError("action_type", "desconocido: "+string(e.ActionType))
	}
	// Asignación inicial y corrección de sistema admiten delta 0; el resto debe mover stock.
	if e.QuantityChange == 0 && e.ActionType != entity.ActionProductAssign && e.ActionType != entity.ActionSystemCorrection {
		return domain.NewValidationError("quantity_change", "es requerido")
	}
	if e.Source != "" && !e.Source.Valid() {
		return domain.NewValidationError("source", "desconocido: "+string(e.Source))
	}
	if e.NewQuantity != e.PreviousQuantity+e.QuantityChange {
		return domain.NewValidationError("new_quantity", "debe ser previous_quantity + quantity_change")
	}
	if e.Timestamp.IsZero() {
		return domain.NewValidationError("timestamp", "es requerido")
	}
	return nil
}
