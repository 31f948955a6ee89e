package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockFilter filtros para listar snapshots.
type StockFilter struct {
	WarehouseID   string
	ProductID     string
	Availability  []entity.Availability
	AutomatedOnly bool
	Limit         int
	Offset        int
}

// StockRepository define el puerto para consultar/actualizar el snapshot por bodega+producto.
// Usado dentro de transacciones junto al ledger para garantizar consistencia.
type StockRepository interface {
	// Get devuelve nil si el par (producto, bodega) no existe.
	Get(ctx context.Context, key entity.StockKey) (*entity.Stock, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.Stock, error)
	// Create falla con domain.ErrAlreadyAssigned si el par ya existe.
	Create(ctx context.Context, stock *entity.Stock) error
	Update(ctx context.Context, stock *entity.Stock) error
	// Delete elimina el par; los eventos históricos se conservan.
	Delete(ctx context.Context, key entity.StockKey) error
	List(ctx context.Context, f StockFilter) ([]*entity.Stock, error)
}
