package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// CatalogRepository consultas de solo lectura de productos y bodegas.
// Devuelve nil (sin error) cuando el recurso no existe.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id string) (*entity.ProductInfo, error)
	GetWarehouse(ctx context.Context, id string) (*entity.WarehouseInfo, error)
}
