package memory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var (
	_ repository.CatalogRepository  = (*CatalogRepository)(nil)
	_ repository.ForecastRepository = (*ForecastRepository)(nil)
)

// CatalogRepository productos y bodegas registrados con PutProduct/PutWarehouse.
type CatalogRepository struct {
	store *Store
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*entity.ProductInfo, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *CatalogRepository) GetWarehouse(ctx context.Context, id string) (*entity.WarehouseInfo, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// ForecastRepository predicciones registradas con PutForecast.
type ForecastRepository struct {
	store *Store
}

func (r *ForecastRepository) Get(ctx context.Context, month, warehouseID, productID string) (*entity.DemandForecast, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	f, ok := r.store.forecasts[forecastKey(month, warehouseID, productID)]
	if !ok {
		return nil, nil
	}
	return &f, nil
}
