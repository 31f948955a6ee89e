// Package memory implementa los repositorios del ledger en memoria.
// Sirve para desarrollo local (LEDGER_STORE_DRIVER=memory) y para los tests de
// los casos de uso y de los handlers HTTP.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Store estado compartido por los repositorios en memoria.
type Store struct {
	mu         sync.RWMutex
	events     []entity.ChangeEvent
	stocks     map[entity.StockKey]entity.Stock
	products   map[string]entity.ProductInfo
	warehouses map[string]entity.WarehouseInfo
	forecasts  map[string]entity.DemandForecast
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		stocks:     make(map[entity.StockKey]entity.Stock),
		products:   make(map[string]entity.ProductInfo),
		warehouses: make(map[string]entity.WarehouseInfo),
		forecasts:  make(map[string]entity.DemandForecast),
	}
}

// Events repositorio del ledger fuera de transacción.
func (s *Store) Events() repository.ChangeEventRepository {
	return &ChangeEventRepository{store: s}
}

// Stocks repositorio de snapshots fuera de transacción.
func (s *Store) Stocks() repository.StockRepository {
	return &StockRepository{store: s}
}

// Catalog repositorio de productos y bodegas.
func (s *Store) Catalog() repository.CatalogRepository {
	return &CatalogRepository{store: s}
}

// Forecasts repositorio de predicciones.
func (s *Store) Forecasts() repository.ForecastRepository {
	return &ForecastRepository{store: s}
}

// PutProduct registra un producto del catálogo.
func (s *Store) PutProduct(p entity.ProductInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// PutWarehouse registra una bodega.
func (s *Store) PutWarehouse(w entity.WarehouseInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[w.ID] = w
}

// PutForecast registra la predicción de un mes.
func (s *Store) PutForecast(f entity.DemandForecast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts[forecastKey(f.Month, f.WarehouseID, f.ProductID)] = f
}

func forecastKey(month, warehouseID, productID string) string {
	return month + "|" + warehouseID + "|" + productID
}

// ─── TxRunner ────────────────────────────────────────────────────────────────

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner confirma todas las escrituras de fn juntas o ninguna. Las escrituras se
// acumulan en un área temporal y se aplican al store al terminar fn sin error.
// La serialización por llave la aporta el KeyLocker del coordinador.
type TxRunner struct {
	store *Store
}

// NewTxRunner crea el runner sobre el store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn con repositorios atados a la transacción.
func (r *TxRunner) Run(ctx context.Context, fn func(
	eventRepo repository.ChangeEventRepository,
	stockRepo repository.StockRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &txState{stocks: make(map[entity.StockKey]*entity.Stock)}
	if err := fn(
		&ChangeEventRepository{store: r.store, tx: tx},
		&StockRepository{store: r.store, tx: tx},
	); err != nil {
		return err
	}
	r.store.commit(tx)
	return nil
}

// txState escrituras pendientes. Un *Stock nil en stocks marca un borrado.
type txState struct {
	events []entity.ChangeEvent
	stocks map[entity.StockKey]*entity.Stock
}

func (s *Store) commit(tx *txState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, tx.events...)
	for key, st := range tx.stocks {
		if st == nil {
			delete(s.stocks, key)
			continue
		}
		s.stocks[key] = *st
	}
}
