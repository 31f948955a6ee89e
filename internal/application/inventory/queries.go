package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 500
)

// StockView stock actual expuesto a los colaboradores.
type StockView struct {
	Key              entity.StockKey
	Quantity         int64
	Availability     entity.Availability
	AutomatedRestock bool
	Quarantined      bool
	UpdatedAt        time.Time
}

// StockQueryUseCase lecturas del snapshot y del ledger (sin bloqueos).
type StockQueryUseCase struct {
	eventRepo repository.ChangeEventRepository
	stockRepo repository.StockRepository
}

// NewStockQueryUseCase construye el caso de uso.
func NewStockQueryUseCase(eventRepo repository.ChangeEventRepository, stockRepo repository.StockRepository) *StockQueryUseCase {
	return &StockQueryUseCase{eventRepo: eventRepo, stockRepo: stockRepo}
}

// GetCurrentStock cantidad y disponibilidad actuales; domain.ErrNotFound si el par no existe.
func (uc *StockQueryUseCase) GetCurrentStock(ctx context.Context, key entity.StockKey) (*StockView, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	s, err := uc.stockRepo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return &StockView{
		Key:              key,
		Quantity:         s.Quantity,
		Availability:     s.Availability,
		AutomatedRestock: s.AutomatedRestock,
		Quarantined:      s.Quarantined,
		UpdatedAt:        s.UpdatedAt,
	}, nil
}

// ListStock snapshots según filtro.
func (uc *StockQueryUseCase) ListStock(ctx context.Context, f repository.StockFilter) ([]*entity.Stock, error) {
	return uc.stockRepo.List(ctx, f)
}

// GetRecentActivity últimos limit eventos de la bodega, más reciente primero.
func (uc *StockQueryUseCase) GetRecentActivity(ctx context.Context, warehouseID string, limit int) ([]entity.ChangeEvent, error) {
	if warehouseID == "" {
		return nil, domain.NewValidationError("warehouse_id", "es requerido")
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	return uc.eventRepo.FindRecentByWarehouse(ctx, warehouseID, limit)
}

// GetLastRestock último RESTOCK de la llave (nil si nunca se repuso).
func (uc *StockQueryUseCase) GetLastRestock(ctx context.Context, key entity.StockKey) (*entity.ChangeEvent, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return uc.eventRepo.FindLatestByKeyAndAction(ctx, key, entity.ActionRestock)
}

// FindByReference eventos causados por un objeto de negocio (pedido, recibo, ajuste).
func (uc *StockQueryUseCase) FindByReference(ctx context.Context, referenceID, referenceType string) ([]entity.ChangeEvent, error) {
	if referenceID == "" {
		return nil, domain.NewValidationError("reference_id", "es requerido")
	}
	return uc.eventRepo.FindByReference(ctx, referenceID, referenceType)
}

// ListEvents listado filtrado del ledger.
func (uc *StockQueryUseCase) ListEvents(ctx context.Context, f repository.EventFilter) ([]entity.ChangeEvent, error) {
	if f.Limit <= 0 {
		f.Limit = defaultActivityLimit
	}
	if f.Limit > maxActivityLimit {
		f.Limit = maxActivityLimit
	}
	return uc.eventRepo.FindAll(ctx, f)
}
