package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepository)(nil)

// StockRepository snapshots en memoria.
type StockRepository struct {
	store *Store
	tx    *txState
}

func (r *StockRepository) Get(ctx context.Context, key entity.StockKey) (*entity.Stock, error) {
	if r.tx != nil {
		if st, ok := r.tx.stocks[key]; ok {
			if st == nil {
				return nil, nil
			}
			cp := *st
			return &cp, nil
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	st, ok := r.store.stocks[key]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// GetForUpdate igual que Get: en memoria la exclusión la da el KeyLocker.
func (r *StockRepository) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.Stock, error) {
	return r.Get(ctx, key)
}

func (r *StockRepository) Create(ctx context.Context, stock *entity.Stock) error {
	existing, err := r.Get(ctx, stock.Key())
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrAlreadyAssigned
	}
	return r.put(stock.Key(), stock)
}

func (r *StockRepository) Update(ctx context.Context, stock *entity.Stock) error {
	existing, err := r.Get(ctx, stock.Key())
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return r.put(stock.Key(), stock)
}

func (r *StockRepository) Delete(ctx context.Context, key entity.StockKey) error {
	existing, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return r.put(key, nil)
}

func (r *StockRepository) List(ctx context.Context, f repository.StockFilter) ([]*entity.Stock, error) {
	r.store.mu.RLock()
	merged := make(map[entity.StockKey]*entity.Stock, len(r.store.stocks))
	for k, st := range r.store.stocks {
		cp := st
		merged[k] = &cp
	}
	r.store.mu.RUnlock()
	if r.tx != nil {
		for k, st := range r.tx.stocks {
			if st == nil {
				delete(merged, k)
				continue
			}
			cp := *st
			merged[k] = &cp
		}
	}

	out := make([]*entity.Stock, 0, len(merged))
	for _, st := range merged {
		if matchStock(st, f) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *StockRepository) put(key entity.StockKey, stock *entity.Stock) error {
	var cp *entity.Stock
	if stock != nil {
		v := *stock
		cp = &v
	}
	if r.tx != nil {
		r.tx.stocks[key] = cp
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if cp == nil {
		delete(r.store.stocks, key)
		return nil
	}
	r.store.stocks[key] = *cp
	return nil
}

func matchStock(st *entity.Stock, f repository.StockFilter) bool {
	if f.WarehouseID != "" && st.WarehouseID != f.WarehouseID {
		return false
	}
	if f.ProductID != "" && st.ProductID != f.ProductID {
		return false
	}
	if f.AutomatedOnly && !st.AutomatedRestock {
		return false
	}
	if len(f.Availability) == 0 {
		return true
	}
	for _, a := range f.Availability {
		if st.Availability == a {
			return true
		}
	}
	return false
}
