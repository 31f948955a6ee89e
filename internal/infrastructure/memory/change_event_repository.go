package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.ChangeEventRepository = (*ChangeEventRepository)(nil)

// ChangeEventRepository ledger append-only en memoria.
type ChangeEventRepository struct {
	store *Store
	tx    *txState
}

// Append valida y agrega el evento. Asigna un UUIDv7 si no trae ID.
func (r *ChangeEventRepository) Append(ctx context.Context, event *entity.ChangeEvent) (string, error) {
	if err := inventory.ValidateEvent(event); err != nil {
		return "", err
	}
	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generar id de evento: %w", err)
		}
		event.ID = id.String()
	}
	e := cloneEvent(*event)
	if r.tx != nil {
		r.tx.events = append(r.tx.events, e)
		return e.ID, nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events = append(r.store.events, e)
	return e.ID, nil
}

// FindByKey eventos de la llave dentro del rango, en orden (timestamp, id).
func (r *ChangeEventRepository) FindByKey(ctx context.Context, key entity.StockKey, tr entity.TimeRange) ([]entity.ChangeEvent, error) {
	return r.filter(func(e *entity.ChangeEvent) bool {
		return e.Key() == key && tr.Contains(e.Timestamp)
	}), nil
}

func (r *ChangeEventRepository) FindByReference(ctx context.Context, referenceID, referenceType string) ([]entity.ChangeEvent, error) {
	return r.filter(func(e *entity.ChangeEvent) bool {
		return e.ReferenceID == referenceID && (referenceType == "" || e.ReferenceType == referenceType)
	}), nil
}

func (r *ChangeEventRepository) FindLatestByKeyAndAction(ctx context.Context, key entity.StockKey, action entity.ActionType) (*entity.ChangeEvent, error) {
	return last(r.filter(func(e *entity.ChangeEvent) bool {
		return e.Key() == key && e.ActionType == action
	})), nil
}

// FindRecentByWarehouse más reciente primero.
func (r *ChangeEventRepository) FindRecentByWarehouse(ctx context.Context, warehouseID string, limit int) ([]entity.ChangeEvent, error) {
	events := r.filter(func(e *entity.ChangeEvent) bool { return e.WarehouseID == warehouseID })
	out := make([]entity.ChangeEvent, 0, len(events))
	for i := len(events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, events[i])
	}
	return out, nil
}

func (r *ChangeEventRepository) FindAll(ctx context.Context, f repository.EventFilter) ([]entity.ChangeEvent, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	window := entity.TimeRange{From: f.From, To: f.To}
	events := r.filter(func(e *entity.ChangeEvent) bool {
		switch {
		case f.WarehouseID != "" && e.WarehouseID != f.WarehouseID,
			f.ProductID != "" && e.ProductID != f.ProductID,
			f.ActionType != "" && e.ActionType != f.ActionType,
			f.Source != "" && e.Source != f.Source,
			f.ActorID != "" && e.ActorID != f.ActorID,
			!window.Contains(e.Timestamp):
			return false
		}
		if search == "" {
			return true
		}
		return strings.Contains(strings.ToLower(e.Notes), search) ||
			strings.Contains(strings.ToLower(e.ActorName), search) ||
			strings.Contains(strings.ToLower(e.ReferenceID), search)
	})
	return paginate(events, f.Limit, f.Offset), nil
}

// filter copia los eventos confirmados (y los de la tx en curso) que cumplen match.
func (r *ChangeEventRepository) filter(match func(*entity.ChangeEvent) bool) []entity.ChangeEvent {
	r.store.mu.RLock()
	var out []entity.ChangeEvent
	for i := range r.store.events {
		if match(&r.store.events[i]) {
			out = append(out, cloneEvent(r.store.events[i]))
		}
	}
	r.store.mu.RUnlock()
	if r.tx != nil {
		for i := range r.tx.events {
			if match(&r.tx.events[i]) {
				out = append(out, cloneEvent(r.tx.events[i]))
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	return out
}

func last(events []entity.ChangeEvent) *entity.ChangeEvent {
	if len(events) == 0 {
		return nil
	}
	e := events[len(events)-1]
	return &e
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneEvent(e entity.ChangeEvent) entity.ChangeEvent {
	if e.Metadata != nil {
		m := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			m[k] = v
		}
		e.Metadata = m
	}
	return e
}
