package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Timeline saldos acumulados de una llave en orden (timestamp, id).
type Timeline struct {
	Key      entity.StockKey
	Baseline int64
	Points   []entity.TimelinePoint
}

// Final saldo tras el último evento (o el saldo inicial si no hay eventos).
func (t Timeline) Final() int64 {
	if len(t.Points) == 0 {
		return t.Baseline
	}
	return t.Points[len(t.Points)-1].Balance
}

// BalanceAt saldo del último punto con Timestamp <= at; si no hay, el saldo inicial.
func (t Timeline) BalanceAt(at time.Time) int64 {
	i := sort.Search(len(t.Points), func(i int) bool {
		return t.Points[i].Timestamp.After(at)
	})
	if i == 0 {
		return t.Baseline
	}
	return t.Points[i-1].Balance
}

// Checkpoint posición de reanudación al final del timeline.
func (t Timeline) Checkpoint() entity.Checkpoint {
	cp := entity.Checkpoint{Key: t.Key, Balance: t.Final()}
	if n := len(t.Points); n > 0 {
		cp.At = t.Points[n-1].Timestamp
		cp.EventID = t.Points[n-1].EventID
	}
	return cp
}

// GroupByKey agrupa eventos por (producto, bodega).
func GroupByKey(events []entity.ChangeEvent) map[entity.StockKey][]entity.ChangeEvent {
	groups := make(map[entity.StockKey][]entity.ChangeEvent)
	for _, e := range events {
		k := e.Key()
		groups[k] = append(groups[k], e)
	}
	return groups
}

// SortEvents ordena por (timestamp, id) ascendente; el id desempata de forma
// estable cuando dos eventos comparten timestamp.
func SortEvents(events []entity.ChangeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Before(&events[j])
	})
}

// Replay reconstruye el timeline de una llave desde un saldo inicial.
// No recorta saldos negativos: devuelve el timeline completo y el primer
// *domain.ConsistencyError encontrado (saldo negativo o campos denormalizados
// que no cuadran con la suma).
func Replay(key entity.StockKey, baseline int64, events []entity.ChangeEvent) (Timeline, error) {
	tl, faults := ReplayAll(key, baseline, events)
	if len(faults) > 0 {
		return tl, faults[0]
	}
	return tl, nil
}

// ReplayAll igual que Replay pero devuelve todas las fallas, en orden del timeline.
func ReplayAll(key entity.StockKey, baseline int64, events []entity.ChangeEvent) (Timeline, []*domain.ConsistencyError) {
	sorted := make([]entity.ChangeEvent, 0, len(events))
	for _, e := range events {
		if e.Key() == key {
			sorted = append(sorted, e)
		}
	}
	SortEvents(sorted)

	tl := Timeline{Key: key, Baseline: baseline, Points: make([]entity.TimelinePoint, 0, len(sorted))}
	var faults []*domain.ConsistencyError
	balance := baseline
	for i := range sorted {
		e := &sorted[i]
		before := balance
		balance += e.QuantityChange
		tl.Points = append(tl.Points, entity.TimelinePoint{
			ProductID:      e.ProductID,
			WarehouseID:    e.WarehouseID,
			EventID:        e.ID,
			Timestamp:      e.Timestamp,
			Balance:        balance,
			QuantityChange: e.QuantityChange,
			ActionType:     e.ActionType,
		})
		if fault := checkPoint(e, before, balance); fault != nil {
			faults = append(faults, fault)
		}
	}
	return tl, faults
}

// ReplayFrom reanuda desde un checkpoint: aplica solo los eventos posteriores a su posición.
func ReplayFrom(cp entity.Checkpoint, events []entity.ChangeEvent) (Timeline, error) {
	suffix := make([]entity.ChangeEvent, 0, len(events))
	for _, e := range events {
		if !cp.Covers(&e) {
			suffix = append(suffix, e)
		}
	}
	return Replay(cp.Key, cp.Balance, suffix)
}

func checkPoint(e *entity.ChangeEvent, before, after int64) *domain.ConsistencyError {
	fault := &domain.ConsistencyError{
		ProductID:   e.ProductID,
		WarehouseID: e.WarehouseID,
		EventID:     e.ID,
		At:          e.Timestamp,
		Expected:    after,
	}
	switch {
	case after < 0:
		fault.Recorded = after
		fault.Reason = "saldo negativo"
	case e.PreviousQuantity != before:
		fault.Expected = before
		fault.Recorded = e.PreviousQuantity
		fault.Reason = "previous_quantity no coincide"
	case e.NewQuantity != after:
		fault.Recorded = e.NewQuantity
		fault.Reason = "new_quantity no coincide"
	default:
		return nil
	}
	return fault
}
