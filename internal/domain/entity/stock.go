package entity

import (
	"fmt"
	"sort"
	"time"
)

// StockKey par (producto, bodega): unidad de serialización e historial.
type StockKey struct {
	ProductID   string
	WarehouseID string
}

func (k StockKey) String() string {
	return fmt.Sprintf("%s@%s", k.ProductID, k.WarehouseID)
}

// Less orden estable entre llaves (para tomar varios bloqueos sin deadlock).
func (k StockKey) Less(o StockKey) bool {
	if k.WarehouseID != o.WarehouseID {
		return k.WarehouseID < o.WarehouseID
	}
	return k.ProductID < o.ProductID
}

// SortKeys devuelve las llaves sin duplicados en orden estable.
func SortKeys(keys []StockKey) []StockKey {
	seen := make(map[StockKey]struct{}, len(keys))
	out := make([]StockKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Availability nivel de disponibilidad derivado de la cantidad.
type Availability string

const (
	AvailabilityOutOfStock Availability = "OUT_OF_STOCK"
	AvailabilityLow        Availability = "LOW_IN_STOCK"
	AvailabilityInStock    Availability = "IN_STOCK"
)

// Stock snapshot actual de un producto en una bodega (tabla materializada).
// Availability nunca se asigna directamente: se recalcula en cada mutación.
type Stock struct {
	ProductID        string
	WarehouseID      string
	Quantity         int64
	Availability     Availability
	AutomatedRestock bool
	Quarantined      bool
	UpdatedAt        time.Time
}

// Key devuelve la llave del snapshot.
func (s *Stock) Key() StockKey {
	return StockKey{ProductID: s.ProductID, WarehouseID: s.WarehouseID}
}

// Apply aplica una nueva cantidad y reclasifica con la función dada.
func (s *Stock) Apply(quantity int64, classify func(int64) Availability, at time.Time) {
	s.Quantity = quantity
	s.Availability = classify(quantity)
	s.UpdatedAt = at
}
