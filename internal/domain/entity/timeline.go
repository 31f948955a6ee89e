package entity

import "time"

// TimelinePoint saldo acumulado inmediatamente después de un evento.
type TimelinePoint struct {
	ProductID      string
	WarehouseID    string
	EventID        string
	Timestamp      time.Time
	Balance        int64
	QuantityChange int64
	ActionType     ActionType
}

// Checkpoint posición de reanudación: saldo tras el evento (At, EventID).
// Un checkpoint vacío (At cero) equivale a génesis con saldo Balance.
type Checkpoint struct {
	Key     StockKey
	At      time.Time
	EventID string
	Balance int64
}

// Covers indica si el evento ya está incluido en el checkpoint.
func (c Checkpoint) Covers(e *ChangeEvent) bool {
	if c.At.IsZero() && c.EventID == "" {
		return false
	}
	if !e.Timestamp.Equal(c.At) {
		return e.Timestamp.Before(c.At)
	}
	return e.ID <= c.EventID
}

// TimeRange rango cerrado opcional [From, To].
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// Contains indica si t cae en el rango.
func (r TimeRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}
