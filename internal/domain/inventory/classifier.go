package inventory

import "github.com/jhoicas/inventario-ledger/internal/domain/entity"

// DefaultLowStockThreshold cantidad máxima considerada "stock bajo".
const DefaultLowStockThreshold int64 = 20

// Classifier función pura cantidad -> nivel de disponibilidad (servicio de dominio).
// El umbral viene de configuración.
type Classifier struct {
	LowThreshold int64
}

// NewClassifier construye el clasificador; un umbral <= 0 usa DefaultLowStockThreshold.
func NewClassifier(lowThreshold int64) Classifier {
	if lowThreshold <= 0 {
		lowThreshold = DefaultLowStockThreshold
	}
	return Classifier{LowThreshold: lowThreshold}
}

// Classify OUT_OF_STOCK si q <= 0, LOW_IN_STOCK si 0 < q <= umbral, IN_STOCK si q > umbral.
func (c Classifier) Classify(quantity int64) entity.Availability {
	switch {
	case quantity <= 0:
		return entity.AvailabilityOutOfStock
	case quantity <= c.LowThreshold:
		return entity.AvailabilityLow
	default:
		return entity.AvailabilityInStock
	}
}
