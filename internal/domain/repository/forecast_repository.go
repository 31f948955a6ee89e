package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ForecastRepository predicciones de demanda por (mes, bodega, producto).
// Devuelve nil (sin error) si no hay predicción para la llave.
type ForecastRepository interface {
	Get(ctx context.Context, month, warehouseID, productID string) (*entity.DemandForecast, error)
}
