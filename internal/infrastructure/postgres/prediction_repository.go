package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.ForecastRepository = (*PredictionRepo)(nil)

// PredictionRepo predicciones mensuales de demanda. Las columnas NUMERIC se leen como
// decimal.Decimal gracias al codec registrado en NewPool.
type PredictionRepo struct {
	q Querier
}

// NewPredictionRepository construye el adaptador.
func NewPredictionRepository(q Querier) *PredictionRepo {
	return &PredictionRepo{q: q}
}

func (r *PredictionRepo) Get(ctx context.Context, month, warehouseID, productID string) (*entity.DemandForecast, error) {
	query := `
		SELECT month, warehouse_id, product_id, daily_average, daily_predicted, weekly_predicted,
		       days_remaining, safety_stock, suggested_restock
		FROM stock_predictions
		WHERE month = $1 AND warehouse_id = $2 AND product_id = $3`
	var f entity.DemandForecast
	err := r.q.QueryRow(ctx, query, month, warehouseID, productID).Scan(
		&f.Month, &f.WarehouseID, &f.ProductID, &f.DailyAverage, &f.DailyPredicted, &f.WeeklyPredicted,
		&f.DaysRemaining, &f.SafetyStock, &f.SuggestedRestock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return &f, nil
}

// Upsert registra la predicción del mes (la usa la carga de predicciones y los tests).
func (r *PredictionRepo) Upsert(ctx context.Context, f *entity.DemandForecast) error {
	query := `
		INSERT INTO stock_predictions (month, warehouse_id, product_id, daily_average, daily_predicted,
			weekly_predicted, days_remaining, safety_stock, suggested_restock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (month, warehouse_id, product_id)
		DO UPDATE SET daily_average = EXCLUDED.daily_average, daily_predicted = EXCLUDED.daily_predicted,
			weekly_predicted = EXCLUDED.weekly_predicted, days_remaining = EXCLUDED.days_remaining,
			safety_stock = EXCLUDED.safety_stock, suggested_restock = EXCLUDED.suggested_restock`
	_, err := r.q.Exec(ctx, query,
		f.Month, f.WarehouseID, f.ProductID, f.DailyAverage, f.DailyPredicted,
		f.WeeklyPredicted, f.DaysRemaining, f.SafetyStock, f.SuggestedRestock,
	)
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}
	return nil
}
