package entity

import "github.com/shopspring/decimal"

// DemandForecast predicción externa por (mes, bodega, producto) usada por la reposición automática.
type DemandForecast struct {
	Month            string // yyyyMM
	WarehouseID      string
	ProductID        string
	DailyAverage     decimal.Decimal
	DailyPredicted   decimal.Decimal
	WeeklyPredicted  decimal.Decimal
	DaysRemaining    decimal.Decimal
	SafetyStock      int64
	SuggestedRestock int64
}
