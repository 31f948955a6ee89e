package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func newScheduler(f *fixture, policy app.RestockPolicy) *app.RestockScheduler {
	return app.NewRestockScheduler(f.store.Stocks(), f.store.Forecasts(), f.recon, f.coord, policy, logger.Nop())
}

func seedRestock(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	pairs := []struct {
		product string
		qty     int64
		auto    bool
	}{
		{"P1", 5, true},  // LOW
		{"P2", 0, true},  // OUT
		{"P3", 30, true}, // IN
		{"P4", 3, false}, // LOW, sin reposición automática
	}
	for _, p := range pairs {
		_, err := f.coord.AssignInitial(ctx, entity.StockKey{ProductID: p.product, WarehouseID: "W1"}, p.qty, p.auto, admin)
		require.NoError(t, err)
	}
	f.store.PutForecast(entity.DemandForecast{
		Month:            "202503",
		WarehouseID:      "W1",
		ProductID:        "P1",
		DailyAverage:     decimal.NewFromFloat(2.5),
		DailyPredicted:   decimal.NewFromInt(3),
		WeeklyPredicted:  decimal.NewFromInt(21),
		DaysRemaining:    decimal.NewFromInt(2),
		SafetyStock:      10,
		SuggestedRestock: 80,
	})
}

func TestRestockScheduler_RepondeSegunPrediccionYPolitica(t *testing.T) {
	f := newFixture(nil, time.Second)
	seedRestock(t, f)
	ctx := context.Background()
	s := newScheduler(f, app.RestockPolicy{TargetLevel: 50, AutomatedOnly: true})

	report, err := s.Sweep(ctx, "202503")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.Restocked)
	assert.Equal(t, int64(75+50), report.Units)

	p1, err := f.queries.GetCurrentStock(ctx, entity.StockKey{ProductID: "P1", WarehouseID: "W1"})
	require.NoError(t, err)
	assert.Equal(t, int64(80), p1.Quantity, "usa suggested_restock de la predicción")
	assert.Equal(t, entity.AvailabilityInStock, p1.Availability)

	p2, err := f.queries.GetCurrentStock(ctx, entity.StockKey{ProductID: "P2", WarehouseID: "W1"})
	require.NoError(t, err)
	assert.Equal(t, int64(50), p2.Quantity, "sin predicción usa el nivel objetivo")

	p4, err := f.queries.GetCurrentStock(ctx, entity.StockKey{ProductID: "P4", WarehouseID: "W1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), p4.Quantity)

	events, err := f.queries.FindByReference(ctx, "202503", entity.ReferenceAutoRestock)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, entity.ActionRestock, e.ActionType)
		assert.Equal(t, entity.SourceSystem, e.Source)
	}
}

func TestRestockScheduler_EsIdempotente(t *testing.T) {
	f := newFixture(nil, time.Second)
	seedRestock(t, f)
	ctx := context.Background()
	s := newScheduler(f, app.RestockPolicy{TargetLevel: 50, AutomatedOnly: true})

	_, err := s.Sweep(ctx, "202503")
	require.NoError(t, err)
	report, err := s.Sweep(ctx, "202503")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Restocked)

	events, err := f.queries.FindByReference(ctx, "202503", entity.ReferenceAutoRestock)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRestockScheduler_OmiteLlavesEnCuarentena(t *testing.T) {
	f := newFixture(nil, time.Second)
	seedRestock(t, f)
	ctx := context.Background()
	p2 := entity.StockKey{ProductID: "P2", WarehouseID: "W1"}
	require.NoError(t, f.coord.Quarantine(ctx, p2, "prueba"))

	s := newScheduler(f, app.RestockPolicy{TargetLevel: 50, AutomatedOnly: true})
	report, err := s.Sweep(ctx, "202503")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Quarantined)
	assert.Equal(t, 1, report.Restocked)

	view, err := f.queries.GetCurrentStock(ctx, p2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.Quantity)
}

func TestRestockScheduler_TodosLosParesSinFiltroAutomatico(t *testing.T) {
	f := newFixture(nil, time.Second)
	seedRestock(t, f)
	ctx := context.Background()
	s := newScheduler(f, app.RestockPolicy{TargetLevel: 25})

	report, err := s.Sweep(ctx, "202503")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 3, report.Restocked)

	p4, err := f.queries.GetCurrentStock(ctx, entity.StockKey{ProductID: "P4", WarehouseID: "W1"})
	require.NoError(t, err)
	assert.Equal(t, int64(25), p4.Quantity)
}

func TestRestockScheduler_StartSeDetieneConContexto(t *testing.T) {
	f := newFixture(nil, time.Second)
	seedRestock(t, f)
	s := newScheduler(f, app.RestockPolicy{Interval: 10 * time.Millisecond, TargetLevel: 50, AutomatedOnly: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		view, err := f.queries.GetCurrentStock(context.Background(), entity.StockKey{ProductID: "P2", WarehouseID: "W1"})
		return err == nil && view.Quantity == 50
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start no terminó tras cancelar el contexto")
	}
}

func TestRestockScheduler_AuditaLaLlaveAntesDeReponer(t *testing.T) {
	f := newFixture(nil, time.Second)
	seedRestock(t, f)
	ctx := context.Background()
	p2 := entity.StockKey{ProductID: "P2", WarehouseID: "W1"}

	// Evento importado que no cuadra con el historial de P2; nadie lo consultó aún.
	_, err := f.store.Events().Append(ctx, &entity.ChangeEvent{
		ProductID: "P2", WarehouseID: "W1",
		ActionType:       entity.ActionAdjustment,
		QuantityChange:   3,
		PreviousQuantity: 9,
		NewQuantity:      12,
		Source:           entity.SourceImport,
		Timestamp:        time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	s := newScheduler(f, app.RestockPolicy{TargetLevel: 50, AutomatedOnly: true})
	report, err := s.Sweep(ctx, "202503")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Quarantined)
	assert.Equal(t, 1, report.Restocked)

	view, err := f.queries.GetCurrentStock(ctx, p2)
	require.NoError(t, err)
	assert.True(t, view.Quarantined)
	assert.Equal(t, int64(0), view.Quantity)
}
