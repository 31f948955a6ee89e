package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var key = entity.StockKey{ProductID: "P1", WarehouseID: "W1"}

func event(at time.Time, prev, change int64, action entity.ActionType) *entity.ChangeEvent {
	return &entity.ChangeEvent{
		ProductID:        key.ProductID,
		WarehouseID:      key.WarehouseID,
		ActionType:       action,
		QuantityChange:   change,
		PreviousQuantity: prev,
		NewQuantity:      prev + change,
		Source:           entity.SourceAPI,
		Timestamp:        at,
	}
}

func TestTxRunner_ConfirmaJuntos(t *testing.T) {
	store := NewStore()
	runner := NewTxRunner(store)
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	err := runner.Run(ctx, func(events repository.ChangeEventRepository, stocks repository.StockRepository) error {
		require.NoError(t, stocks.Create(ctx, &entity.Stock{ProductID: "P1", WarehouseID: "W1", Quantity: 100}))
		_, err := events.Append(ctx, event(at, 0, 100, entity.ActionProductAssign))
		require.NoError(t, err)

		// Dentro de la tx se ven las escrituras pendientes.
		st, err := stocks.GetForUpdate(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, st)
		pending, err := events.FindByKey(ctx, key, entity.TimeRange{})
		require.NoError(t, err)
		require.Len(t, pending, 1)

		// Fuera de la tx todavía no.
		outside, err := store.Stocks().Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, outside)
		return nil
	})
	require.NoError(t, err)

	st, err := store.Stocks().Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, int64(100), st.Quantity)
	evs, err := store.Events().FindByKey(ctx, key, entity.TimeRange{})
	require.NoError(t, err)
	assert.Len(t, evs, 1)
	assert.NotEmpty(t, evs[0].ID)
}

func TestTxRunner_ErrorDescartaTodo(t *testing.T) {
	store := NewStore()
	runner := NewTxRunner(store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := runner.Run(ctx, func(events repository.ChangeEventRepository, stocks repository.StockRepository) error {
		require.NoError(t, stocks.Create(ctx, &entity.Stock{ProductID: "P1", WarehouseID: "W1", Quantity: 5}))
		_, err := events.Append(ctx, event(time.Now(), 0, 5, entity.ActionProductAssign))
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	st, _ := store.Stocks().Get(ctx, key)
	assert.Nil(t, st)
	evs, _ := store.Events().FindByKey(ctx, key, entity.TimeRange{})
	assert.Empty(t, evs)
}

func TestStockRepository_CreateDuplicado(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repo := store.Stocks()
	require.NoError(t, repo.Create(ctx, &entity.Stock{ProductID: "P1", WarehouseID: "W1"}))
	assert.ErrorIs(t, repo.Create(ctx, &entity.Stock{ProductID: "P1", WarehouseID: "W1"}), domain.ErrAlreadyAssigned)
	assert.ErrorIs(t, repo.Update(ctx, &entity.Stock{ProductID: "P9", WarehouseID: "W1"}), domain.ErrNotFound)
}

func TestStockRepository_ListFiltra(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repo := store.Stocks()
	require.NoError(t, repo.Create(ctx, &entity.Stock{ProductID: "P1", WarehouseID: "W1", Availability: entity.AvailabilityLow, AutomatedRestock: true}))
	require.NoError(t, repo.Create(ctx, &entity.Stock{ProductID: "P2", WarehouseID: "W1", Availability: entity.AvailabilityInStock, AutomatedRestock: true}))
	require.NoError(t, repo.Create(ctx, &entity.Stock{ProductID: "P3", WarehouseID: "W2", Availability: entity.AvailabilityOutOfStock}))

	low, err := repo.List(ctx, repository.StockFilter{
		Availability: []entity.Availability{entity.AvailabilityLow, entity.AvailabilityOutOfStock},
	})
	require.NoError(t, err)
	assert.Len(t, low, 2)

	auto, err := repo.List(ctx, repository.StockFilter{Availability: []entity.Availability{entity.AvailabilityLow, entity.AvailabilityOutOfStock}, AutomatedOnly: true})
	require.NoError(t, err)
	require.Len(t, auto, 1)
	assert.Equal(t, "P1", auto[0].ProductID)
}

func TestChangeEventRepository_AppendValida(t *testing.T) {
	store := NewStore()
	bad := event(time.Now(), 10, -3, entity.ActionOrder)
	bad.NewQuantity = 99
	_, err := store.Events().Append(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestChangeEventRepository_ConsultasOrdenadas(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repo := store.Events()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	// Se insertan fuera de orden.
	e2 := event(base.Add(2*time.Minute), 100, -30, entity.ActionOrder)
	e2.ReferenceID, e2.ReferenceType = "ORD-1", entity.ReferenceOrder
	_, err := repo.Append(ctx, e2)
	require.NoError(t, err)
	_, err = repo.Append(ctx, event(base.Add(time.Minute), 0, 100, entity.ActionRestock))
	require.NoError(t, err)
	e3 := event(base.Add(3*time.Minute), 70, -5, entity.ActionAdjustment)
	e3.Notes = "Conteo físico"
	_, err = repo.Append(ctx, e3)
	require.NoError(t, err)

	all, err := repo.FindByKey(ctx, key, entity.TimeRange{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, entity.ActionRestock, all[0].ActionType)
	assert.Equal(t, entity.ActionAdjustment, all[2].ActionType)

	recent, err := repo.FindRecentByWarehouse(ctx, "W1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, entity.ActionAdjustment, recent[0].ActionType)

	lastRestock, err := repo.FindLatestByKeyAndAction(ctx, key, entity.ActionRestock)
	require.NoError(t, err)
	require.NotNil(t, lastRestock)
	assert.Equal(t, int64(100), lastRestock.QuantityChange)

	byRef, err := repo.FindByReference(ctx, "ORD-1", entity.ReferenceOrder)
	require.NoError(t, err)
	assert.Len(t, byRef, 1)

	found, err := repo.FindAll(ctx, repository.EventFilter{Search: "conteo"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	page, err := repo.FindAll(ctx, repository.EventFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, entity.ActionOrder, page[0].ActionType)
}
