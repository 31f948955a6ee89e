package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/config"
)

func TestMapTxError(t *testing.T) {
	lock := &pgconn.PgError{Code: codeLockNotAvailable}
	err := mapTxError(fmt.Errorf("get stock: %w", lock))
	assert.ErrorIs(t, err, domain.ErrContention)

	deadlock := &pgconn.PgError{Code: codeDeadlockDetected}
	assert.ErrorIs(t, mapTxError(deadlock), domain.ErrContention)

	other := errors.New("boom")
	assert.Equal(t, other, mapTxError(other))
	assert.Nil(t, mapTxError(nil))

	insufficient := &domain.InsufficientStockError{Requested: 5, Available: 1}
	assert.ErrorIs(t, mapTxError(insufficient), domain.ErrInsufficientStock)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, isUniqueViolation(errors.New("otra cosa")))
}

func TestPoolConfig_TomaLimitesDeConfig(t *testing.T) {
	pc, err := PoolConfig(config.DBConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "ledger", SSLMode: "disable",
		MaxConns: 8, MinConns: 1, MaxConnLifetime: 10 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, 10*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, "db", pc.ConnConfig.Host)
	assert.Equal(t, "inventario-ledger", pc.ConnConfig.RuntimeParams["application_name"])
}

// ─── Integración (requiere LEDGER_TEST_DATABASE_URL) ─────────────────────────

func testPool(t *testing.T) *pgxpool.Pool {
	dsn := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, pool))
	t.Cleanup(pool.Close)
	return pool
}

func uniqueKey(t *testing.T) entity.StockKey {
	return entity.StockKey{
		ProductID:   fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano()),
		WarehouseID: "W-TEST",
	}
}

func TestTxRunner_AppendYSnapshotAtomicos(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	key := uniqueKey(t)
	runner := NewTxRunner(pool, time.Second)
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := runner.Run(ctx, func(events repository.ChangeEventRepository, stocks repository.StockRepository) error {
		if err := stocks.Create(ctx, &entity.Stock{ProductID: key.ProductID, WarehouseID: key.WarehouseID, Quantity: 10,
			Availability: entity.AvailabilityLow, UpdatedAt: now}); err != nil {
			return err
		}
		_, err := events.Append(ctx, &entity.ChangeEvent{
			ProductID: key.ProductID, WarehouseID: key.WarehouseID,
			ActionType: entity.ActionProductAssign, QuantityChange: 10, NewQuantity: 10,
			Source: entity.SourceManual, Timestamp: now, Metadata: map[string]any{"lote": "A1"},
		})
		return err
	})
	require.NoError(t, err)

	events, err := NewChangeEventRepository(pool).FindByKey(ctx, key, entity.TimeRange{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "A1", events[0].Metadata["lote"])

	boom := errors.New("boom")
	err = runner.Run(ctx, func(events repository.ChangeEventRepository, stocks repository.StockRepository) error {
		st, err := stocks.GetForUpdate(ctx, key)
		require.NoError(t, err)
		st.Quantity = 99
		require.NoError(t, stocks.Update(ctx, st))
		return boom
	})
	require.ErrorIs(t, err, boom)

	st, err := NewStockRepository(pool).Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(10), st.Quantity, "rollback")

	err = NewStockRepository(pool).Create(ctx, &entity.Stock{ProductID: key.ProductID, WarehouseID: key.WarehouseID,
		Availability: entity.AvailabilityOutOfStock, UpdatedAt: now})
	assert.ErrorIs(t, err, domain.ErrAlreadyAssigned)
}

func TestPredictionRepo_UpsertYGet(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewPredictionRepository(pool)
	key := uniqueKey(t)
	f := &entity.DemandForecast{
		Month: "202503", WarehouseID: key.WarehouseID, ProductID: key.ProductID,
		DailyAverage: decimal.RequireFromString("2.5"), DailyPredicted: decimal.NewFromInt(3),
		WeeklyPredicted: decimal.NewFromInt(21), DaysRemaining: decimal.NewFromInt(4),
		SafetyStock: 10, SuggestedRestock: 80,
	}
	require.NoError(t, repo.Upsert(ctx, f))

	got, err := repo.Get(ctx, "202503", key.WarehouseID, key.ProductID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.DailyAverage.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, int64(80), got.SuggestedRestock)

	none, err := repo.Get(ctx, "190001", key.WarehouseID, key.ProductID)
	require.NoError(t, err)
	assert.Nil(t, none)
}
