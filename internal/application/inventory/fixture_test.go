package inventory_test

import (
	"sync"
	"time"

	app "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

var (
	baseTime = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	key51    = entity.StockKey{ProductID: "5", WarehouseID: "1"}
	admin    = app.Actor{ID: "u-1", Name: "Ana Bodega"}
)

func at(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

// fakeClock reloj controlable desde el test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store   *memory.Store
	locker  *lock.LocalLocker
	coord   *app.FulfillmentCoordinator
	recon   *app.ReconstructionUseCase
	queries *app.StockQueryUseCase
	clock   *fakeClock
}

// newFixture arma el coordinador sobre el store en memoria. Con clock nil usa el reloj real.
func newFixture(clock *fakeClock, lockTimeout time.Duration) *fixture {
	store := memory.NewStore()
	locker := lock.NewLocalLocker(lockTimeout)
	log := logger.Nop()
	coord := app.NewFulfillmentCoordinator(memory.NewTxRunner(store), locker, inventory.NewClassifier(0), log)
	if clock != nil {
		coord.WithClock(clock.Now)
	}
	return &fixture{
		store:   store,
		locker:  locker,
		coord:   coord,
		recon:   app.NewReconstructionUseCase(store.Events(), store.Stocks(), store.Catalog(), coord, log),
		queries: app.NewStockQueryUseCase(store.Events(), store.Stocks()),
		clock:   clock,
	}
}
