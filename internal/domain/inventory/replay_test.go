package inventory_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

var (
	baseTime = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	key51    = entity.StockKey{ProductID: "5", WarehouseID: "1"}
)

func testTime(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

// buildEvents genera eventos consistentes (previous/new cuadran) a partir de deltas.
func buildEvents(key entity.StockKey, start int64, deltas []int64, actions []entity.ActionType) []entity.ChangeEvent {
	events := make([]entity.ChangeEvent, 0, len(deltas))
	balance := start
	for i, d := range deltas {
		events = append(events, entity.ChangeEvent{
			ID:               fmt.Sprintf("ev-%04d", i),
			ProductID:        key.ProductID,
			WarehouseID:      key.WarehouseID,
			ActionType:       actions[i%len(actions)],
			QuantityChange:   d,
			PreviousQuantity: balance,
			NewQuantity:      balance + d,
			Timestamp:        testTime(i * 10),
		})
		balance += d
	}
	return events
}

func TestReplay_EscenarioBasico(t *testing.T) {
	events := buildEvents(key51, 0, []int64{100, -30, -5},
		[]entity.ActionType{entity.ActionRestock, entity.ActionOrder, entity.ActionAdjustment})

	tl, err := inventory.Replay(key51, 0, events)
	require.NoError(t, err)
	require.Len(t, tl.Points, 3)

	balances := []int64{tl.Points[0].Balance, tl.Points[1].Balance, tl.Points[2].Balance}
	assert.Equal(t, []int64{100, 70, 65}, balances)
	assert.Equal(t, int64(65), tl.Final())
	assert.Equal(t, int64(100), tl.BalanceAt(testTime(5)), "entre T1 y T2")
	assert.Equal(t, int64(0), tl.BalanceAt(testTime(-1)), "antes del primer evento")
	assert.Equal(t, int64(70), tl.BalanceAt(testTime(10)), "instante exacto incluido")
}

func TestReplay_SinEventosDevuelveSaldoInicial(t *testing.T) {
	tl, err := inventory.Replay(key51, 42, nil)
	require.NoError(t, err)
	assert.Empty(t, tl.Points)
	assert.Equal(t, int64(42), tl.Final())
	assert.Equal(t, int64(42), tl.BalanceAt(testTime(100)))
}

func TestReplay_OrdenaPorTimestampYDesempataPorID(t *testing.T) {
	ts := testTime(0)
	events := []entity.ChangeEvent{
		{ID: "b", ProductID: "5", WarehouseID: "1", ActionType: entity.ActionOrder, QuantityChange: -5, PreviousQuantity: 10, NewQuantity: 5, Timestamp: ts},
		{ID: "c", ProductID: "5", WarehouseID: "1", ActionType: entity.ActionRestock, QuantityChange: 7, PreviousQuantity: 5, NewQuantity: 12, Timestamp: ts.Add(time.Second)},
		{ID: "a", ProductID: "5", WarehouseID: "1", ActionType: entity.ActionRestock, QuantityChange: 10, PreviousQuantity: 0, NewQuantity: 10, Timestamp: ts},
	}
	tl, err := inventory.Replay(key51, 0, events)
	require.NoError(t, err)
	require.Len(t, tl.Points, 3)
	assert.Equal(t, "a", tl.Points[0].EventID)
	assert.Equal(t, "b", tl.Points[1].EventID)
	assert.Equal(t, "c", tl.Points[2].EventID)
	assert.Equal(t, int64(12), tl.Final())
}

func TestReplay_IgnoraEventosDeOtrasLlaves(t *testing.T) {
	events := buildEvents(key51, 0, []int64{10}, []entity.ActionType{entity.ActionRestock})
	other := buildEvents(entity.StockKey{ProductID: "6", WarehouseID: "1"}, 0, []int64{99}, []entity.ActionType{entity.ActionRestock})
	tl, err := inventory.Replay(key51, 0, append(events, other...))
	require.NoError(t, err)
	assert.Equal(t, int64(10), tl.Final())
}

func TestReplay_SaldoNegativoEsConsistencyError(t *testing.T) {
	events := buildEvents(key51, 0, []int64{10, -15, 20}, []entity.ActionType{entity.ActionRestock, entity.ActionOrder, entity.ActionRestock})

	tl, err := inventory.Replay(key51, 0, events)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConsistency)

	var ce *domain.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ev-0001", ce.EventID)
	assert.Equal(t, int64(-5), ce.Expected)

	// No recorta: el timeline sigue completo con el saldo negativo.
	require.Len(t, tl.Points, 3)
	assert.Equal(t, int64(-5), tl.Points[1].Balance)
	assert.Equal(t, int64(15), tl.Final())
}

func TestReplay_CamposDenormalizadosInconsistentes(t *testing.T) {
	events := buildEvents(key51, 0, []int64{10, -3}, []entity.ActionType{entity.ActionRestock, entity.ActionOrder})
	events[1].PreviousQuantity = 11
	events[1].NewQuantity = 8

	_, err := inventory.Replay(key51, 0, events)
	var ce *domain.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ev-0001", ce.EventID)
	assert.Equal(t, int64(10), ce.Expected)
	assert.Equal(t, int64(11), ce.Recorded)
}

// La reconstrucción desde génesis y desde cualquier checkpoint válido + sufijo
// producen el mismo saldo final y los mismos puntos.
func TestReplay_GenesisEquivaleACheckpointMasSufijo(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	actions := []entity.ActionType{entity.ActionRestock, entity.ActionOrder, entity.ActionAdjustment, entity.ActionTransferIn}

	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(40)
		deltas := make([]int64, n)
		balance := int64(0)
		for i := range deltas {
			d := int64(rng.Intn(41) - 20)
			if d == 0 || balance+d < 0 {
				d = int64(1 + rng.Intn(30))
			}
			deltas[i] = d
			balance += d
		}
		events := buildEvents(key51, 0, deltas, actions)
		rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })

		genesis, err := inventory.Replay(key51, 0, events)
		require.NoError(t, err)

		cut := rng.Intn(n + 1)
		var cp entity.Checkpoint
		if cut == 0 {
			cp = entity.Checkpoint{Key: key51}
		} else {
			prefix := genesis.Points[:cut]
			last := prefix[len(prefix)-1]
			cp = entity.Checkpoint{Key: key51, At: last.Timestamp, EventID: last.EventID, Balance: last.Balance}
		}

		resumed, err := inventory.ReplayFrom(cp, events)
		require.NoError(t, err)

		assert.Equal(t, genesis.Final(), resumed.Final(), "ronda %d corte %d", round, cut)
		assert.Equal(t, genesis.Points[cut:], resumed.Points, "ronda %d corte %d", round, cut)
	}
}

func TestTimeline_Checkpoint(t *testing.T) {
	events := buildEvents(key51, 0, []int64{5, 5}, []entity.ActionType{entity.ActionRestock})
	tl, err := inventory.Replay(key51, 0, events)
	require.NoError(t, err)

	cp := tl.Checkpoint()
	assert.Equal(t, int64(10), cp.Balance)
	assert.Equal(t, "ev-0001", cp.EventID)
	assert.True(t, cp.Covers(&events[1]))
	assert.True(t, cp.Covers(&events[0]))
}

func TestGroupByKey(t *testing.T) {
	a := buildEvents(key51, 0, []int64{1, 2}, []entity.ActionType{entity.ActionRestock})
	b := buildEvents(entity.StockKey{ProductID: "6", WarehouseID: "1"}, 0, []int64{3}, []entity.ActionType{entity.ActionRestock})
	groups := inventory.GroupByKey(append(a, b...))
	assert.Len(t, groups, 2)
	assert.Len(t, groups[key51], 2)
}

func TestValidateEvent(t *testing.T) {
	valid := entity.ChangeEvent{
		ProductID: "5", WarehouseID: "1", ActionType: entity.ActionRestock,
		QuantityChange: 10, PreviousQuantity: 0, NewQuantity: 10, Timestamp: testTime(0),
	}
	require.NoError(t, inventory.ValidateEvent(&valid))

	cases := map[string]func(e *entity.ChangeEvent){
		"sin producto":    func(e *entity.ChangeEvent) { e.ProductID = "" },
		"sin bodega":      func(e *entity.ChangeEvent) { e.WarehouseID = "" },
		"sin acción":      func(e *entity.ChangeEvent) { e.ActionType = "" },
		"acción rara":     func(e *entity.ChangeEvent) { e.ActionType = "SHRINK" },
		"cantidad cero":   func(e *entity.ChangeEvent) { e.QuantityChange = 0; e.NewQuantity = 0 },
		"suma no cuadra":  func(e *entity.ChangeEvent) { e.NewQuantity = 11 },
		"origen inválido": func(e *entity.ChangeEvent) { e.Source = "FAX" },
		"sin timestamp":   func(e *entity.ChangeEvent) { e.Timestamp = time.Time{} },
	}
	for name, mutate := range cases {
		e := valid
		mutate(&e)
		err := inventory.ValidateEvent(&e)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}

	assign := valid
	assign.ActionType = entity.ActionProductAssign
	assign.QuantityChange, assign.NewQuantity = 0, 0
	assert.NoError(t, inventory.ValidateEvent(&assign), "asignación inicial en cero")
}
