package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

func TestQueries_ActividadRecienteYUltimoRestock(t *testing.T) {
	f := newFixture(&fakeClock{}, time.Second)
	seedBasico(t, f)
	ctx := context.Background()

	recent, err := f.queries.GetRecentActivity(ctx, "1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, entity.ActionAdjustment, recent[0].ActionType)
	assert.Equal(t, entity.ActionOrder, recent[1].ActionType)

	last, err := f.queries.GetLastRestock(ctx, key51)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, int64(100), last.QuantityChange)
	assert.Equal(t, "REC-1", last.ReferenceID)

	none, err := f.queries.GetLastRestock(ctx, entity.StockKey{ProductID: "9", WarehouseID: "1"})
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = f.queries.GetRecentActivity(ctx, "", 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestQueries_ListEventsFiltra(t *testing.T) {
	f := newFixture(&fakeClock{}, time.Second)
	seedBasico(t, f)
	ctx := context.Background()

	manual, err := f.queries.ListEvents(ctx, repository.EventFilter{Source: entity.SourceManual})
	require.NoError(t, err)
	// Asignación y ajuste los hizo un usuario.
	assert.Len(t, manual, 2)

	found, err := f.queries.ListEvents(ctx, repository.EventFilter{Search: "MERMA"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(-5), found[0].QuantityChange)
}
