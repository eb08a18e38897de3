package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylansloan2/barttorvik-machine/internal/adapters/storage"
	"github.com/dylansloan2/barttorvik-machine/internal/domain"
	"github.com/dylansloan2/barttorvik-machine/internal/ports"
)

func newTestJournal(t *testing.T) *storage.SQLiteJournal {
	t.Helper()
	j, err := storage.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func placedOrder(id, ticker string, placedAt time.Time) domain.PlacedOrder {
	return domain.PlacedOrder{
		Ticker:        ticker,
		TeamName:      "Duke",
		Side:          domain.SideYes,
		Action:        domain.ActionBuy,
		Count:         10,
		YesPrice:      0.62,
		ClientOrderID: id,
		OrderID:       "ord-" + id,
		Notional:      6.2,
		PlacedAt:      placedAt,
	}
}

func TestSaveRunAndGetRuns(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	placedAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	run := ports.RunSummary{
		StartedAt:     placedAt,
		Mode:          "live",
		Candidates:    5,
		TakerOrders:   2,
		MakerOrders:   2,
		DailyNotional: 12.4,
	}
	orders := []domain.PlacedOrder{
		placedOrder("tk-1", "KXSECREG-25-UK", placedAt),
		placedOrder("mm-1", "KXSECREG-25-UK", placedAt),
	}
	require.NoError(t, j.SaveRun(ctx, run, orders))

	runs, err := j.GetRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].RunID, "run id se genera si viene vacío")
	assert.Equal(t, "live", runs[0].Mode)
	assert.Equal(t, 5, runs[0].Candidates)
	assert.Equal(t, 2, runs[0].TakerOrders)
	assert.InDelta(t, 12.4, runs[0].DailyNotional, 1e-9)
}

func TestGetOrdersByDate(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	day1 := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC)
	require.NoError(t, j.SaveRun(ctx, ports.RunSummary{StartedAt: day1, Mode: "sim"}, []domain.PlacedOrder{
		placedOrder("tk-a", "A", day1),
		placedOrder("tk-b", "B", day2),
	}))

	orders, err := j.GetOrders(ctx, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "tk-a", orders[0].ClientOrderID)
	assert.Equal(t, "A", orders[0].Ticker)
	assert.InDelta(t, 0.62, orders[0].YesPrice, 1e-9)
}

func TestSaveRunDuplicateOrderIgnored(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	placedAt := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	require.NoError(t, j.SaveRun(ctx, ports.RunSummary{StartedAt: placedAt, Mode: "live"},
		[]domain.PlacedOrder{placedOrder("tk-dup", "A", placedAt)}))
	// El mismo client_order_id en un run posterior no duplica fila.
	require.NoError(t, j.SaveRun(ctx, ports.RunSummary{StartedAt: placedAt.Add(time.Minute), Mode: "live"},
		[]domain.PlacedOrder{placedOrder("tk-dup", "A", placedAt)}))

	orders, err := j.GetOrders(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
