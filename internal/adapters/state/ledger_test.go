package state_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylansloan2/barttorvik-machine/internal/adapters/state"
	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

func testOrder(ticker string, notional float64) domain.PlacedOrder {
	return domain.PlacedOrder{
		Ticker:        ticker,
		TeamName:      "Duke",
		Side:          domain.SideYes,
		Action:        domain.ActionBuy,
		Count:         10,
		YesPrice:      notional / 10,
		PostOnly:      false,
		ClientOrderID: "tk-2025-03-10-" + ticker + "-yes-buy-50",
		OrderID:       "ord-1",
		Notional:      notional,
		PlacedAt:      time.Unix(1741618800, 0),
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "state.json")

	l, err := state.Load(path, 300, 75)
	require.NoError(t, err)
	require.NoError(t, l.Record("2025-03-10", testOrder("KXSECREG-25-UK", 50)))

	// Un proceso nuevo ve lo que el anterior persistió.
	l2, err := state.Load(path, 300, 75)
	require.NoError(t, err)
	assert.True(t, l2.SubmittedIDs("2025-03-10")["tk-2025-03-10-KXSECREG-25-UK-yes-buy-50"])
	assert.InDelta(t, 50, l2.DailyNotional("2025-03-10"), 1e-9)
	assert.InDelta(t, 50, l2.MarketNotional("2025-03-10", "KXSECREG-25-UK"), 1e-9)
	assert.Zero(t, l2.MarketNotional("2025-03-10", "OTRO"))
	assert.Zero(t, l2.DailyNotional("2025-03-11"))
}

func TestLedgerDiskShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	l, err := state.Load(path, 300, 75)
	require.NoError(t, err)
	require.NoError(t, l.Record("2025-03-10", testOrder("KXSECREG-25-UK", 50)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	day := doc["by_date"]["2025-03-10"]
	require.NotNil(t, day)
	require.Contains(t, day, "submitted_ids")
	require.Contains(t, day, "orders")

	orders := day["orders"].([]any)
	require.Len(t, orders, 1)
	order := orders[0].(map[string]any)
	for _, key := range []string{"ticker", "team_name", "side", "action", "count",
		"yes_price", "post_only", "client_order_id", "order_id", "notional", "ts"} {
		assert.Contains(t, order, key)
	}
	assert.EqualValues(t, 1741618800, order["ts"])
}

func TestLedgerAdmitCaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	l, err := state.Load(path, 100, 40)
	require.NoError(t, err)

	// Cap por mercado.
	assert.True(t, l.Admit("2025-03-10", "A", 40))
	assert.False(t, l.Admit("2025-03-10", "A", 40.01))

	require.NoError(t, l.Record("2025-03-10", testOrder("A", 30)))
	assert.True(t, l.Admit("2025-03-10", "A", 10))
	assert.False(t, l.Admit("2025-03-10", "A", 10.01))

	// Cap diario cruza mercados.
	require.NoError(t, l.Record("2025-03-10", testOrder("B", 40)))
	require.NoError(t, l.Record("2025-03-10", testOrder("C", 25)))
	assert.True(t, l.Admit("2025-03-10", "D", 5))
	assert.False(t, l.Admit("2025-03-10", "D", 5.01))

	// Otro día arranca limpio.
	assert.True(t, l.Admit("2025-03-11", "A", 40))
}

func TestLedgerCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := state.Load(path, 300, 75)
	assert.Error(t, err)
}
