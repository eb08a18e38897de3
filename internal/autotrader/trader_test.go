package autotrader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylansloan2/barttorvik-machine/config"
	"github.com/dylansloan2/barttorvik-machine/internal/adapters/state"
	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

// fakeExchange cuenta llamadas y permite inyectar quotes y fallos.
type fakeExchange struct {
	quotes       map[string]domain.MarketQuote
	openOrders   []domain.OpenOrder
	failPlace    int // cuántos PlaceOrder fallan antes de funcionar
	placeCalls   int
	quoteCalls   int
	cancelCalls  []string
	authErr      error
	openOrderErr error
}

func (f *fakeExchange) AuthPreflight(context.Context) error { return f.authErr }

func (f *fakeExchange) GetMarketPrices(_ context.Context, ticker string) (domain.MarketQuote, error) {
	f.quoteCalls++
	q, ok := f.quotes[ticker]
	if !ok {
		return domain.MarketQuote{}, errors.New("market not found")
	}
	return q, nil
}

func (f *fakeExchange) PlaceOrder(_ context.Context, intent domain.OrderIntent) (domain.PlacedOrder, error) {
	f.placeCalls++
	if f.failPlace > 0 {
		f.failPlace--
		return domain.PlacedOrder{}, errors.New("exchange unavailable")
	}
	return domain.PlacedOrder{
		Ticker:        intent.Ticker,
		ClientOrderID: intent.ClientOrderID,
		OrderID:       "ex-" + intent.ClientOrderID,
	}, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, orderID string) error {
	f.cancelCalls = append(f.cancelCalls, orderID)
	return nil
}

func (f *fakeExchange) GetOpenOrders(context.Context) ([]domain.OpenOrder, error) {
	return f.openOrders, f.openOrderErr
}

func testConfig(t *testing.T) config.TraderConfig {
	t.Helper()
	return config.TraderConfig{
		Bankroll:             1000,
		MinEdge:              0.15,
		KellyFraction:        0.25,
		MakerDiscount:        0.02,
		MinPrice:             0.01,
		MaxPrice:             0.99,
		PollSeconds:          30,
		MaxDailyExposure:     300,
		MaxPerMarketExposure: 75,
		MaxOrdersPerRun:      40,
		OrderRetries:         3,
		KillSwitchFile:       filepath.Join(t.TempDir(), "autotrader.stop"),
		Timezone:             "America/Chicago",
		ScheduleTimezone:     "America/Chicago",
	}
}

func newTestTrader(t *testing.T, cfg config.TraderConfig, ex *fakeExchange, statePath string) (*Trader, *state.Ledger) {
	t.Helper()
	ledger, err := state.Load(statePath, cfg.MaxDailyExposure, cfg.MaxPerMarketExposure)
	require.NoError(t, err)

	tr, err := New(cfg, ex, ledger)
	require.NoError(t, err)
	tr.now = func() time.Time {
		return time.Date(2025, 3, 10, 12, 0, 0, 0, tr.tz)
	}
	tr.sleep = func(context.Context, int) {}
	tr.wait = func(context.Context, time.Duration) {}
	return tr, ledger
}

func bet(ticker string, prob, ev float64) domain.Bet {
	return domain.Bet{
		MarketType:     "Make Tournament",
		Description:    ticker,
		ModelProb:      prob,
		EV:             ev,
		Edge:           ev,
		ContractTicker: ticker,
		TeamName:       "Team " + ticker,
	}
}

func TestTradeBestEdgesSimTaker(t *testing.T) {
	t.Setenv(killSwitchEnv, "")
	ex := &fakeExchange{quotes: map[string]domain.MarketQuote{
		"A": {YesAsk: 0.50},
	}}
	tr, ledger := newTestTrader(t, testConfig(t), ex, filepath.Join(t.TempDir(), "state.json"))

	result, err := tr.TradeBestEdges(context.Background(), []domain.Bet{bet("A", 0.60, 0.20)}, false)
	require.NoError(t, err)

	require.Len(t, result.Taker, 1)
	assert.Empty(t, result.Maker)
	order := result.Taker[0]
	assert.Equal(t, 100, order.Count)
	assert.InDelta(t, 0.50, order.YesPrice, 1e-9)
	assert.False(t, order.PostOnly)
	assert.Equal(t, "tk-2025-03-10-A-yes-buy-50", order.ClientOrderID)
	// Sim no toca el exchange para colocar, pero registra en el ledger.
	assert.Zero(t, ex.placeCalls)
	assert.InDelta(t, 50, ledger.DailyNotional("2025-03-10"), 1e-9)
}

func TestTradeBestEdgesMakerFallback(t *testing.T) {
	t.Setenv(killSwitchEnv, "")
	// Sin ask ni last price: no hay precio taker, se cotiza como maker.
	ex := &fakeExchange{quotes: map[string]domain.MarketQuote{"A": {}}}
	tr, _ := newTestTrader(t, testConfig(t), ex, filepath.Join(t.TempDir(), "state.json"))

	result, err := tr.TradeBestEdges(context.Background(), []domain.Bet{bet("A", 0.70, 0.20)}, false)
	require.NoError(t, err)

	require.Len(t, result.Maker, 1)
	assert.Empty(t, result.Taker)
	order := result.Maker[0]
	assert.True(t, order.PostOnly)
	assert.InDelta(t, 0.68, order.YesPrice, 1e-9)
	assert.Equal(t, "mm-2025-03-10-A-yes-buy-68", order.ClientOrderID)
}

func TestTradeBestEdgesKillSwitch(t *testing.T) {
	t.Setenv(killSwitchEnv, "on")
	ex := &fakeExchange{quotes: map[string]domain.MarketQuote{"A": {YesAsk: 0.50}}}
	tr, ledger := newTestTrader(t, testConfig(t), ex, filepath.Join(t.TempDir(), "state.json"))

	result, err := tr.TradeBestEdges(context.Background(), []domain.Bet{bet("A", 0.60, 0.20)}, true)
	require.NoError(t, err)

	assert.Zero(t, result.Total())
	// Cero llamadas al exchange de cualquier tipo.
	assert.Zero(t, ex.placeCalls)
	assert.Zero(t, ex.quoteCalls)
	assert.Zero(t, ledger.DailyNotional("2025-03-10"))
}

func TestTradeBestEdgesFiltersAndSorts(t *testing.T) {
	t.Setenv(killSwitchEnv, "")
	ex := &fakeExchange{quotes: map[string]domain.MarketQuote{
		"LOW": {YesAsk: 0.50}, "HIGH": {YesAsk: 0.50},
	}}
	cfg := testConfig(t)
	cfg.MaxOrdersPerRun = 1
	tr, _ := newTestTrader(t, cfg, ex, filepath.Join(t.TempDir(), "state.json"))

	bets := []domain.Bet{
		bet("LOW", 0.60, 0.16),
		{ContractTicker: "", EV: 0.90},           // sin ticker: fuera
		bet("EDGELESS", 0.60, 0.10),              // bajo el min edge: fuera
		bet("HIGH", 0.60, 0.30),                  // mejor EV: va primero
	}
	result, err := tr.TradeBestEdges(context.Background(), bets, false)
	require.NoError(t, err)

	// Con cap de 1 orden por run, solo entra la de mejor EV.
	require.Equal(t, 1, result.Total())
	assert.Equal(t, "HIGH", result.Taker[0].Ticker)
}

func TestTradeBestEdgesLiveRetries(t *testing.T) {
	t.Setenv(killSwitchEnv, "")
	ex := &fakeExchange{
		quotes:    map[string]domain.MarketQuote{"A": {YesAsk: 0.50}},
		failPlace: 2, // fallan 2 de 3 intentos
	}
	tr, ledger := newTestTrader(t, testConfig(t), ex, filepath.Join(t.TempDir(), "state.json"))

	result, err := tr.TradeBestEdges(context.Background(), []domain.Bet{bet("A", 0.60, 0.20)}, true)
	require.NoError(t, err)

	require.Len(t, result.Taker, 1)
	assert.Equal(t, 3, ex.placeCalls)
	assert.Equal(t, "ex-tk-2025-03-10-A-yes-buy-50", result.Taker[0].OrderID)
	assert.InDelta(t, 50, ledger.DailyNotional("2025-03-10"), 1e-9)
}

func TestTradeBestEdgesLiveAllRetriesFail(t *testing.T) {
	t.Setenv(killSwitchEnv, "")
	ex := &fakeExchange{
		quotes:    map[string]domain.MarketQuote{"A": {YesAsk: 0.50}},
		failPlace: 3,
	}
	tr, ledger := newTestTrader(t, testConfig(t), ex, filepath.Join(t.TempDir(), "state.json"))

	result, err := tr.TradeBestEdges(context.Background(), []domain.Bet{bet("A", 0.60, 0.20)}, true)
	require.NoError(t, err)

	// Orden fallida: ni resultado ni mutación del ledger.
	assert.Zero(t, result.Total())
	assert.Equal(t, 3, ex.placeCalls)
	assert.Zero(t, ledger.DailyNotional("2025-03-10"))
	assert.Empty(t, ledger.SubmittedIDs("2025-03-10"))
}

func TestTradeBestEdgesDuplicateAcrossRestart(t *testing.T) {
	t.Setenv(killSwitchEnv, "")
	statePath := filepath.Join(t.TempDir(), "state.json")
	bets := []domain.Bet{bet("A", 0.60, 0.20)}

	ex1 := &fakeExchange{quotes: map[string]domain.MarketQuote{"A": {YesAsk: 0.50}}}
	tr1, _ := newTestTrader(t, testConfig(t), ex1, statePath)
	result, err := tr1.TradeBestEdges(context.Background(), bets, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total())

	// Proceso nuevo, mismo día, mismo state file: no duplica.
	ex2 := &fakeExchange{quotes: map[string]domain.MarketQuote{"A": {YesAsk: 0.50}}}
	tr2, ledger2 := newTestTrader(t, testConfig(t), ex2, statePath)
	result2, err := tr2.TradeBestEdges(context.Background(), bets, false)
	require.NoError(t, err)

	assert.Zero(t, result2.Total())
	assert.InDelta(t, 50, ledger2.DailyNotional("2025-03-10"), 1e-9)
}

func TestTradeBestEdgesDuplicateInOpenOrders(t *testing.T) {
	t.Setenv(killSwitchEnv, "")
	ex := &fakeExchange{
		quotes: map[string]domain.MarketQuote{"A": {YesAsk: 0.50}},
		openOrders: []domain.OpenOrder{{
			OrderID:       "ex-1",
			ClientOrderID: "tk-2025-03-10-A-yes-buy-50",
		}},
	}
	tr, _ := newTestTrader(t, testConfig(t), ex, filepath.Join(t.TempDir(), "state.json"))

	result, err := tr.TradeBestEdges(context.Background(), []domain.Bet{bet("A", 0.60, 0.20)}, true)
	require.NoError(t, err)

	assert.Zero(t, result.Total())
	assert.Zero(t, ex.placeCalls)
}

func TestTradeBestEdgesRespectsCaps(t *testing.T) {
	t.Setenv(killSwitchEnv, "")
	rng := rand.New(rand.NewSource(7))

	cfg := testConfig(t)
	cfg.MaxDailyExposure = 120
	cfg.MaxPerMarketExposure = 60

	quotes := make(map[string]domain.MarketQuote)
	var bets []domain.Bet
	for i := 0; i < 30; i++ {
		ticker := fmt.Sprintf("T%02d", i)
		price := 0.30 + rng.Float64()*0.40
		quotes[ticker] = domain.MarketQuote{YesAsk: price}
		bets = append(bets, bet(ticker, price+0.10+rng.Float64()*0.15, 0.16+rng.Float64()*0.30))
	}
	ex := &fakeExchange{quotes: quotes}
	tr, ledger := newTestTrader(t, cfg, ex, filepath.Join(t.TempDir(), "state.json"))

	_, err := tr.TradeBestEdges(context.Background(), bets, false)
	require.NoError(t, err)

	// Los caps son invariantes duros, sin importar qué entró o se saltó.
	assert.LessOrEqual(t, ledger.DailyNotional("2025-03-10"), cfg.MaxDailyExposure+1e-9)
	for ticker := range quotes {
		assert.LessOrEqual(t, ledger.MarketNotional("2025-03-10", ticker), cfg.MaxPerMarketExposure+1e-9)
	}
}

func TestValidateLiveReadiness(t *testing.T) {
	t.Setenv(killSwitchEnv, "")
	ex := &fakeExchange{}
	tr, _ := newTestTrader(t, testConfig(t), ex, filepath.Join(t.TempDir(), "state.json"))
	assert.NoError(t, tr.ValidateLiveReadiness(context.Background()))

	ex.authErr = errors.New("bad signature")
	assert.Error(t, tr.ValidateLiveReadiness(context.Background()))

	t.Setenv(killSwitchEnv, "1")
	ex.authErr = nil
	assert.Error(t, tr.ValidateLiveReadiness(context.Background()))
}
