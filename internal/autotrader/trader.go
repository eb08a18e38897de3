// Package autotrader ejecuta apuestas rankeadas contra Kalshi: sizing con
// Kelly fraccional, caps de exposición, idempotencia diaria y cancelación
// de makers al primer tipoff.
package autotrader

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/dylansloan2/barttorvik-machine/config"
	"github.com/dylansloan2/barttorvik-machine/internal/domain"
	"github.com/dylansloan2/barttorvik-machine/internal/ports"
)

// Trader es el motor de ejecución. No calcula edges: recibe las apuestas
// ya rankeadas y decide cuánto, a qué precio y si le está permitido.
type Trader struct {
	cfg        config.TraderConfig
	exchange   ports.Exchange
	ledger     ports.Ledger
	kill       KillSwitch
	tz         *time.Location
	scheduleTZ *time.Location

	// Hooks inyectables para tests deterministas.
	now   func() time.Time
	sleep func(ctx context.Context, attempt int)
	wait  func(ctx context.Context, d time.Duration)
}

// New construye un Trader. Falla si alguna de las zonas horarias
// configuradas no existe.
func New(cfg config.TraderConfig, exchange ports.Exchange, ledger ports.Ledger) (*Trader, error) {
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("autotrader.New: timezone %q: %w", cfg.Timezone, err)
	}
	scheduleTZ, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("autotrader.New: schedule timezone %q: %w", cfg.ScheduleTimezone, err)
	}

	t := &Trader{
		cfg:        cfg,
		exchange:   exchange,
		ledger:     ledger,
		kill:       KillSwitch{FilePath: cfg.KillSwitchFile},
		tz:         tz,
		scheduleTZ: scheduleTZ,
		now:        time.Now,
	}
	t.sleep = t.backoffSleep
	t.wait = waitCtx
	return t, nil
}

// todayKey devuelve la fecha de hoy en la zona del operador, formato ISO.
func (t *Trader) todayKey() string {
	return t.now().In(t.tz).Format("2006-01-02")
}

// ValidateLiveReadiness verifica que se puede operar en vivo: kill switch
// apagado y credenciales que firman de verdad contra el API.
func (t *Trader) ValidateLiveReadiness(ctx context.Context) error {
	if t.kill.Enabled() {
		return fmt.Errorf("autotrader: kill switch enabled; refusing live trading")
	}
	if err := t.exchange.AuthPreflight(ctx); err != nil {
		return fmt.Errorf("autotrader: auth preflight: %w", err)
	}
	return nil
}

// TradeBestEdges ejecuta un run completo sobre las apuestas dadas. En modo
// sim no toca el exchange para colocar órdenes pero registra todo igual:
// la contabilidad de exposición es idéntica en ambos modos.
func (t *Trader) TradeBestEdges(ctx context.Context, bets []domain.Bet, live bool) (domain.TradeResult, error) {
	var result domain.TradeResult

	if t.kill.Enabled() {
		slog.Warn("kill switch is on; skipping autotrader execution")
		return result, nil
	}

	candidates := make([]domain.Bet, 0, len(bets))
	for _, b := range bets {
		if b.Tradeable(t.cfg.MinEdge) {
			candidates = append(candidates, b)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EV > candidates[j].EV
	})
	slog.Info("autotrader run",
		"candidates", len(candidates),
		"min_edge", fmt.Sprintf("%.1f%%", t.cfg.MinEdge*100),
		"live", live,
	)

	dateKey := t.todayKey()
	existingIDs := t.ledger.SubmittedIDs(dateKey)

	openIDs := make(map[string]bool)
	if live {
		open, err := t.exchange.GetOpenOrders(ctx)
		if err != nil {
			// El ledger ya protege contra duplicados; el scan de open
			// orders es la segunda línea. Sin ella se sigue igual.
			slog.Warn("could not list open orders; relying on ledger only", "err", err)
		}
		for _, o := range open {
			if o.ClientOrderID != "" {
				openIDs[o.ClientOrderID] = true
			}
		}
	}

	var stats pipelineStats
	placed := 0

	for _, bet := range candidates {
		if placed >= t.cfg.MaxOrdersPerRun {
			stats.record(skipMaxOrders)
			break
		}

		quote, err := t.exchange.GetMarketPrices(ctx, bet.ContractTicker)
		if err != nil {
			// Sin precio taker no hay orden taker; la maker sigue siendo
			// válida porque cotiza contra el modelo, no contra el libro.
			slog.Warn("could not fetch market prices", "ticker", bet.ContractTicker, "err", err)
			quote = domain.MarketQuote{}
		}

		postOnly := false
		price := quote.TakerPrice()
		if price <= 0 {
			postOnly = true
			price = MakerPrice(bet.ModelProb, t.cfg.MakerDiscount, t.cfg.MinPrice, t.cfg.MaxPrice)
		}

		count := KellyContracts(t.cfg.Bankroll, t.cfg.KellyFraction, bet.ModelProb, price)
		if count <= 0 {
			stats.record(skipSize)
			continue
		}

		notional := float64(count) * price
		if !t.ledger.Admit(dateKey, bet.ContractTicker, notional) {
			slog.Info("risk cap hit, skipping", "ticker", bet.ContractTicker, "notional", fmt.Sprintf("%.2f", notional))
			stats.record(skipRiskCap)
			continue
		}

		yesPriceCents := PriceCents(price)
		clientOrderID := ClientOrderID(postOnly, dateKey, bet.ContractTicker, domain.SideYes, domain.ActionBuy, yesPriceCents)
		if existingIDs[clientOrderID] || openIDs[clientOrderID] {
			slog.Info("skipping duplicate order id", "client_order_id", clientOrderID)
			stats.record(skipDuplicate)
			continue
		}

		order, ok := t.place(ctx, bet, domain.OrderIntent{
			Ticker:        bet.ContractTicker,
			Side:          domain.SideYes,
			Action:        domain.ActionBuy,
			Count:         count,
			YesPriceCents: yesPriceCents,
			PostOnly:      postOnly,
			ClientOrderID: clientOrderID,
		}, dateKey, notional, live)
		if !ok {
			stats.record(skipPlaceFailed)
			continue
		}

		if postOnly {
			result.Maker = append(result.Maker, order)
		} else {
			result.Taker = append(result.Taker, order)
		}
		placed++
	}

	stats.log(len(candidates), placed)
	slog.Info("autotrader summary",
		"taker", len(result.Taker),
		"maker", len(result.Maker),
		"live", live,
		"daily_notional", fmt.Sprintf("%.2f", t.ledger.DailyNotional(dateKey)),
	)
	return result, nil
}

// place envía la orden (o la simula) y la registra en el ledger. En vivo
// reintenta con backoff exponencial; si todos los intentos fallan no se
// registra nada: una orden que no existe no consume exposición.
func (t *Trader) place(ctx context.Context, bet domain.Bet, intent domain.OrderIntent, dateKey string, notional float64, live bool) (domain.PlacedOrder, bool) {
	order := domain.PlacedOrder{
		Ticker:        intent.Ticker,
		TeamName:      bet.TeamName,
		Side:          intent.Side,
		Action:        intent.Action,
		Count:         intent.Count,
		YesPrice:      float64(intent.YesPriceCents) / 100,
		PostOnly:      intent.PostOnly,
		ClientOrderID: intent.ClientOrderID,
		OrderID:       intent.ClientOrderID, // en sim no hay id del exchange
		Notional:      notional,
		PlacedAt:      t.now(),
	}

	if live {
		success := false
		for attempt := 0; attempt < t.cfg.OrderRetries; attempt++ {
			placed, err := t.exchange.PlaceOrder(ctx, intent)
			if err == nil {
				if placed.OrderID != "" {
					order.OrderID = placed.OrderID
				}
				success = true
				break
			}
			slog.Warn("place order attempt failed",
				"ticker", intent.Ticker, "attempt", attempt+1, "err", err)
			if attempt < t.cfg.OrderRetries-1 {
				t.sleep(ctx, attempt)
			}
		}
		if !success {
			slog.Error("order failed after retries",
				"ticker", intent.Ticker, "side", intent.Side,
				"count", intent.Count, "yes_price", fmt.Sprintf("%.2f", order.YesPrice))
			return domain.PlacedOrder{}, false
		}
	}

	if err := t.ledger.Record(dateKey, order); err != nil {
		// La orden ya existe en el exchange; perder el registro es grave
		// pero cancelarla sería peor. Se loguea y sigue.
		slog.Error("could not record order in ledger", "client_order_id", order.ClientOrderID, "err", err)
	}

	mode := "SIM"
	if live {
		mode = "LIVE"
	}
	kind := "taker"
	if intent.PostOnly {
		kind = "maker"
	}
	slog.Info(mode+" order placed",
		"ticker", intent.Ticker, "count", intent.Count,
		"yes_price", fmt.Sprintf("%.2f", order.YesPrice),
		"kind", kind, "notional", fmt.Sprintf("%.2f", notional))
	return order, true
}

// backoffSleep espera 2^attempt segundos respetando el contexto.
func (t *Trader) backoffSleep(ctx context.Context, attempt int) {
	waitCtx(ctx, time.Duration(math.Pow(2, float64(attempt)))*time.Second)
}

func waitCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

type skipReason int

const (
	skipMaxOrders skipReason = iota
	skipSize
	skipRiskCap
	skipDuplicate
	skipPlaceFailed
)

type pipelineStats struct {
	maxOrders, size, riskCap, duplicate, placeFailed int
}

func (s *pipelineStats) record(r skipReason) {
	switch r {
	case skipMaxOrders:
		s.maxOrders++
	case skipSize:
		s.size++
	case skipRiskCap:
		s.riskCap++
	case skipDuplicate:
		s.duplicate++
	case skipPlaceFailed:
		s.placeFailed++
	}
}

func (s *pipelineStats) log(candidates, placed int) {
	slog.Info("autotrader pipeline",
		"candidates", candidates,
		"skip_size", s.size,
		"skip_risk_cap", s.riskCap,
		"skip_duplicate", s.duplicate,
		"skip_place_failed", s.placeFailed,
		"halt_max_orders", s.maxOrders,
		"placed", placed,
	)
}
