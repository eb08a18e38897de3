package autotrader

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

// tzAbbrevRe matchea las abreviaturas de zona que trae el schedule feed.
// Se descartan: el feed entero viene en la zona de schedule_timezone.
var tzAbbrevRe = regexp.MustCompile(`\b(ET|CT|MT|PT|EST|CST|MST|PST)\b`)

var spacesRe = regexp.MustCompile(`\s+`)

// tipoffFormats son los formatos aceptados para la hora de un partido.
var tipoffFormats = []string{"3:04 PM", "3 PM"}

// ParseTipoff interpreta un texto libre de tipoff ("7:00 PM ET", "9 pm")
// como hora del targetDate en la zona loc. Devuelve false si el texto no
// matchea ningún formato conocido.
func ParseTipoff(text string, targetDate time.Time, loc *time.Location) (time.Time, bool) {
	cleaned := strings.ToUpper(strings.TrimSpace(text))
	cleaned = strings.TrimSpace(tzAbbrevRe.ReplaceAllString(cleaned, ""))
	cleaned = spacesRe.ReplaceAllString(cleaned, " ")

	for _, format := range tipoffFormats {
		parsed, err := time.ParseInLocation(format, cleaned, loc)
		if err != nil {
			continue
		}
		return time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(),
			parsed.Hour(), parsed.Minute(), 0, 0, loc), true
	}
	return time.Time{}, false
}

// firstTipoff devuelve el primer tipoff del día en la zona del operador.
// Partidos sin hora o con texto imparseable se ignoran; si ninguno parsea
// no hay tipoff y la cancelación automática se salta.
func (t *Trader) firstTipoff(games []domain.Game, targetDate time.Time) (time.Time, bool) {
	var first time.Time
	found := false
	for _, game := range games {
		text := strings.TrimSpace(game.TimeText)
		if text == "" {
			continue
		}
		tipoff, ok := ParseTipoff(text, targetDate, t.scheduleTZ)
		if !ok {
			continue
		}
		tipoff = tipoff.In(t.tz)
		if !found || tipoff.Before(first) {
			first = tipoff
			found = true
		}
	}
	return first, found
}

// CancelMakerOrdersAtFirstTipoff espera hasta el primer tipoff del día y
// cancela las órdenes maker que sigan resting. Las maker quedan stale en
// cuanto arranca el primer partido: el modelo pre-juego ya no vale.
// Devuelve cuántas canceló.
func (t *Trader) CancelMakerOrdersAtFirstTipoff(ctx context.Context, games []domain.Game, makerOrders []domain.PlacedOrder, targetDate time.Time, live bool) int {
	firstTipoff, ok := t.firstTipoff(games, targetDate)
	if !ok {
		slog.Warn("could not determine first tipoff; skipping maker cancel automation")
		return 0
	}

	now := t.now().In(t.tz)
	if now.Before(firstTipoff) {
		remaining := firstTipoff.Sub(now)
		slog.Info("waiting until first tipoff to cancel maker orders",
			"tipoff", firstTipoff.Format(time.RFC3339),
			"wait", remaining.Truncate(time.Second).String(),
		)
		// Espera en tramos de poll_seconds para que ctx pueda cortar.
		poll := t.cfg.PollInterval()
		for remaining > 0 {
			if ctx.Err() != nil {
				return 0
			}
			chunk := remaining
			if chunk > poll {
				chunk = poll
			}
			t.wait(ctx, chunk)
			remaining -= chunk
		}
	}

	var orderIDs []string
	for _, o := range makerOrders {
		if o.OrderID != "" {
			orderIDs = append(orderIDs, o.OrderID)
		}
	}

	// Fallback: si el run que colocó las maker ya murió, se rescatan del
	// exchange por el prefijo mm- y la fecha de hoy en el client order id.
	if live && len(orderIDs) == 0 {
		open, err := t.exchange.GetOpenOrders(ctx)
		if err != nil {
			slog.Warn("could not list open orders for maker cancel fallback", "err", err)
		}
		today := t.todayKey()
		for _, o := range open {
			if strings.HasPrefix(o.ClientOrderID, "mm-") && strings.Contains(o.ClientOrderID, today) && o.OrderID != "" {
				orderIDs = append(orderIDs, o.OrderID)
			}
		}
	}

	canceled := 0
	for _, orderID := range orderIDs {
		if !live {
			canceled++
			slog.Info("SIM cancel maker order", "order_id", orderID)
			continue
		}
		if err := t.exchange.CancelOrder(ctx, orderID); err != nil {
			slog.Warn("cancel maker order failed", "order_id", orderID, "err", err)
			continue
		}
		canceled++
		slog.Info("canceled maker order", "order_id", orderID)
	}
	return canceled
}
