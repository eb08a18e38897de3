package domain

import "time"

// Side y Action usan los literales del API de Kalshi.
const (
	SideYes = "yes"
	SideNo  = "no"

	ActionBuy  = "buy"
	ActionSell = "sell"
)

// OrderIntent es una orden lista para enviar al exchange. Transient: se
// construye por candidato y muere en el mismo run.
type OrderIntent struct {
	Ticker        string
	Side          string
	Action        string
	Count         int
	YesPriceCents int
	PostOnly      bool
	ClientOrderID string
}

// PlacedOrder es una orden confirmada (sim o live). Inmutable una vez creada;
// el ledger nunca la borra ni la modifica.
type PlacedOrder struct {
	Ticker        string    `json:"ticker"`
	TeamName      string    `json:"team_name"`
	Side          string    `json:"side"`
	Action        string    `json:"action"`
	Count         int       `json:"count"`
	YesPrice      float64   `json:"yes_price"`
	PostOnly      bool      `json:"post_only"`
	ClientOrderID string    `json:"client_order_id"`
	OrderID       string    `json:"order_id"` // id del exchange; en sim coincide con ClientOrderID
	Notional      float64   `json:"notional"` // count * yes_price
	PlacedAt      time.Time `json:"-"`
}

// OpenOrder is a resting order as reported by the exchange.
type OpenOrder struct {
	OrderID        string
	ClientOrderID  string
	Ticker         string
	Side           string
	Action         string
	RemainingCount int
	YesPriceCents  int
}

// TradeResult es el resultado de un run del autotrader, separado por modo.
type TradeResult struct {
	Taker []PlacedOrder
	Maker []PlacedOrder
}

// Total devuelve el número de órdenes colocadas en el run.
func (r TradeResult) Total() int {
	return len(r.Taker) + len(r.Maker)
}

// Notional devuelve el notional agregado del run.
func (r TradeResult) Notional() float64 {
	var total float64
	for _, o := range r.Taker {
		total += o.Notional
	}
	for _, o := range r.Maker {
		total += o.Notional
	}
	return total
}
