package kalshi

import "github.com/dylansloan2/barttorvik-machine/internal/domain"

// Wire types. La API expresa todos los precios en centavos enteros; el
// dominio trabaja en dólares, así que se normaliza al decodificar.

type apiMarket struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	Title       string `json:"title"`
	YesSubTitle string `json:"yes_sub_title"`
	YesBid      int    `json:"yes_bid"`
	YesAsk      int    `json:"yes_ask"`
	NoBid       int    `json:"no_bid"`
	NoAsk       int    `json:"no_ask"`
	LastPrice   int    `json:"last_price"`
	Volume      int    `json:"volume"`
	Status      string `json:"status"`
}

type marketsResponse struct {
	Markets []apiMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

type marketResponse struct {
	Market apiMarket `json:"market"`
}

type orderbookResponse struct {
	Orderbook struct {
		Yes [][2]int `json:"yes"`
		No  [][2]int `json:"no"`
	} `json:"orderbook"`
}

type apiOrder struct {
	OrderID        string `json:"order_id"`
	ClientOrderID  string `json:"client_order_id"`
	Ticker         string `json:"ticker"`
	Side           string `json:"side"`
	Action         string `json:"action"`
	RemainingCount int    `json:"remaining_count"`
	YesPrice       int    `json:"yes_price"`
}

type ordersResponse struct {
	Orders []apiOrder `json:"orders"`
	Cursor string     `json:"cursor"`
}

type orderRequest struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Type          string `json:"type"`
	Action        string `json:"action"`
	Side          string `json:"side"`
	Count         int    `json:"count"`
	YesPrice      int    `json:"yes_price"`
	PostOnly      bool   `json:"post_only"`
}

type orderResponse struct {
	Order apiOrder `json:"order"`
}

func centsToDollars(c int) float64 { return float64(c) / 100 }

func (m apiMarket) toDomain() domain.Market {
	return domain.Market{
		Ticker:      m.Ticker,
		EventTicker: m.EventTicker,
		Title:       m.Title,
		TeamName:    m.YesSubTitle,
		YesBid:      centsToDollars(m.YesBid),
		YesAsk:      centsToDollars(m.YesAsk),
		NoBid:       centsToDollars(m.NoBid),
		NoAsk:       centsToDollars(m.NoAsk),
		LastPrice:   centsToDollars(m.LastPrice),
		Volume:      m.Volume,
		Status:      m.Status,
	}
}

func (m apiMarket) toQuote() domain.MarketQuote {
	return domain.MarketQuote{
		YesBid:    centsToDollars(m.YesBid),
		YesAsk:    centsToDollars(m.YesAsk),
		NoBid:     centsToDollars(m.NoBid),
		NoAsk:     centsToDollars(m.NoAsk),
		LastPrice: centsToDollars(m.LastPrice),
	}
}

func (o apiOrder) toOpenOrder() domain.OpenOrder {
	return domain.OpenOrder{
		OrderID:        o.OrderID,
		ClientOrderID:  o.ClientOrderID,
		Ticker:         o.Ticker,
		Side:           o.Side,
		Action:         o.Action,
		RemainingCount: o.RemainingCount,
		YesPriceCents:  o.YesPrice,
	}
}
