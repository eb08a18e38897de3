package domain

// Market es un mercado de Kalshi ya normalizado (precios en dólares).
type Market struct {
	Ticker      string
	EventTicker string
	Title       string
	TeamName    string // yes_sub_title, o extraído del sufijo del ticker
	YesBid      float64
	YesAsk      float64
	NoBid       float64
	NoAsk       float64
	LastPrice   float64
	Volume      int
	Status      string
}

// MarketQuote son los precios actuales de un mercado en dólares.
type MarketQuote struct {
	YesBid    float64
	YesAsk    float64
	NoBid     float64
	NoAsk     float64
	LastPrice float64
}

// TakerPrice devuelve el precio al que se puede comprar YES ahora mismo:
// el mejor ask, o el último precio cruzado si no hay asks. Cero significa
// que no hay precio taker disponible.
func (q MarketQuote) TakerPrice() float64 {
	if q.YesAsk > 0 {
		return q.YesAsk
	}
	return q.LastPrice
}

// OrderbookLevel is one resting price level: [price_cents, contracts].
type OrderbookLevel [2]int

// Orderbook holds resting YES/NO liquidity for a market.
type Orderbook struct {
	Yes []OrderbookLevel
	No  []OrderbookLevel
}
