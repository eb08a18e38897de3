package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

const (
	// MakeTournamentSeries es la serie "make the tournament" de March Madness.
	MakeTournamentSeries = "KXMAKEMARMAD"

	marketsPageLimit = 200
)

// ConferenceSeries mapea nombre de conferencia al series ticker de su
// campeonato de temporada regular.
var ConferenceSeries = map[string]string{
	"SEC":                          "KXSECREG",
	"Big 12":                       "KXBIG12REG",
	"ACC":                          "KXACCREG",
	"Big Ten":                      "KXBIG10REG",
	"Big East":                     "KXBIGEASTREG",
	"West Coast Conference":        "KXWCCREG",
	"Mountain West Conference":     "KXMWREG",
	"Atlantic 10 Conference":       "KXA10REG",
	"American Athletic Conference": "KXAACREG",
}

// Preflight verifica que la API responde, sin autenticación.
func (c *Client) Preflight(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")
	params.Set("status", "open")
	var out marketsResponse
	if err := c.get(ctx, c.readLimiter, "/markets?"+params.Encode(), false, &out); err != nil {
		return fmt.Errorf("kalshi.Preflight: %w", err)
	}
	return nil
}

// GetMarkets lista mercados paginando con cursor hasta agotar resultados.
// series y status son opcionales.
func (c *Client) GetMarkets(ctx context.Context, series, status string) ([]domain.Market, error) {
	params := url.Values{}
	if series != "" {
		params.Set("series_ticker", series)
	}
	if status != "" {
		params.Set("status", status)
	}
	return c.listMarkets(ctx, params)
}

// GetEventMarkets lista los mercados de un evento.
func (c *Client) GetEventMarkets(ctx context.Context, eventTicker string) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("event_ticker", eventTicker)
	return c.listMarkets(ctx, params)
}

func (c *Client) listMarkets(ctx context.Context, params url.Values) ([]domain.Market, error) {
	params.Set("limit", strconv.Itoa(marketsPageLimit))

	var markets []domain.Market
	cursor := ""
	for {
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var page marketsResponse
		if err := c.get(ctx, c.readLimiter, "/markets?"+params.Encode(), false, &page); err != nil {
			return nil, fmt.Errorf("kalshi.listMarkets: %w", err)
		}
		for _, m := range page.Markets {
			markets = append(markets, m.toDomain())
		}
		if page.Cursor == "" || len(page.Markets) == 0 {
			break
		}
		cursor = page.Cursor
	}
	return markets, nil
}

// GetMarket trae un mercado por ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (domain.Market, error) {
	var out marketResponse
	if err := c.get(ctx, c.readLimiter, "/markets/"+url.PathEscape(ticker), false, &out); err != nil {
		return domain.Market{}, fmt.Errorf("kalshi.GetMarket %s: %w", ticker, err)
	}
	return out.Market.toDomain(), nil
}

// GetMarketPrices devuelve el quote de un mercado, con cache TTL.
func (c *Client) GetMarketPrices(ctx context.Context, ticker string) (domain.MarketQuote, error) {
	if quote, ok := c.quotes.get(ticker); ok {
		return quote, nil
	}
	return c.RefreshMarketPrices(ctx, ticker)
}

// RefreshMarketPrices fuerza un fetch fresco del quote, saltando el cache.
func (c *Client) RefreshMarketPrices(ctx context.Context, ticker string) (domain.MarketQuote, error) {
	var out marketResponse
	if err := c.get(ctx, c.readLimiter, "/markets/"+url.PathEscape(ticker), false, &out); err != nil {
		return domain.MarketQuote{}, fmt.Errorf("kalshi.GetMarketPrices %s: %w", ticker, err)
	}
	quote := out.Market.toQuote()
	c.quotes.set(ticker, quote)
	return quote, nil
}

// GetOrderbook trae el libro de un mercado. Niveles [precio_centavos, cantidad].
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (domain.Orderbook, error) {
	var out orderbookResponse
	path := "/markets/" + url.PathEscape(ticker) + "/orderbook"
	if err := c.get(ctx, c.readLimiter, path, false, &out); err != nil {
		return domain.Orderbook{}, fmt.Errorf("kalshi.GetOrderbook %s: %w", ticker, err)
	}
	book := domain.Orderbook{}
	for _, lvl := range out.Orderbook.Yes {
		book.Yes = append(book.Yes, domain.OrderbookLevel(lvl))
	}
	for _, lvl := range out.Orderbook.No {
		book.No = append(book.No, domain.OrderbookLevel(lvl))
	}
	return book, nil
}

// FindMarketsByTitle filtra los mercados de una serie por substring del
// título, case-insensitive. Útil para resolver equipos a tickers cuando el
// yes_sub_title no alcanza.
func (c *Client) FindMarketsByTitle(ctx context.Context, series, query string) ([]domain.Market, error) {
	markets, err := c.GetMarkets(ctx, series, "open")
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var matched []domain.Market
	for _, m := range markets {
		if strings.Contains(strings.ToLower(m.Title), q) || strings.Contains(strings.ToLower(m.TeamName), q) {
			matched = append(matched, m)
		}
	}
	return matched, nil
}

// TeamFromTicker extrae el identificador de equipo del ticker del mercado
// (el último segmento después del guión).
func TeamFromTicker(ticker string) string {
	idx := strings.LastIndex(ticker, "-")
	if idx < 0 || idx == len(ticker)-1 {
		return ticker
	}
	return ticker[idx+1:]
}
