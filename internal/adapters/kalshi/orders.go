package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

// AuthPreflight verifica las credenciales con una lectura autenticada del
// portfolio. Sin credenciales falla cerrado con ErrAuthNotConfigured.
func (c *Client) AuthPreflight(ctx context.Context) error {
	var out ordersResponse
	if err := c.get(ctx, c.readLimiter, "/portfolio/orders?limit=1", true, &out); err != nil {
		return fmt.Errorf("kalshi.AuthPreflight: %w", err)
	}
	return nil
}

// PlaceOrder manda una orden limit al exchange. El client_order_id del
// intent viaja tal cual: es la clave de idempotencia del día.
func (c *Client) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.PlacedOrder, error) {
	body := orderRequest{
		Ticker:        intent.Ticker,
		ClientOrderID: intent.ClientOrderID,
		Type:          "limit",
		Action:        intent.Action,
		Side:          intent.Side,
		Count:         intent.Count,
		YesPrice:      intent.YesPriceCents,
		PostOnly:      intent.PostOnly,
	}
	var out orderResponse
	if err := c.post(ctx, c.writeLimiter, "/portfolio/orders", body, &out); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("kalshi.PlaceOrder %s: %w", intent.Ticker, err)
	}

	// El quote cacheado queda viejo apenas tocamos el libro.
	c.quotes.invalidate(intent.Ticker)

	return domain.PlacedOrder{
		Ticker:        intent.Ticker,
		Side:          intent.Side,
		Action:        intent.Action,
		Count:         intent.Count,
		YesPrice:      centsToDollars(intent.YesPriceCents),
		PostOnly:      intent.PostOnly,
		ClientOrderID: intent.ClientOrderID,
		OrderID:       out.Order.OrderID,
		Notional:      float64(intent.Count) * centsToDollars(intent.YesPriceCents),
		PlacedAt:      time.Now(),
	}, nil
}

// GetOpenOrders lista las órdenes resting del portfolio, paginando.
func (c *Client) GetOpenOrders(ctx context.Context) ([]domain.OpenOrder, error) {
	var orders []domain.OpenOrder
	cursor := ""
	for {
		params := url.Values{}
		params.Set("status", "resting")
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var page ordersResponse
		if err := c.get(ctx, c.readLimiter, "/portfolio/orders?"+params.Encode(), true, &page); err != nil {
			return nil, fmt.Errorf("kalshi.GetOpenOrders: %w", err)
		}
		for _, o := range page.Orders {
			orders = append(orders, o.toOpenOrder())
		}
		if page.Cursor == "" || len(page.Orders) == 0 {
			break
		}
		cursor = page.Cursor
	}
	return orders, nil
}

// CancelOrder cancela una orden por su order id del exchange.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.del(ctx, c.writeLimiter, "/portfolio/orders/"+url.PathEscape(orderID), nil); err != nil {
		return fmt.Errorf("kalshi.CancelOrder %s: %w", orderID, err)
	}
	return nil
}
