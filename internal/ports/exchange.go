package ports

import (
	"context"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

// Exchange places, cancels, and inspects orders on Kalshi.
type Exchange interface {
	// AuthPreflight verifies the signed-request capability by reading the
	// account's resting orders. It must succeed before any live order.
	AuthPreflight(ctx context.Context) error

	// GetMarketPrices returns the current quote for a single ticker.
	GetMarketPrices(ctx context.Context, ticker string) (domain.MarketQuote, error)

	// PlaceOrder submits a limit order. The exchange treats a repeated
	// client_order_id as idempotent (returns the existing order).
	PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.PlacedOrder, error)

	// CancelOrder cancels a resting order by its exchange order id.
	CancelOrder(ctx context.Context, orderID string) error

	// GetOpenOrders returns all currently resting orders for the account.
	GetOpenOrders(ctx context.Context) ([]domain.OpenOrder, error)
}
