package ports

import "github.com/dylansloan2/barttorvik-machine/internal/domain"

// Ledger is the durable per-day record of submitted orders and notional.
// Single-writer within the process: every mutation happens inside the same
// call path that performed the admission check.
type Ledger interface {
	// SubmittedIDs returns the client order ids recorded for the given date key.
	SubmittedIDs(dateKey string) map[string]bool

	// DailyNotional sums the notional of all orders recorded for the date.
	DailyNotional(dateKey string) float64

	// MarketNotional sums the notional recorded for (date, ticker).
	MarketNotional(dateKey, ticker string) float64

	// Admit reports whether adding notional for ticker today would stay
	// within the daily and per-market caps. Caps are hard stops.
	Admit(dateKey, ticker string, notional float64) bool

	// Record appends the order to the date bucket and persists the whole
	// ledger before returning.
	Record(dateKey string, order domain.PlacedOrder) error
}
