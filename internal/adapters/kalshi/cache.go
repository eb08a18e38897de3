package kalshi

import (
	"sync"
	"time"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

// quoteCache es un cache TTL de quotes por ticker. Evita re-pedir el mismo
// mercado varias veces dentro de un ciclo del trader.
type quoteCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]quoteEntry

	now func() time.Time
}

type quoteEntry struct {
	quote     domain.MarketQuote
	expiresAt time.Time
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{
		ttl:   ttl,
		items: make(map[string]quoteEntry),
		now:   time.Now,
	}
}

func (q *quoteCache) get(ticker string) (domain.MarketQuote, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	entry, ok := q.items[ticker]
	if !ok || q.now().After(entry.expiresAt) {
		return domain.MarketQuote{}, false
	}
	return entry.quote, true
}

func (q *quoteCache) set(ticker string, quote domain.MarketQuote) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items[ticker] = quoteEntry{quote: quote, expiresAt: q.now().Add(q.ttl)}
}

func (q *quoteCache) invalidate(ticker string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, ticker)
}
