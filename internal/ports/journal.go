package ports

import (
	"context"
	"time"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

// RunSummary es el resumen persistido de un run del autotrader.
type RunSummary struct {
	RunID         string
	StartedAt     time.Time
	Mode          string // "sim" | "live"
	Candidates    int
	TakerOrders   int
	MakerOrders   int
	Canceled      int
	DailyNotional float64
}

// Journal archives run summaries and placed orders for later reporting.
// Separate from the Ledger: losing the journal never affects risk accounting.
type Journal interface {
	SaveRun(ctx context.Context, run RunSummary, orders []domain.PlacedOrder) error
	GetRuns(ctx context.Context, limit int) ([]RunSummary, error)
	GetOrders(ctx context.Context, dateKey string) ([]domain.PlacedOrder, error)
	Close() error
}
