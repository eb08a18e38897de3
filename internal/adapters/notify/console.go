package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
	"github.com/dylansloan2/barttorvik-machine/internal/ports"
)

// Console imprime el resultado de los runs a stdout.
type Console struct {
	out io.Writer
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintRun imprime el resumen de un run y la tabla de órdenes colocadas.
func (c *Console) PrintRun(run ports.RunSummary, result domain.TradeResult) {
	now := time.Now().Format("15:04:05")

	if result.Total() == 0 {
		fmt.Fprintf(c.out, "[%s][%s] %d candidates → no orders placed\n",
			now, strings.ToUpper(run.Mode), run.Candidates)
		return
	}

	fmt.Fprintf(c.out, "\n[%s][%s] %d candidates → %d taker + %d maker ($%.2f hoy)\n",
		now, strings.ToUpper(run.Mode), run.Candidates,
		len(result.Taker), len(result.Maker), run.DailyNotional)

	c.printOrders(append(append([]domain.PlacedOrder{}, result.Taker...), result.Maker...))
}

// printOrders imprime la tabla de órdenes.
func (c *Console) printOrders(orders []domain.PlacedOrder) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Kind", "Ticker", "Team", "Side", "Count", "Price", "Notional", "Order ID")

	for _, o := range orders {
		table.Append(
			orderKind(o.ClientOrderID),
			o.Ticker,
			truncate(o.TeamName, 22),
			o.Side,
			fmt.Sprintf("%d", o.Count),
			fmt.Sprintf("$%.2f", o.YesPrice),
			fmt.Sprintf("$%.2f", o.Notional),
			o.OrderID,
		)
	}
	table.Render()
}

// PrintReport imprime el histórico de runs y las órdenes de un día.
func (c *Console) PrintReport(runs []ports.RunSummary, dateKey string, orders []domain.PlacedOrder) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No runs recorded yet.")
		return
	}

	fmt.Fprintf(c.out, "\n=== AUTOTRADER RUNS (last %d) ===\n", len(runs))
	table := tablewriter.NewWriter(c.out)
	table.Header("Started", "Mode", "Cands", "Taker", "Maker", "Canceled", "Notional")
	for _, r := range runs {
		table.Append(
			r.StartedAt.Format("01-02 15:04"),
			r.Mode,
			fmt.Sprintf("%d", r.Candidates),
			fmt.Sprintf("%d", r.TakerOrders),
			fmt.Sprintf("%d", r.MakerOrders),
			fmt.Sprintf("%d", r.Canceled),
			fmt.Sprintf("$%.2f", r.DailyNotional),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "\n=== ORDERS %s (%d) ===\n", dateKey, len(orders))
	if len(orders) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}
	c.printOrders(orders)
}

// orderKind clasifica por prefijo del client order id.
func orderKind(clientOrderID string) string {
	switch {
	case strings.HasPrefix(clientOrderID, "mm-"):
		return "maker"
	case strings.HasPrefix(clientOrderID, "tk-"):
		return "taker"
	default:
		return "?"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
