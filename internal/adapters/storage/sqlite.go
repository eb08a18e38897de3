// Package storage implementa el journal de runs en SQLite.
//
// El journal es histórico para reporting, no estado de riesgo: la
// idempotencia y los caps viven en el ledger JSON. Perder esta DB nunca
// puede causar una orden duplicada.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
	"github.com/dylansloan2/barttorvik-machine/internal/ports"
)

const schema = `
-- Un resumen por run del autotrader
CREATE TABLE IF NOT EXISTS runs (
    run_id         TEXT PRIMARY KEY,
    started_at     DATETIME NOT NULL,
    mode           TEXT     NOT NULL,
    candidates     INTEGER  NOT NULL DEFAULT 0,
    taker_orders   INTEGER  NOT NULL DEFAULT 0,
    maker_orders   INTEGER  NOT NULL DEFAULT 0,
    canceled       INTEGER  NOT NULL DEFAULT 0,
    daily_notional REAL     NOT NULL DEFAULT 0
);

-- Una fila por orden colocada (sim o live)
CREATE TABLE IF NOT EXISTS autotrader_orders (
    client_order_id TEXT PRIMARY KEY,
    run_id          TEXT    NOT NULL REFERENCES runs(run_id),
    date_key        TEXT    NOT NULL,
    ticker          TEXT    NOT NULL,
    team_name       TEXT,
    side            TEXT    NOT NULL,
    action          TEXT    NOT NULL,
    count           INTEGER NOT NULL,
    yes_price       REAL    NOT NULL,
    post_only       INTEGER NOT NULL DEFAULT 0,
    order_id        TEXT,
    notional        REAL    NOT NULL DEFAULT 0,
    placed_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started   ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_date    ON autotrader_orders(date_key);
CREATE INDEX IF NOT EXISTS idx_orders_run     ON autotrader_orders(run_id);
`

// SQLiteJournal implementa ports.Journal usando SQLite (pure Go, sin CGo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal abre (o crea) la base de datos y aplica el schema.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// SaveRun persiste el resumen del run y sus órdenes en una transacción.
// Si run.RunID viene vacío se genera un uuid.
func (s *SQLiteJournal) SaveRun(ctx context.Context, run ports.RunSummary, orders []domain.PlacedOrder) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, mode, candidates, taker_orders, maker_orders, canceled, daily_notional)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC(), run.Mode, run.Candidates,
		run.TakerOrders, run.MakerOrders, run.Canceled, run.DailyNotional,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	for _, o := range orders {
		postOnly := 0
		if o.PostOnly {
			postOnly = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO autotrader_orders
				(client_order_id, run_id, date_key, ticker, team_name, side, action,
				 count, yes_price, post_only, order_id, notional, placed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(client_order_id) DO NOTHING`,
			o.ClientOrderID, run.RunID, o.PlacedAt.UTC().Format("2006-01-02"),
			o.Ticker, o.TeamName, o.Side, o.Action,
			o.Count, o.YesPrice, postOnly, o.OrderID, o.Notional, o.PlacedAt.UTC(),
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert order %s: %w", o.ClientOrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRuns devuelve los últimos runs, más recientes primero.
func (s *SQLiteJournal) GetRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, mode, candidates, taker_orders, maker_orders, canceled, daily_notional
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []ports.RunSummary
	for rows.Next() {
		var r ports.RunSummary
		var startedAt string
		if err := rows.Scan(&r.RunID, &startedAt, &r.Mode, &r.Candidates,
			&r.TakerOrders, &r.MakerOrders, &r.Canceled, &r.DailyNotional); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetOrders devuelve las órdenes de un día, en orden de colocación.
func (s *SQLiteJournal) GetOrders(ctx context.Context, dateKey string) ([]domain.PlacedOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_order_id, ticker, team_name, side, action, count,
		       yes_price, post_only, order_id, notional, placed_at
		FROM autotrader_orders WHERE date_key = ? ORDER BY placed_at`, dateKey)
	if err != nil {
		return nil, fmt.Errorf("storage.GetOrders: query: %w", err)
	}
	defer rows.Close()

	var orders []domain.PlacedOrder
	for rows.Next() {
		var o domain.PlacedOrder
		var teamName, orderID sql.NullString
		var postOnly int
		var placedAt string
		if err := rows.Scan(&o.ClientOrderID, &o.Ticker, &teamName, &o.Side, &o.Action,
			&o.Count, &o.YesPrice, &postOnly, &orderID, &o.Notional, &placedAt); err != nil {
			return nil, fmt.Errorf("storage.GetOrders: scan row: %w", err)
		}
		o.TeamName = teamName.String
		o.OrderID = orderID.String
		o.PostOnly = postOnly == 1
		o.PlacedAt, _ = time.Parse(time.RFC3339, placedAt)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
