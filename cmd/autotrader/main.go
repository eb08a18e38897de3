package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dylansloan2/barttorvik-machine/config"
	"github.com/dylansloan2/barttorvik-machine/internal/adapters/feed"
	"github.com/dylansloan2/barttorvik-machine/internal/adapters/kalshi"
	"github.com/dylansloan2/barttorvik-machine/internal/adapters/notify"
	"github.com/dylansloan2/barttorvik-machine/internal/adapters/state"
	"github.com/dylansloan2/barttorvik-machine/internal/adapters/storage"
	"github.com/dylansloan2/barttorvik-machine/internal/autotrader"
	"github.com/dylansloan2/barttorvik-machine/internal/domain"
	"github.com/dylansloan2/barttorvik-machine/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	betsPath := flag.String("bets", "out/best_bets.json", "path to ranked bets JSON")
	schedulePath := flag.String("schedule", "out/schedule.json", "path to schedule JSON")
	live := flag.Bool("live", false, "place real orders (default: simulate)")
	cancelAtTipoff := flag.Bool("cancel-at-tipoff", false, "wait for first tipoff and cancel resting maker orders")
	report := flag.Bool("report", false, "print run history and today's orders, then exit")
	reportDate := flag.String("date", "", "date key for --report (default: today)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	journal, err := storage.NewSQLiteJournal(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open journal", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer journal.Close()

	console := notify.NewConsole()

	if *report {
		runReport(ctx, journal, console, *reportDate, cfg.Trader.Timezone)
		return
	}

	slog.Info("autotrader starting",
		"config", *configPath,
		"live", *live,
		"bankroll", cfg.Trader.Bankroll,
		"base_url", cfg.Kalshi.BaseURL,
	)

	creds, err := kalshi.LoadCredentials(cfg.Kalshi.KeyID, cfg.Kalshi.PrivateKeyPath)
	if err != nil && !errors.Is(err, kalshi.ErrAuthNotConfigured) {
		slog.Error("failed to load credentials", "err", err)
		os.Exit(1)
	}
	client := kalshi.NewClient(cfg.Kalshi.BaseURL, creds)

	if err := client.Preflight(ctx); err != nil {
		slog.Error("kalshi API unreachable", "err", err)
		os.Exit(1)
	}

	ledger, err := state.Load(cfg.Storage.StateFile, cfg.Trader.MaxDailyExposure, cfg.Trader.MaxPerMarketExposure)
	if err != nil {
		slog.Error("failed to load state ledger", "err", err, "path", cfg.Storage.StateFile)
		os.Exit(1)
	}

	trader, err := autotrader.New(cfg.Trader, client, ledger)
	if err != nil {
		slog.Error("failed to build trader", "err", err)
		os.Exit(1)
	}

	if *live {
		if err := trader.ValidateLiveReadiness(ctx); err != nil {
			slog.Error("live trading blocked", "err", err)
			os.Exit(1)
		}
	}

	bets, err := feed.FileBets{Path: *betsPath}.LoadBets(ctx)
	if err != nil {
		slog.Error("failed to load bets", "err", err, "path", *betsPath)
		os.Exit(1)
	}

	startedAt := time.Now()
	result, err := trader.TradeBestEdges(ctx, bets, *live)
	if err != nil {
		slog.Error("autotrader run failed", "err", err)
		os.Exit(1)
	}

	canceled := 0
	if *cancelAtTipoff {
		games, err := feed.FileGames{Path: *schedulePath}.LoadGames(ctx)
		if err != nil {
			slog.Warn("failed to load schedule; skipping maker cancel automation", "err", err)
		} else {
			canceled = trader.CancelMakerOrdersAtFirstTipoff(ctx, games, result.Maker, startedAt, *live)
		}
	}

	mode := "sim"
	if *live {
		mode = "live"
	}
	run := ports.RunSummary{
		StartedAt:     startedAt,
		Mode:          mode,
		Candidates:    len(bets),
		TakerOrders:   len(result.Taker),
		MakerOrders:   len(result.Maker),
		Canceled:      canceled,
		DailyNotional: result.Notional(),
	}
	orders := append(append([]domain.PlacedOrder{}, result.Taker...), result.Maker...)
	if err := journal.SaveRun(ctx, run, orders); err != nil {
		slog.Warn("failed to journal run", "err", err)
	}

	console.PrintRun(run, result)
	slog.Info("autotrader stopped cleanly")
}

func runReport(ctx context.Context, journal *storage.SQLiteJournal, console *notify.Console, dateKey, timezone string) {
	if dateKey == "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			loc = time.Local
		}
		dateKey = time.Now().In(loc).Format("2006-01-02")
	}

	runs, err := journal.GetRuns(ctx, 20)
	if err != nil {
		slog.Error("failed to read runs", "err", err)
		os.Exit(1)
	}
	orders, err := journal.GetOrders(ctx, dateKey)
	if err != nil {
		slog.Error("failed to read orders", "err", err)
		os.Exit(1)
	}
	console.PrintReport(runs, dateKey, orders)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
