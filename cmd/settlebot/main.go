package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/settlebot/config"
	"github.com/alejandrodnm/settlebot/internal/adapters/notify"
	"github.com/alejandrodnm/settlebot/internal/adapters/polymarket"
	"github.com/alejandrodnm/settlebot/internal/adapters/storage"
	"github.com/alejandrodnm/settlebot/internal/alert"
	"github.com/alejandrodnm/settlebot/internal/dashboard"
	"github.com/alejandrodnm/settlebot/internal/engine"
	"github.com/alejandrodnm/settlebot/internal/ledger"
	"github.com/alejandrodnm/settlebot/internal/scanner"
	"github.com/alejandrodnm/settlebot/internal/settlement"
	"github.com/alejandrodnm/settlebot/internal/timer"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one orchestration cycle and exit")
	table := flag.Bool("table", false, "print full opportunity tables (default: compact 1-line)")
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

	slog.Info("settlebot starting",
		"config", *configPath,
		"band", cfg.Strategy.MinThreshold,
		"balance", cfg.Strategy.StartingBalance,
		"max_positions", cfg.Strategy.MaxPositions,
		"lead", cfg.LeadTime(),
		"once", *once,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	var senders []alert.Sender
	if cfg.Alerts.WebhookURL != "" {
		senders = append(senders, notify.NewWebhook(cfg.Alerts.WebhookURL))
	}
	if cfg.Alerts.Email.Host != "" {
		senders = append(senders, notify.NewEmail(notify.EmailConfig{
			Host:     cfg.Alerts.Email.Host,
			Port:     cfg.Alerts.Email.Port,
			Username: cfg.Alerts.Email.Username,
			Password: cfg.Alerts.Email.Password,
			From:     cfg.Alerts.Email.From,
			To:       cfg.Alerts.Email.To,
		}))
	}
	alerts := alert.NewManager(senders,
		alert.WithMinSeverity(parseSeverity(cfg.Alerts.MinSeverity)),
		alert.WithCooldown(cfg.AlertCooldown()),
	)

	l := ledger.New(cfg.Strategy.StartingBalance, cfg.Strategy.CapitalSplit, cfg.Strategy.MaxPositions)
	book := ledger.NewBook(cfg.Strategy.MaxPositions)
	pnl := ledger.NewPnLTracker(cfg.Strategy.StartingBalance)
	tmr := timer.New(cfg.LeadTime())

	cache := engine.NewMarketCache(client, cfg.CacheTTL())
	scanCfg := scanner.DefaultConfig()
	scanCfg.MinThreshold = cfg.Strategy.MinThreshold
	scanCfg.MaxThreshold = cfg.Strategy.MaxThreshold
	scn := scanner.New(scanCfg, cache, client)

	exec := engine.NewExecutor(l, book, pnl, client, store, alerts)
	settle := settlement.New(l, book, pnl, client, store, alerts)
	console := notify.NewConsole(*table)

	eng := engine.New(
		engine.Config{
			PollInterval: cfg.PollInterval(),
			LeadTime:     cfg.LeadTime(),
			MaxOpen:      cfg.Strategy.MaxPositions,
			DryRun:       *once,
			OnCycle: func(r engine.CycleResult) {
				console.PrintCycleStatus(notify.CycleStatusInput{
					Detected:  r.Detected,
					Armed:     r.Armed,
					Executed:  r.Executed,
					Settled:   r.Settled,
					OpenCount: book.OpenCount(),
					MaxOpen:   cfg.Strategy.MaxPositions,
					Balance:   l.Balance(),
					Deployed:  l.Deployed(),
					TotalPnL:  pnl.Summary().TotalPnL,
				})
			},
		},
		scn, tmr, l, book, pnl, exec, settle, store, console, alerts,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Dashboard.Enabled {
		dash := dashboard.New(cfg.Dashboard.Addr, eng, configView(cfg))
		go func() {
			if err := dash.Run(ctx); err != nil {
				slog.Error("dashboard exited with error", "err", err)
			}
		}()
	}

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	printFinalReport(context.WithoutCancel(ctx), console, pnl, book, exec.Stats(), store)
	slog.Info("settlebot stopped cleanly")
}

// configView es el snapshot de configuración que expone el dashboard.
func configView(cfg *config.Config) map[string]any {
	return map[string]any{
		"min_threshold":         cfg.Strategy.MinThreshold,
		"max_threshold":         cfg.Strategy.MaxThreshold,
		"starting_balance":      cfg.Strategy.StartingBalance,
		"capital_split":         cfg.Strategy.CapitalSplit,
		"max_positions":         cfg.Strategy.MaxPositions,
		"lead_seconds":          cfg.Strategy.LeadSeconds,
		"poll_interval_seconds": cfg.Strategy.PollIntervalSeconds,
	}
}

func parseSeverity(s string) alert.Severity {
	switch s {
	case "info":
		return alert.SeverityInfo
	case "error":
		return alert.SeverityError
	case "critical":
		return alert.SeverityCritical
	default:
		return alert.SeverityWarning
	}
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
