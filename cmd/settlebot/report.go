package main

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/settlebot/internal/adapters/notify"
	"github.com/alejandrodnm/settlebot/internal/adapters/storage"
	"github.com/alejandrodnm/settlebot/internal/engine"
	"github.com/alejandrodnm/settlebot/internal/ledger"
)

// printFinalReport imprime el balance final de la sesión al apagar el bot.
func printFinalReport(ctx context.Context, console *notify.Console, pnl *ledger.PnLTracker, book *ledger.Book, stats engine.ExecStats, store *storage.SQLiteStorage) {
	console.PrintFinalReport(pnl.Summary(), pnl.History(20))
	console.PrintExecStats(stats.Attempted, stats.Filled, stats.FillRate(), stats.Volume)

	if settled := book.Settled(); len(settled) > 0 {
		console.PrintPositions(settled)
	}
	if open := book.Open(); len(open) > 0 {
		console.PrintPositions(open)
	}

	opps, err := store.GetRecentOpportunities(ctx, 20)
	if err != nil {
		slog.Warn("could not load opportunity history", "err", err)
		return
	}
	console.PrintOpportunityHistory(opps)
}
