package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/settlebot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier e imprime el estado del bot por stdout.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime las oportunidades detectadas en el ciclo.
func (c *Console) Notify(_ context.Context, opportunities []domain.Opportunity) error {
	if len(opportunities) == 0 {
		fmt.Fprintf(c.out, "[%s] no opportunities in band\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printTable(opportunities)
	} else {
		c.printCompact(opportunities)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(opps []domain.Opportunity) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d opportunities", time.Now().Format("15:04:05"), len(opps))

	shown := 0
	for _, opp := range opps {
		if shown >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s @%.3f edge %.2f%% %s",
			compactName(opp, 25), opp.Price, opp.EdgePercent,
			closesIn(opp.SecondsToClose))
		shown++
	}
	fmt.Fprintln(c.out, sb.String())
}

// printTable imprime la tabla completa de oportunidades.
func (c *Console) printTable(opps []domain.Opportunity) {
	fmt.Fprintf(c.out, "\n[%s] %d opportunities in band\n",
		time.Now().Format("15:04:05"), len(opps))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Cat", "Price", "Edge%", "Closes In")

	for i, opp := range opps {
		table.Append(
			fmt.Sprintf("%d", i+1),
			compactName(opp, 45),
			opp.Category.String(),
			fmt.Sprintf("%.3f", opp.Price),
			fmt.Sprintf("%.2f%%", opp.EdgePercent),
			closesIn(opp.SecondsToClose),
		)
	}
	table.Render()
}

// PrintPositions imprime las posiciones en una tabla.
func (c *Console) PrintPositions(positions []domain.Position) {
	if len(positions) == 0 {
		fmt.Fprintln(c.out, "  no positions")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Position", "Market", "Shares", "Entry", "Status", "PnL")

	for _, pos := range positions {
		pnl := "-"
		if pos.Status == domain.PositionSettled {
			pnl = fmt.Sprintf("$%.2f", pos.RealizedPnL)
		}
		table.Append(
			pos.ID,
			domain.TruncateQuestion(pos.Question, pos.MarketID, 40),
			fmt.Sprintf("%.2f", pos.Shares),
			fmt.Sprintf("$%.4f", pos.EntryPrice),
			string(pos.Status),
			pnl,
		)
	}
	table.Render()
}

// CycleStatusInput agrupa lo que PrintCycleStatus necesita.
type CycleStatusInput struct {
	Detected  int
	Armed     int
	Executed  int
	Settled   int
	OpenCount int
	MaxOpen   int
	Balance   float64
	Deployed  float64
	TotalPnL  float64
}

// PrintCycleStatus imprime el resumen compacto de un ciclo de orquestación.
func (c *Console) PrintCycleStatus(in CycleStatusInput) {
	fmt.Fprintf(c.out,
		"[%s][PAPER] opps %d | armed %d | exec %d | settled %d | pos %d/%d | bal $%.2f | deployed $%.2f | pnl $%.2f\n",
		time.Now().Format("15:04:05"),
		in.Detected, in.Armed, in.Executed, in.Settled,
		in.OpenCount, in.MaxOpen, in.Balance, in.Deployed, in.TotalPnL,
	)
}

// PrintOpportunityHistory imprime las últimas oportunidades auditadas con su
// estado final.
func (c *Console) PrintOpportunityHistory(opps []domain.Opportunity) {
	if len(opps) == 0 {
		return
	}
	fmt.Fprintln(c.out, "\n  Recent opportunities:")

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Price", "Edge%", "Status", "Detected")
	for _, opp := range opps {
		table.Append(
			compactName(opp, 45),
			fmt.Sprintf("%.3f", opp.Price),
			fmt.Sprintf("%.2f%%", opp.EdgePercent),
			string(opp.Status),
			opp.DetectedAt.Format("15:04:05"),
		)
	}
	table.Render()
}

// PrintExecStats imprime la actividad de ejecución de la sesión.
func (c *Console) PrintExecStats(attempted, filled int, fillRate, volume float64) {
	fmt.Fprintf(c.out, "  Executions: %d attempted, %d filled (%.0f%%), volume $%.2f\n",
		attempted, filled, fillRate*100, volume)
}

// PrintFinalReport imprime el informe final de la sesión de paper trading.
func (c *Console) PrintFinalReport(summary domain.PnLSummary, trades []domain.TradeRecord) {
	fmt.Fprintln(c.out, "\n=== FINAL PAPER TRADING REPORT ===")
	fmt.Fprintf(c.out, "  Initial balance: $%.2f\n", summary.InitialBalance)
	fmt.Fprintf(c.out, "  Final balance:   $%.2f\n", summary.CurrentBalance)
	fmt.Fprintf(c.out, "  Total PnL:       $%.2f (%.2f%%)\n",
		summary.TotalPnL, pct(summary.TotalPnL, summary.InitialBalance))
	fmt.Fprintf(c.out, "  Trades: %d (W:%d L:%d, win rate %.1f%%)\n",
		summary.TotalTrades, summary.Wins, summary.Losses, summary.WinRate)
	fmt.Fprintf(c.out, "  Avg win $%.2f | avg loss $%.2f | profit factor %.2f\n",
		summary.AverageWin, summary.AverageLoss, summary.ProfitFactor)
	fmt.Fprintf(c.out, "  Max drawdown: %.2f%% (peak $%.2f)\n",
		summary.MaxDrawdown, summary.PeakBalance)

	if len(trades) == 0 {
		fmt.Fprintln(c.out)
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Trade", "Market", "Qty", "Entry", "Exit", "PnL")
	for _, tr := range trades {
		exit := "-"
		if tr.Closed() {
			exit = fmt.Sprintf("$%.4f", tr.ExitPrice)
		}
		table.Append(
			tr.ID,
			tr.MarketID,
			fmt.Sprintf("%.2f", tr.Quantity),
			fmt.Sprintf("$%.4f", tr.EntryPrice),
			exit,
			fmt.Sprintf("$%.2f", tr.PnL),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// --- helpers ---

func compactName(opp domain.Opportunity, maxLen int) string {
	return domain.TruncateQuestion(opp.Question, opp.MarketID, maxLen)
}

func closesIn(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

func pct(value, base float64) float64 {
	if base == 0 {
		return 0
	}
	return value / base * 100
}
