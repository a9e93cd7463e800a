package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"lendwatch/internal/view"
)

// ConsoleRenderer prints the current view as a terminal table at a fixed
// interval. A render pass never takes the process down: an unexpected
// shape surfaces as an inline error row instead of a blank table.
type ConsoleRenderer struct {
	logger  *zap.Logger
	out     io.Writer
	maxRows int
}

func NewConsoleRenderer(logger *zap.Logger, maxRows int) *ConsoleRenderer {
	return &ConsoleRenderer{logger: logger, out: os.Stdout, maxRows: maxRows}
}

// NewConsoleWriter targets an arbitrary writer, for tests.
func NewConsoleWriter(logger *zap.Logger, w io.Writer, maxRows int) *ConsoleRenderer {
	return &ConsoleRenderer{logger: logger, out: w, maxRows: maxRows}
}

func (r *Runner) runConsoleRenderer(ctx context.Context) {
	renderer := NewConsoleRenderer(r.logger, r.cfg.Console.MaxRows)

	t := time.NewTicker(r.cfg.Console.RenderInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			v, ok := r.CurrentView()
			if !ok {
				fmt.Fprintf(renderer.out, "[%s] waiting for first snapshot (%s)\n",
					time.Now().Format("15:04:05"), r.transport.get())
				continue
			}
			renderer.Render(v, r.transport.get())
			renderer.RenderStatus(r.regions)

			if token := r.cfg.Console.HistoryToken; token != "" {
				if err := r.ShowHistory(ctx, renderer.out, token, r.cfg.Console.HistoryHours); err != nil {
					fmt.Fprintf(renderer.out, "  history unavailable for %s\n", token)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// Render prints the KPI strip and the opportunity table.
func (r *ConsoleRenderer) Render(v view.View, transportState string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("render pass failed", zap.Any("panic", rec))
			fmt.Fprintf(r.out, "  !! render error: %v\n", rec)
		}
	}()

	now := time.Now().Format("15:04:05")
	fmt.Fprintf(r.out, "\n[%s] best %.2f%% | %d opportunities | updated %s | link %s\n",
		now, v.KPI.BestNetAPR, v.KPI.Count, v.KPI.UpdatedAt, transportState)

	table := tablewriter.NewWriter(r.out)
	table.Header("Token", "Gate APR", "Borrow", "Net APR", "EV", "Source", "Avail", "Cap", "Daily $")

	if len(v.Rows) == 0 {
		table.Append("no matches", "-", "-", "-", "-", "-", "-", "-", "-")
		table.Render()
		fmt.Fprintf(r.out, "  0 of %d shown\n", v.KPI.Count)
		return
	}

	shown := 0
	for _, row := range v.Rows {
		if r.maxRows > 0 && shown >= r.maxRows {
			break
		}
		avail := "no"
		if row.Available {
			avail = "yes"
		}
		table.Append(
			row.Currency,
			fmt.Sprintf("%.2f%%", row.GateAPR),
			fmt.Sprintf("%.2f%%", row.EffectiveBorrow),
			fmt.Sprintf("%.2f%%", row.NetAPR),
			fmt.Sprintf("%.2f", row.EffectiveEV),
			row.BestLoanSource,
			avail,
			fmt.Sprintf("%.0f", row.OKXAvailLoan),
			fmt.Sprintf("$%.2f", row.DailyEarnings),
		)
		shown++
	}
	table.Render()

	fmt.Fprintf(r.out, "  %d of %d shown\n", v.FilteredCount, v.KPI.Count)
}

// RenderStatus prints the three poller regions as one line each.
func (r *ConsoleRenderer) RenderStatus(regions *StatusRegions) {
	collector := regions.Collector()
	if collector.Online && collector.Stats != nil {
		fmt.Fprintf(r.out, "  collector: %d observations, %d tokens\n",
			collector.Stats.TotalObservations, collector.Stats.UniqueTokens)
	} else {
		fmt.Fprintln(r.out, "  collector: offline")
	}

	bot := regions.Bot()
	switch {
	case bot.Online && bot.Status != nil && bot.Status.Running:
		fmt.Fprintf(r.out, "  bot: running (pid %d) %s\n", bot.Status.PID, bot.Status.StatusMsg)
	case bot.Online:
		fmt.Fprintln(r.out, "  bot: idle")
	default:
		fmt.Fprintln(r.out, "  bot: offline")
	}

	session := regions.Session()
	switch {
	case session.Online && session.Session != nil && session.Session.SessionExists:
		flag := ""
		if session.Stale {
			flag = " (stale)"
		}
		fmt.Fprintf(r.out, "  session: %s old, %d cookies%s\n",
			session.Age, session.Session.CookieCount, flag)
	case session.Online:
		fmt.Fprintln(r.out, "  session: none")
	default:
		fmt.Fprintln(r.out, "  session: offline")
	}
}
