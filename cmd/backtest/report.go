package main

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	enginev1 "github.com/rxtech-lab/argo-hybrid/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type reportRow struct {
	Name   string
	Report types.SummaryReport
	Err    error
}

// collectReports reads every stats file below resultsFolder, ordered by path.
func collectReports(resultsFolder string) ([]reportRow, error) {
	var rows []reportRow

	err := filepath.WalkDir(resultsFolder, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() || entry.Name() != enginev1.StatsFileName {
			return nil
		}

		reports, err := types.ReadSummaryReports(path)
		if err != nil {
			return err
		}

		name, err := filepath.Rel(resultsFolder, filepath.Dir(path))
		if err != nil {
			return err
		}

		for _, report := range reports {
			rows = append(rows, reportRow{Name: name, Report: report, Err: nil})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect reports: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	return rows, nil
}

func renderReports(w io.Writer, title string, rows []reportRow) {
	fmt.Fprintln(w, titleStyle.Render(title))

	table := tablewriter.NewWriter(w)
	table.Header("Run", "Bars", "Buy/Sell", "Trades", "Win rate", "PnL", "Final value", "Return %", "Max DD %", "Sharpe")

	var failures []string

	for _, row := range rows {
		if row.Err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", row.Name, row.Err))

			continue
		}

		report := row.Report
		sharpe := "n/a"

		if report.SharpeRatio != nil {
			sharpe = fmt.Sprintf("%.3f", *report.SharpeRatio)
		}

		table.Append(
			row.Name,
			fmt.Sprintf("%d", report.BarsProcessed),
			fmt.Sprintf("%d/%d", report.BuySignals, report.SellSignals),
			fmt.Sprintf("%d", report.Performance.TradeResult.NumberOfTrades),
			fmt.Sprintf("%.1f%%", report.Performance.TradeResult.WinRate*100),
			fmt.Sprintf("%.2f", report.Performance.TradePnl.TotalPnL),
			fmt.Sprintf("%.2f", report.Performance.FinalValue),
			fmt.Sprintf("%.2f", report.Performance.TotalReturnPct),
			fmt.Sprintf("%.2f", report.Performance.MaxDrawdownPct),
			sharpe,
		)
	}

	table.Render()

	if len(failures) > 0 {
		fmt.Fprintln(w, errorStyle.Render("Failed runs"))
		fmt.Fprintln(w, strings.Join(failures, "\n"))
	}
}
