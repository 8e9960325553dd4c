// Package cli renders run results for terminal output.
package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"FinSignal/internal/domain/models"
)

// WriteSummary prints one row per ticker: bar count, last close, latest signals
// and anomaly count, followed by failed tickers.
func WriteSummary(w io.Writer, a *models.Analysis) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run %s", a.RunID)

	header := table.Row{"Ticker", "Bars", "Date", "Close"}
	for _, f := range models.SignalFields {
		header = append(header, f)
	}
	header = append(header, "Anomalies")
	t.AppendHeader(header)

	tickers := a.Tickers()
	sort.Strings(tickers)
	anomalies := 0
	for _, ticker := range tickers {
		rep := a.Reports[ticker]
		last := rep.Latest()
		if last == nil {
			continue
		}
		row := table.Row{ticker, len(rep.Indicators), last.Date, fmt.Sprintf("%.2f", last.Close)}
		for _, s := range last.Signals.Values() {
			row = append(row, colorize(s))
		}
		row = append(row, len(rep.Anomalies))
		t.AppendRow(row)
		anomalies += len(rep.Anomalies)
	}

	footer := table.Row{"Total", len(tickers), "", ""}
	for range models.SignalFields {
		footer = append(footer, "")
	}
	t.AppendFooter(append(footer, anomalies))

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Bars", Align: text.AlignRight},
		{Name: "Close", Align: text.AlignRight},
		{Name: "Anomalies", Align: text.AlignRight},
	})
	t.Render()

	if len(a.Failed) == 0 {
		return
	}
	f := table.NewWriter()
	f.SetOutputMirror(w)
	f.SetStyle(table.StyleLight)
	f.AppendHeader(table.Row{"Failed ticker", "Reason"})
	for _, ticker := range sortedFailed(a.Failed) {
		f.AppendRow(table.Row{ticker, a.Failed[ticker]})
	}
	f.Render()
}

func colorize(s models.Signal) string {
	switch s {
	case models.SignalBuy:
		return text.FgGreen.Sprint(string(s))
	case models.SignalSell:
		return text.FgRed.Sprint(string(s))
	default:
		return string(s)
	}
}

func sortedFailed(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
