package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// reportEntry is the per-ticker value of analysis_output.json.
type reportEntry struct {
	Indicators []models.IndicatorRecord `json:"indicators"`
	Anomalies  []models.Anomaly         `json:"anomalies"`
}

// JSONReportSink writes the run result as one JSON object keyed by ticker.
type JSONReportSink struct {
	path string
}

var (
	_ domrepo.ReportSink   = (*JSONReportSink)(nil)
	_ domrepo.ReportLoader = (*JSONReportSink)(nil)
)

func NewJSONReportSink(path string) *JSONReportSink {
	return &JSONReportSink{path: path}
}

func (s *JSONReportSink) Name() string { return "json" }

func (s *JSONReportSink) Save(_ context.Context, a *models.Analysis) error {
	out := make(map[string]reportEntry, len(a.Reports))
	for ticker, r := range a.Reports {
		entry := reportEntry{Indicators: r.Indicators, Anomalies: r.Anomalies}
		if entry.Indicators == nil {
			entry.Indicators = []models.IndicatorRecord{}
		}
		if entry.Anomalies == nil {
			entry.Anomalies = []models.Anomaly{}
		}
		out[ticker] = entry
	}
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return WriteFileAtomic(s.path, data)
}

// LoadReport reads back the file this sink writes.
func (s *JSONReportSink) LoadReport(_ context.Context) (*models.Analysis, error) {
	return LoadJSONReport(s.path)
}

// LoadJSONReport reads a report written by JSONReportSink.
func LoadJSONReport(path string) (*models.Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	var raw map[string]reportEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}

	a := &models.Analysis{Reports: make(map[string]*models.TickerReport, len(raw)), Failed: map[string]string{}}
	for ticker, e := range raw {
		for i := range e.Anomalies {
			e.Anomalies[i].Ticker = ticker
		}
		for i := range e.Indicators {
			if e.Indicators[i].Ticker == "" {
				e.Indicators[i].Ticker = ticker
			}
		}
		a.Reports[ticker] = &models.TickerReport{
			Ticker:      ticker,
			GeneratedAt: time.Now().UTC(),
			Indicators:  e.Indicators,
			Anomalies:   e.Anomalies,
		}
	}
	return a, nil
}

// sortedTickers returns the report keys in lexical order.
func sortedTickers(a *models.Analysis) []string {
	tickers := a.Tickers()
	sort.Strings(tickers)
	return tickers
}
