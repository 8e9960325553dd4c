package models

import "time"

// TickerReport is the engine output for one ticker.
type TickerReport struct {
	RunID       string            `json:"run_id,omitempty"`
	Ticker      string            `json:"ticker"`
	GeneratedAt time.Time         `json:"generated_at"`
	Indicators  []IndicatorRecord `json:"indicators"`
	Anomalies   []Anomaly         `json:"anomalies"`
}

// Latest returns the most recent record, or nil for an empty report.
func (r *TickerReport) Latest() *IndicatorRecord {
	if r == nil || len(r.Indicators) == 0 {
		return nil
	}
	return &r.Indicators[len(r.Indicators)-1]
}

// Analysis is the result of one engine run over many tickers.
type Analysis struct {
	RunID   string
	Reports map[string]*TickerReport
	Failed  map[string]string
}

// Tickers returns report keys in no particular order.
func (a *Analysis) Tickers() []string {
	out := make([]string, 0, len(a.Reports))
	for t := range a.Reports {
		out = append(out, t)
	}
	return out
}
