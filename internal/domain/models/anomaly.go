package models

// Contradiction types emitted by the anomaly detector.
const (
	AnomalyMARSI        = "Contradiction MA-RSI"
	AnomalyMACDRSI      = "Contradiction MACD-RSI"
	AnomalyBollingerRSI = "Contradiction Bollinger-RSI"
)

// Anomaly flags two signals on the same record that disagree.
type Anomaly struct {
	Ticker  string            `json:"ticker,omitempty"`
	Date    string            `json:"Date"`
	Type    string            `json:"Type"`
	Details map[string]Signal `json:"Details"`
}
