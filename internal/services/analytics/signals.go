package analytics

import (
	"FinSignal/internal/domain/models"
	"FinSignal/internal/domain/service"
)

// Thresholds are the band limits used to classify oscillators.
type Thresholds struct {
	RSIOversold     float64
	RSIOverbought   float64
	StochOversold   float64
	StochOverbought float64
	ADXTrend        float64
}

// DefaultThresholds returns the classic 30/70, 20/80 and 25 limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIOversold:     30,
		RSIOverbought:   70,
		StochOversold:   20,
		StochOverbought: 80,
		ADXTrend:        25,
	}
}

// SignalGenerator derives Buy/Sell/Hold from indicator values.
type SignalGenerator struct {
	th Thresholds
}

var _ service.SignalGenerator = (*SignalGenerator)(nil)

// NewSignalGenerator builds a generator with the given thresholds.
func NewSignalGenerator(th Thresholds) *SignalGenerator {
	return &SignalGenerator{th: th}
}

// Apply fills the signal fields of every record in place.
func (g *SignalGenerator) Apply(records []models.IndicatorRecord) {
	for i := range records {
		records[i].Signals = g.Derive(&records[i])
	}
}

// Derive computes the signals of a single record.
// A comparison against a missing value is false.
func (g *SignalGenerator) Derive(r *models.IndicatorRecord) models.Signals {
	price := &r.Close
	return models.Signals{
		MA:         crossover(r.MA10, r.MA20),
		RSI:        band(r.RSI, g.th.RSIOversold, g.th.RSIOverbought),
		Bollinger:  envelope(price, r.LowerBand, r.UpperBand),
		MACD:       crossover(r.MACD, r.SignalLine),
		Stochastic: band(r.PercentK, g.th.StochOversold, g.th.StochOverbought),
		ADX:        g.trend(r),
	}
}

func (g *SignalGenerator) trend(r *models.IndicatorRecord) models.Signal {
	if !greater(r.ADX, &g.th.ADXTrend) {
		return models.SignalHold
	}
	if greater(r.PlusDI, r.MinusDI) {
		return models.SignalBuy
	}
	return models.SignalSell
}

// crossover is Buy when fast is above slow, Sell otherwise.
func crossover(fast, slow *float64) models.Signal {
	if greater(fast, slow) {
		return models.SignalBuy
	}
	return models.SignalSell
}

// band classifies an oscillator against oversold/overbought limits.
func band(v *float64, low, high float64) models.Signal {
	switch {
	case greater(&low, v):
		return models.SignalBuy
	case greater(v, &high):
		return models.SignalSell
	}
	return models.SignalHold
}

// envelope classifies a price against lower/upper bands.
func envelope(price, lower, upper *float64) models.Signal {
	switch {
	case greater(lower, price):
		return models.SignalBuy
	case greater(price, upper):
		return models.SignalSell
	}
	return models.SignalHold
}

func greater(a, b *float64) bool {
	return a != nil && b != nil && *a > *b
}
