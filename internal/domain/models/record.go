package models

import "math"

// IndicatorRecord is a bar extended with derived indicator values.
// A nil field means there was not enough history (or the value is undefined).
type IndicatorRecord struct {
	Bar

	SMA        *float64 `json:"SMA"`
	EMA        *float64 `json:"EMA"`
	MA10       *float64 `json:"MA_10"`
	MA20       *float64 `json:"MA_20"`
	RSI        *float64 `json:"RSI"`
	EMA12      *float64 `json:"EMA_12"`
	EMA26      *float64 `json:"EMA_26"`
	MACD       *float64 `json:"MACD"`
	SignalLine *float64 `json:"Signal_Line"`
	UpperBand  *float64 `json:"Upper_Band"`
	LowerBand  *float64 `json:"Lower_Band"`
	PercentK   *float64 `json:"%K"`
	PercentD   *float64 `json:"%D"`
	ADX        *float64 `json:"ADX"`
	PlusDI     *float64 `json:"+DI"`
	MinusDI    *float64 `json:"-DI"`

	Signals
}

// IndicatorFields lists indicator columns in output order.
var IndicatorFields = []string{
	"SMA", "EMA", "MA_10", "MA_20", "RSI", "EMA_12", "EMA_26", "MACD", "Signal_Line",
	"Upper_Band", "Lower_Band", "%K", "%D", "ADX", "+DI", "-DI",
}

// Indicators returns indicator values in IndicatorFields order.
func (r *IndicatorRecord) Indicators() []*float64 {
	return []*float64{
		r.SMA, r.EMA, r.MA10, r.MA20, r.RSI, r.EMA12, r.EMA26, r.MACD, r.SignalLine,
		r.UpperBand, r.LowerBand, r.PercentK, r.PercentD, r.ADX, r.PlusDI, r.MinusDI,
	}
}

// Value converts a calculator output to a record field; NaN and Inf become nil.
func Value(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
