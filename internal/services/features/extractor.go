package features

import (
	"fmt"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/indicator"
)

// Params carries the window constants of every calculator.
type Params struct {
	ShortMA     int
	LongMA      int
	SMAWindow   int
	EMASpan     int
	RSIWindow   int
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	BollingerN  int
	BollingerK  float64
	StochasticK int
	StochasticD int
	ADXWindow   int
}

// DefaultParams returns the standard windows.
func DefaultParams() Params {
	return Params{
		ShortMA:     10,
		LongMA:      20,
		SMAWindow:   20,
		EMASpan:     20,
		RSIWindow:   14,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		BollingerN:  20,
		BollingerK:  2,
		StochasticK: 14,
		StochasticD: 3,
		ADXWindow:   14,
	}
}

// Validate rejects windows the calculators cannot use.
func (p Params) Validate() error {
	windows := map[string]int{
		"short_ma": p.ShortMA, "long_ma": p.LongMA, "sma": p.SMAWindow, "ema": p.EMASpan,
		"rsi": p.RSIWindow, "macd_fast": p.MACDFast, "macd_slow": p.MACDSlow, "macd_signal": p.MACDSignal,
		"stochastic_k": p.StochasticK, "stochastic_d": p.StochasticD, "adx": p.ADXWindow,
	}
	for name, w := range windows {
		if w < 1 {
			return fmt.Errorf("window %s must be positive, got %d", name, w)
		}
	}
	if p.BollingerN < 2 {
		return fmt.Errorf("bollinger window must be at least 2, got %d", p.BollingerN)
	}
	if p.BollingerK <= 0 {
		return fmt.Errorf("bollinger width must be positive, got %v", p.BollingerK)
	}
	return nil
}

// Series splits bars into parallel price columns.
type Series struct {
	Open, High, Low, Close []float64
}

// SeriesOf extracts the price columns of ordered bars.
func SeriesOf(bars []models.Bar) Series {
	s := Series{
		Open:  make([]float64, len(bars)),
		High:  make([]float64, len(bars)),
		Low:   make([]float64, len(bars)),
		Close: make([]float64, len(bars)),
	}
	for i, b := range bars {
		s.Open[i] = b.Open
		s.High[i] = b.High
		s.Low[i] = b.Low
		s.Close[i] = b.Close
	}
	return s
}

// Extract runs every calculator once over one ticker's ordered bars and
// assembles the indicator records. Signal fields are left empty.
func Extract(bars []models.Bar, p Params) []models.IndicatorRecord {
	s := SeriesOf(bars)

	sma := indicator.SMA(s.Close, p.SMAWindow)
	ema := indicator.EMA(s.Close, p.EMASpan)
	maShort := indicator.SMA(s.Close, p.ShortMA)
	maLong := indicator.SMA(s.Close, p.LongMA)
	rsi := indicator.RSI(s.Close, p.RSIWindow)
	emaFast := indicator.EMA(s.Close, p.MACDFast)
	emaSlow := indicator.EMA(s.Close, p.MACDSlow)
	macd, signal := indicator.MACD(s.Close, p.MACDFast, p.MACDSlow, p.MACDSignal)
	_, upper, lower := indicator.Bollinger(s.Close, p.BollingerN, p.BollingerK)
	k, d := indicator.Stochastic(s.High, s.Low, s.Close, p.StochasticK, p.StochasticD)
	di := indicator.ADX(s.High, s.Low, s.Close, p.ADXWindow)

	out := make([]models.IndicatorRecord, len(bars))
	for i, b := range bars {
		out[i] = models.IndicatorRecord{
			Bar:        b,
			SMA:        models.Value(sma[i]),
			EMA:        models.Value(ema[i]),
			MA10:       models.Value(maShort[i]),
			MA20:       models.Value(maLong[i]),
			RSI:        models.Value(rsi[i]),
			EMA12:      models.Value(emaFast[i]),
			EMA26:      models.Value(emaSlow[i]),
			MACD:       models.Value(macd[i]),
			SignalLine: models.Value(signal[i]),
			UpperBand:  models.Value(upper[i]),
			LowerBand:  models.Value(lower[i]),
			PercentK:   models.Value(k[i]),
			PercentD:   models.Value(d[i]),
			ADX:        models.Value(di.ADX[i]),
			PlusDI:     models.Value(di.PlusDI[i]),
			MinusDI:    models.Value(di.MinusDI[i]),
		}
	}
	return out
}
