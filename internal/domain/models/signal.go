package models

// Signal is a categorical trading recommendation.
type Signal string

const (
	SignalBuy  Signal = "Buy"
	SignalSell Signal = "Sell"
	SignalHold Signal = "Hold"
)

// Signals holds the per-indicator recommendations derived for one record.
type Signals struct {
	MA         Signal `json:"MA_Signal"`
	RSI        Signal `json:"RSI_Signal"`
	Bollinger  Signal `json:"Bollinger_Signal"`
	MACD       Signal `json:"MACD_Signal"`
	Stochastic Signal `json:"Stochastic_Signal"`
	ADX        Signal `json:"ADX_Signal"`
}

// SignalFields lists signal columns in output order.
var SignalFields = []string{
	"MA_Signal", "RSI_Signal", "Bollinger_Signal", "MACD_Signal", "Stochastic_Signal", "ADX_Signal",
}

// Values returns signals in SignalFields order.
func (s Signals) Values() []Signal {
	return []Signal{s.MA, s.RSI, s.Bollinger, s.MACD, s.Stochastic, s.ADX}
}
