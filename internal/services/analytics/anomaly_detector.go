package analytics

import (
	"FinSignal/internal/domain/models"
	"FinSignal/internal/domain/service"
)

// rule pairs two signal columns whose Buy/Sell disagreement is an anomaly.
type rule struct {
	kind        string
	left, right string
	pick        func(models.Signals) (models.Signal, models.Signal)
}

var contradictionRules = []rule{
	{
		kind: models.AnomalyMARSI, left: "MA_Signal", right: "RSI_Signal",
		pick: func(s models.Signals) (models.Signal, models.Signal) { return s.MA, s.RSI },
	},
	{
		kind: models.AnomalyMACDRSI, left: "MACD_Signal", right: "RSI_Signal",
		pick: func(s models.Signals) (models.Signal, models.Signal) { return s.MACD, s.RSI },
	},
	{
		kind: models.AnomalyBollingerRSI, left: "Bollinger_Signal", right: "RSI_Signal",
		pick: func(s models.Signals) (models.Signal, models.Signal) { return s.Bollinger, s.RSI },
	},
}

// ContradictionDetector flags records whose signals point in opposite directions.
type ContradictionDetector struct{}

var _ service.AnomalyDetector = (*ContradictionDetector)(nil)

func NewContradictionDetector() *ContradictionDetector {
	return &ContradictionDetector{}
}

// Detect scans records from the second one onward (the first has no predecessor) and returns anomalies in
// record order, MA-RSI before MACD-RSI before Bollinger-RSI within a record.
func (d *ContradictionDetector) Detect(ticker string, records []models.IndicatorRecord) []models.Anomaly {
	out := make([]models.Anomaly, 0)
	for i := 1; i < len(records); i++ {
		cur := &records[i]
		for _, r := range contradictionRules {
			a, b := r.pick(cur.Signals)
			if !opposite(a, b) {
				continue
			}
			out = append(out, models.Anomaly{
				Ticker:  ticker,
				Date:    cur.Date,
				Type:    r.kind,
				Details: map[string]models.Signal{r.left: a, r.right: b},
			})
		}
	}
	return out
}

func opposite(a, b models.Signal) bool {
	return (a == models.SignalBuy && b == models.SignalSell) || (a == models.SignalSell && b == models.SignalBuy)
}
