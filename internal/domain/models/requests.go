package models

// Requests for the reports HTTP endpoints.

type TickerRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,ticker"`
}

type IndicatorsRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,ticker"`
	From   string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit  int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}

type AnomaliesRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,ticker"`
	Kind   string `query:"type" json:"type" validate:"omitempty,oneof=MA-RSI MACD-RSI Bollinger-RSI"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=10000"`
}
