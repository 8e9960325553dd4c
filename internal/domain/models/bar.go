package models

import (
	"fmt"
	"time"
)

// Date layouts used by the ingestion files.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Bar is one OHLCV observation for a ticker. JSON keys match the ingestion files.
type Bar struct {
	Ticker   string  `json:"ticker"`
	Date     string  `json:"date"`
	Datetime string  `json:"datetime"`
	Open     float64 `json:"open_price"`
	Close    float64 `json:"close_price"`
	High     float64 `json:"high_price"`
	Low      float64 `json:"low_price"`
	Volume   int64   `json:"volume"`
}

// Key identifies a bar within the live store.
func (b Bar) Key() string {
	return b.Ticker + "|" + b.Stamp()
}

// Stamp returns the most precise timestamp string available.
func (b Bar) Stamp() string {
	if b.Datetime != "" {
		return b.Datetime
	}
	return b.Date
}

// Time parses the bar timestamp in loc.
func (b Bar) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if b.Datetime != "" {
		if t, err := time.ParseInLocation(DateTimeLayout, b.Datetime, loc); err == nil {
			return t, nil
		}
	}
	t, err := time.ParseInLocation(DateLayout, b.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bar %s: bad date %q: %w", b.Ticker, b.Date, err)
	}
	return t, nil
}

// Validate checks the fields every consumer relies on.
func (b Bar) Validate() error {
	if b.Ticker == "" {
		return fmt.Errorf("ticker empty")
	}
	if _, err := time.Parse(DateLayout, b.Date); err != nil {
		return fmt.Errorf("date invalid: %q", b.Date)
	}
	if b.Open < 0 || b.High < 0 || b.Low < 0 || b.Close < 0 {
		return fmt.Errorf("negative price")
	}
	if b.High < b.Low {
		return fmt.Errorf("high %.4f below low %.4f", b.High, b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	return nil
}

// NewBar builds a bar stamped at t in the given location.
func NewBar(ticker string, t time.Time, open, high, low, last float64, volume int64) Bar {
	return Bar{
		Ticker:   ticker,
		Date:     t.Format(DateLayout),
		Datetime: t.Format(DateTimeLayout),
		Open:     open,
		Close:    last,
		High:     high,
		Low:      low,
		Volume:   volume,
	}
}
