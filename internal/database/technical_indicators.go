package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"FinSignal/internal/domain/models"
)

// Indicator type names stored in technical_indicators.indicator_type.
const (
	IndicatorSMA20      = "SMA_20"
	IndicatorEMA20      = "EMA_20"
	IndicatorMA10       = "MA_10"
	IndicatorMA20       = "MA_20"
	IndicatorRSI14      = "RSI_14"
	IndicatorEMA12      = "EMA_12"
	IndicatorEMA26      = "EMA_26"
	IndicatorMACD       = "MACD"
	IndicatorMACDSignal = "MACD_SIGNAL"
	IndicatorBBUpper    = "BB_UPPER"
	IndicatorBBLower    = "BB_LOWER"
	IndicatorStochK     = "STOCH_K"
	IndicatorStochD     = "STOCH_D"
	IndicatorADX        = "ADX"
	IndicatorPlusDI     = "PLUS_DI"
	IndicatorMinusDI    = "MINUS_DI"
)

// IndicatorTypes is parallel to models.IndicatorFields.
var IndicatorTypes = []string{
	IndicatorSMA20, IndicatorEMA20, IndicatorMA10, IndicatorMA20, IndicatorRSI14,
	IndicatorEMA12, IndicatorEMA26, IndicatorMACD, IndicatorMACDSignal,
	IndicatorBBUpper, IndicatorBBLower, IndicatorStochK, IndicatorStochD,
	IndicatorADX, IndicatorPlusDI, IndicatorMinusDI,
}

// TechnicalIndicator is one long-format indicator row.
type TechnicalIndicator struct {
	Symbol        string
	Date          time.Time
	IndicatorType string
	Value         decimal.Decimal
	Timeframe     string
}

// Flatten converts records to long-format rows, skipping undefined values.
func Flatten(records []models.IndicatorRecord, timeframe string) ([]TechnicalIndicator, error) {
	if timeframe == "" {
		timeframe = "daily"
	}
	var out []TechnicalIndicator
	for i := range records {
		r := &records[i]
		date, err := time.Parse(models.DateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q for %s: %w", r.Date, r.Ticker, err)
		}
		for j, v := range r.Indicators() {
			if v == nil {
				continue
			}
			out = append(out, TechnicalIndicator{
				Symbol:        r.Ticker,
				Date:          date,
				IndicatorType: IndicatorTypes[j],
				Value:         decimal.NewFromFloat(*v),
				Timeframe:     timeframe,
			})
		}
	}
	return out, nil
}

// CreateTechnicalIndicatorBatch upserts indicator rows in one transaction.
func (db *DB) CreateTechnicalIndicatorBatch(ctx context.Context, indicators []TechnicalIndicator) error {
	if len(indicators) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO technical_indicators (symbol, date, indicator_type, value, timeframe, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, date, indicator_type, timeframe) DO UPDATE SET
			value = EXCLUDED.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, t := range indicators {
		if _, err := stmt.ExecContext(ctx, t.Symbol, t.Date, t.IndicatorType, t.Value, t.Timeframe, now); err != nil {
			return fmt.Errorf("failed to insert indicator for %s: %w", t.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetLatestIndicators returns the most recent value of each indicator type for symbol.
func (db *DB) GetLatestIndicators(ctx context.Context, symbol string) ([]TechnicalIndicator, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT ON (indicator_type)
			symbol, date, indicator_type, value, timeframe
		FROM technical_indicators
		WHERE symbol = $1
		ORDER BY indicator_type, date DESC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest indicators: %w", err)
	}
	defer rows.Close()

	var out []TechnicalIndicator
	for rows.Next() {
		var t TechnicalIndicator
		if err := rows.Scan(&t.Symbol, &t.Date, &t.IndicatorType, &t.Value, &t.Timeframe); err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
