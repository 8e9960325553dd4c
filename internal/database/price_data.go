package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"FinSignal/internal/domain/models"
)

// UpsertPriceDataBatch stores daily bars, replacing any existing row for (symbol, date).
func (db *DB) UpsertPriceDataBatch(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, b := range bars {
		date, err := time.Parse(models.DateLayout, b.Date)
		if err != nil {
			return fmt.Errorf("bad date %q for %s: %w", b.Date, b.Ticker, err)
		}
		_, err = stmt.ExecContext(ctx, b.Ticker, date,
			decimal.NewFromFloat(b.Open), decimal.NewFromFloat(b.High),
			decimal.NewFromFloat(b.Low), decimal.NewFromFloat(b.Close),
			b.Volume, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert price data for %s: %w", b.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceDataRange returns daily bars for symbol between from and to inclusive, oldest first.
// A zero to means no upper bound.
func (db *DB) GetPriceDataRange(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	if to.IsZero() {
		to = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume
		FROM price_data_daily
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get price data range: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var (
			b          models.Bar
			date       time.Time
			o, h, l, c decimal.Decimal
		)
		if err := rows.Scan(&b.Ticker, &date, &o, &h, &l, &c, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}
		b.Date = date.Format(models.DateLayout)
		b.Datetime = b.Date + " 00:00:00"
		b.Open, _ = o.Float64()
		b.High, _ = h.Float64()
		b.Low, _ = l.Float64()
		b.Close, _ = c.Float64()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Symbols lists every symbol with stored price data.
func (db *DB) Symbols(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT symbol FROM price_data_daily ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
