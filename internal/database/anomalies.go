package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
)

// InsertAnomalies stores the anomalies found in one run.
func (db *DB) InsertAnomalies(ctx context.Context, runID string, anomalies []models.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anomalies (run_id, symbol, date, type, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, a := range anomalies {
		date, err := time.Parse(models.DateLayout, a.Date)
		if err != nil {
			return fmt.Errorf("bad anomaly date %q: %w", a.Date, err)
		}
		details, err := json.Marshal(a.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, a.Ticker, date, a.Type, details, now); err != nil {
			return fmt.Errorf("failed to insert anomaly for %s: %w", a.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAnomalies returns stored anomalies for symbol ordered by date. An empty kind matches all types.
func (db *DB) GetAnomalies(ctx context.Context, symbol, kind string) ([]models.Anomaly, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT symbol, date, type, details
		FROM anomalies
		WHERE symbol = $1 AND ($2 = '' OR type = $2)
		ORDER BY date ASC, id ASC
	`, symbol, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get anomalies: %w", err)
	}
	defer rows.Close()

	var out []models.Anomaly
	for rows.Next() {
		var (
			a       models.Anomaly
			date    time.Time
			details []byte
		)
		if err := rows.Scan(&a.Ticker, &date, &a.Type, &details); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		a.Date = date.Format(models.DateLayout)
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("failed to decode details: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
