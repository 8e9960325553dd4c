package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSignal/internal/database"
	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// PGBarStore keeps daily bars in price_data_daily.
type PGBarStore struct {
	db   *database.DB
	from time.Time
}

var (
	_ domrepo.BarLoader = (*PGBarStore)(nil)
	_ domrepo.BarWriter = (*PGBarStore)(nil)
)

// NewPGBarStore loads bars dated from onward.
func NewPGBarStore(db *database.DB, from time.Time) *PGBarStore {
	return &PGBarStore{db: db, from: from}
}

func (s *PGBarStore) WriteBars(ctx context.Context, bars []models.Bar) error {
	return s.db.UpsertPriceDataBatch(ctx, bars)
}

func (s *PGBarStore) Load(ctx context.Context, tickers []string) ([]models.Bar, error) {
	if len(tickers) == 0 {
		var err error
		if tickers, err = s.db.Symbols(ctx); err != nil {
			return nil, err
		}
	}
	var out []models.Bar
	for _, t := range tickers {
		bars, err := s.db.GetPriceDataRange(ctx, t, s.from, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", t, err)
		}
		out = append(out, bars...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("price_data_daily: %w", domrepo.ErrNoBars)
	}
	return out, nil
}

// PGReportSink stores indicator values in long format and the run's anomalies.
type PGReportSink struct {
	db        *database.DB
	timeframe domrepo.Timeframe
}

var _ domrepo.ReportSink = (*PGReportSink)(nil)

func NewPGReportSink(db *database.DB, tf domrepo.Timeframe) *PGReportSink {
	return &PGReportSink{db: db, timeframe: tf}
}

func (s *PGReportSink) Name() string { return "postgres" }

func (s *PGReportSink) Save(ctx context.Context, a *models.Analysis) error {
	var errs []error
	for _, ticker := range sortedTickers(a) {
		r := a.Reports[ticker]
		rows, err := database.Flatten(r.Indicators, string(s.timeframe))
		if err == nil {
			err = s.db.CreateTechnicalIndicatorBatch(ctx, rows)
		}
		if err == nil {
			err = s.db.InsertAnomalies(ctx, a.RunID, r.Anomalies)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ticker, err))
		}
	}
	return errors.Join(errs...)
}
