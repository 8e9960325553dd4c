package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/logger"
)

var ErrInvalidParams = errors.New("invalid params")

// Refresher recomputes every report, e.g. an IndicatorsJob whose sinks include the report store.
type Refresher interface {
	Run(ctx context.Context) (*models.Analysis, error)
}

// ReportsUseCase serves the latest reports for the HTTP API.
type ReportsUseCase struct {
	store   domrepo.ReportStore
	refresh Refresher
	log     *logger.Logger

	mu          sync.Mutex
	last        *models.Analysis
	lastRefresh time.Time
	minRefresh  time.Duration
	now         func() time.Time
}

// NewReportsUseCase serves from store. On a miss it runs refresh at most once per
// minRefresh; refresh may be nil for a read-only deployment.
func NewReportsUseCase(store domrepo.ReportStore, refresh Refresher, minRefresh time.Duration, log *logger.Logger) *ReportsUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ReportsUseCase{store: store, refresh: refresh, minRefresh: minRefresh, log: log, now: time.Now}
}

type IndicatorsParams struct {
	Ticker string
	From   string // YYYY-MM-DD, inclusive
	To     string // YYYY-MM-DD, inclusive
	Limit  int
}

type IndicatorsResult struct {
	Ticker  string                   `json:"ticker"`
	RunID   string                   `json:"run_id,omitempty"`
	From    string                   `json:"from,omitempty"`
	To      string                   `json:"to,omitempty"`
	Count   int                      `json:"count"`
	Records []models.IndicatorRecord `json:"records"`
}

type SignalsResult struct {
	Ticker   string         `json:"ticker"`
	Date     string         `json:"date"`
	Datetime string         `json:"datetime"`
	Close    float64        `json:"close_price"`
	Signals  models.Signals `json:"signals"`
}

type AnomaliesParams struct {
	Ticker string
	Kind   string // MA-RSI, MACD-RSI, Bollinger-RSI or empty for all
	Limit  int
}

type AnomaliesResult struct {
	Ticker    string           `json:"ticker"`
	Count     int              `json:"count"`
	Anomalies []models.Anomaly `json:"anomalies"`
}

func (uc *ReportsUseCase) Tickers(ctx context.Context) ([]string, error) {
	tickers, err := uc.store.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	if len(tickers) == 0 {
		if a := uc.tryRefresh(ctx); a != nil {
			tickers = a.Tickers()
		}
	}
	if tickers == nil {
		tickers = []string{}
	}
	return tickers, nil
}

// Report returns the cached report for ticker, recomputing on a miss.
func (uc *ReportsUseCase) Report(ctx context.Context, ticker string) (*models.TickerReport, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker required", ErrInvalidParams)
	}
	rep, err := uc.store.Get(ctx, ticker)
	if err == nil {
		return rep, nil
	}
	if !errors.Is(err, domrepo.ErrReportMissing) {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if a := uc.tryRefresh(ctx); a != nil {
		if rep, ok := a.Reports[ticker]; ok {
			return rep, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ticker, domrepo.ErrReportMissing)
}

// Indicators returns the most recent records in [From, To], at most Limit of them.
func (uc *ReportsUseCase) Indicators(ctx context.Context, p IndicatorsParams) (*IndicatorsResult, error) {
	if p.From != "" && p.To != "" && p.From > p.To {
		return nil, fmt.Errorf("%w: from must be <= to", ErrInvalidParams)
	}
	if p.Limit <= 0 {
		p.Limit = 500
	}
	if p.Limit > 10000 {
		p.Limit = 10000
	}
	rep, err := uc.Report(ctx, p.Ticker)
	if err != nil {
		return nil, err
	}

	records := make([]models.IndicatorRecord, 0, len(rep.Indicators))
	for _, r := range rep.Indicators {
		if p.From != "" && r.Date < p.From {
			continue
		}
		if p.To != "" && r.Date > p.To {
			continue
		}
		records = append(records, r)
	}
	if len(records) > p.Limit {
		records = records[len(records)-p.Limit:]
	}
	return &IndicatorsResult{
		Ticker:  rep.Ticker,
		RunID:   rep.RunID,
		From:    p.From,
		To:      p.To,
		Count:   len(records),
		Records: records,
	}, nil
}

// Signals returns the signals of the latest record.
func (uc *ReportsUseCase) Signals(ctx context.Context, ticker string) (*SignalsResult, error) {
	rep, err := uc.Report(ctx, ticker)
	if err != nil {
		return nil, err
	}
	last := rep.Latest()
	if last == nil {
		return nil, fmt.Errorf("%s: %w", rep.Ticker, domrepo.ErrReportMissing)
	}
	return &SignalsResult{
		Ticker:   rep.Ticker,
		Date:     last.Date,
		Datetime: last.Datetime,
		Close:    last.Close,
		Signals:  last.Signals,
	}, nil
}

func (uc *ReportsUseCase) Anomalies(ctx context.Context, p AnomaliesParams) (*AnomaliesResult, error) {
	if p.Limit <= 0 {
		p.Limit = 1000
	}
	rep, err := uc.Report(ctx, p.Ticker)
	if err != nil {
		return nil, err
	}
	out := make([]models.Anomaly, 0, len(rep.Anomalies))
	for _, a := range rep.Anomalies {
		if p.Kind != "" && a.Type != "Contradiction "+p.Kind {
			continue
		}
		out = append(out, a)
	}
	if len(out) > p.Limit {
		out = out[len(out)-p.Limit:]
	}
	return &AnomaliesResult{Ticker: rep.Ticker, Count: len(out), Anomalies: out}, nil
}

// tryRefresh recomputes reports unless a refresh ran within minRefresh, in which
// case the previous result is reused.
func (uc *ReportsUseCase) tryRefresh(ctx context.Context) *models.Analysis {
	if uc.refresh == nil {
		return nil
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if !uc.lastRefresh.IsZero() && uc.now().Sub(uc.lastRefresh) < uc.minRefresh {
		return uc.last
	}
	uc.lastRefresh = uc.now()
	a, err := uc.refresh.Run(ctx)
	if a != nil {
		uc.last = a
	}
	if err != nil {
		uc.log.Warn("report refresh incomplete", logger.Error(err))
	}
	return uc.last
}
