package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/cache"
)

const reportPrefix = "report:"

// CachedReportStore serves the latest report per ticker from pkg/cache.
// As a sink it replaces every cached report with the run's reports.
type CachedReportStore struct {
	c   cache.Service
	ttl time.Duration
}

var (
	_ domrepo.ReportStore = (*CachedReportStore)(nil)
	_ domrepo.ReportSink  = (*CachedReportStore)(nil)
)

func NewCachedReportStore(c cache.Service, ttl time.Duration) *CachedReportStore {
	return &CachedReportStore{c: c, ttl: ttl}
}

func (s *CachedReportStore) Name() string { return "cache" }

func (s *CachedReportStore) Put(ctx context.Context, r *models.TickerReport) error {
	if err := s.c.Set(ctx, reportPrefix+r.Ticker, r, s.ttl); err != nil {
		return fmt.Errorf("cache report %s: %w", r.Ticker, err)
	}
	return nil
}

func (s *CachedReportStore) Get(ctx context.Context, ticker string) (*models.TickerReport, error) {
	var r models.TickerReport
	if err := s.c.Get(ctx, reportPrefix+ticker, &r); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%s: %w", ticker, domrepo.ErrReportMissing)
		}
		return nil, err
	}
	return &r, nil
}

func (s *CachedReportStore) Tickers(ctx context.Context) ([]string, error) {
	keys, err := s.c.Keys(ctx, cache.Pattern(reportPrefix))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, reportPrefix))
	}
	sort.Strings(out)
	return out, nil
}

func (s *CachedReportStore) Save(ctx context.Context, a *models.Analysis) error {
	if err := s.c.DeleteByPattern(ctx, cache.Pattern(reportPrefix)); err != nil {
		return fmt.Errorf("invalidate reports: %w", err)
	}
	for _, ticker := range sortedTickers(a) {
		if err := s.Put(ctx, a.Reports[ticker]); err != nil {
			return err
		}
	}
	return nil
}
