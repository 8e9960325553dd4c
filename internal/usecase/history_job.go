package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/logger"
)

// NamedWriter labels a bar destination in logs and metrics.
type NamedWriter struct {
	Name   string
	Writer domrepo.BarWriter
}

// HistoryResult summarises a history download.
type HistoryResult struct {
	Bars   int
	Failed map[string]string
}

// HistoryJob downloads daily bars for every ticker and writes them to each destination.
type HistoryJob struct {
	md      domrepo.MarketData
	writers []NamedWriter
	tickers []string
	from    time.Time
	to      time.Time
	workers int
	metrics domrepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewHistoryJob creates a job over [from, to). A zero to means now.
func NewHistoryJob(
	md domrepo.MarketData,
	writers []NamedWriter,
	tickers []string,
	from, to time.Time,
	workers int,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *HistoryJob {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HistoryJob{
		md: md, writers: writers, tickers: tickers, from: from, to: to,
		workers: workers, metrics: metrics, log: log, now: time.Now,
	}
}

func (j *HistoryJob) Run(ctx context.Context) (*HistoryResult, error) {
	to := j.to
	if to.IsZero() {
		to = j.now()
	}
	if !j.from.Before(to) {
		return nil, fmt.Errorf("history range: from %s is not before to %s", j.from.Format(models.DateLayout), to.Format(models.DateLayout))
	}

	res := &HistoryResult{Failed: map[string]string{}}
	var (
		mu  sync.Mutex
		all []models.Bar
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers)
	for _, ticker := range j.tickers {
		ticker := ticker
		g.Go(func() error {
			bars, err := j.md.History(gctx, ticker, j.from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res.Failed[ticker] = err.Error()
				j.metrics.RecordError("history_fetch")
				j.log.Error("history fetch failed", logger.String("ticker", ticker), logger.Error(err))
				return nil
			}
			all = append(all, bars...)
			j.log.Info("history fetched", logger.String("ticker", ticker), logger.Int("bars", len(bars)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if len(all) == 0 {
		return res, fmt.Errorf("history: %w", domrepo.ErrNoBars)
	}
	res.Bars = len(all)

	var errs []error
	for _, w := range j.writers {
		t0 := time.Now()
		if err := w.Writer.WriteBars(ctx, all); err != nil {
			j.metrics.RecordError("history_write_" + w.Name)
			j.log.Error("history write failed", logger.String("destination", w.Name), logger.Error(err))
			errs = append(errs, fmt.Errorf("write %s: %w", w.Name, err))
			continue
		}
		j.metrics.RecordLatency("history_write_"+w.Name, time.Since(t0).Seconds())
		j.log.Info("history written", logger.String("destination", w.Name), logger.Int("bars", len(all)))
	}
	return res, errors.Join(errs...)
}
