package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	drepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/markethours"
	mid "FinSignal/internal/middleware"
	"FinSignal/pkg/logger"
	"FinSignal/pkg/metrics"
)

// LiveFetcher polls the latest one-minute bar of every ticker while the market is open.
type LiveFetcher struct {
	md         drepo.MarketData
	pipe       mid.Proc
	cal        *markethours.Calendar
	tickers    []string
	interval   time.Duration
	closedPoll time.Duration
	metrics    drepo.Metrics
	log        *logger.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

type FetcherOption func(*LiveFetcher)

func WithInterval(d time.Duration) FetcherOption {
	return func(f *LiveFetcher) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithClosedPoll sets how often a closed market is re-checked.
func WithClosedPoll(d time.Duration) FetcherOption {
	return func(f *LiveFetcher) {
		if d > 0 {
			f.closedPoll = d
		}
	}
}

func WithFetcherLogger(l *logger.Logger) FetcherOption {
	return func(f *LiveFetcher) {
		if l != nil {
			f.log = l
		}
	}
}

func WithFetcherMetrics(m drepo.Metrics) FetcherOption {
	return func(f *LiveFetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// NewLiveFetcher creates a fetcher that sends every fetched bar through pipe.
func NewLiveFetcher(md drepo.MarketData, pipe mid.Proc, cal *markethours.Calendar, tickers []string, opts ...FetcherOption) *LiveFetcher {
	f := &LiveFetcher{
		md:         md,
		pipe:       pipe,
		cal:        cal,
		tickers:    tickers,
		interval:   time.Minute,
		closedPoll: 5 * time.Minute,
		metrics:    metrics.Nop{},
		log:        logger.Nop(),
		now:        time.Now,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run loops until ctx is cancelled.
func (f *LiveFetcher) Run(ctx context.Context) error {
	f.log.Info("live fetcher started",
		logger.Strings("tickers", f.tickers),
		logger.Duration("interval", f.interval))
	for {
		now := f.now()
		wait := f.interval
		if f.cal.IsOpen(now) {
			t0 := time.Now()
			n := f.Tick(ctx)
			f.log.Info("fetch round complete",
				logger.Int("bars", n),
				logger.Int("tickers", len(f.tickers)),
				logger.Duration("elapsed", time.Since(t0)))
		} else {
			wait = f.closedPoll
			if until := f.cal.TimeUntilOpen(now); until > 0 && until < wait {
				wait = until
			}
			f.log.Info(f.cal.StatusString(now), logger.Duration("next_check", wait))
		}
		if err := f.sleep(ctx, wait); err != nil {
			f.log.Info("live fetcher stopped")
			return nil
		}
	}
}

// Tick fetches every ticker once, concurrently, and returns how many bars were forwarded.
// Failures are logged per ticker and never stop the round.
func (f *LiveFetcher) Tick(ctx context.Context) int {
	var forwarded atomic.Int64
	var g errgroup.Group
	for _, ticker := range f.tickers {
		ticker := ticker
		g.Go(func() error {
			bar, err := f.md.Latest(ctx, ticker)
			if err != nil {
				f.metrics.RecordError("live_fetch")
				f.log.Warn("live fetch failed", logger.String("ticker", ticker), logger.Error(err))
				return nil
			}
			if bar == nil {
				return nil
			}
			if err := f.pipe.Process(ctx, *bar); err != nil {
				f.log.Warn("live bar not stored",
					logger.String("ticker", ticker),
					logger.String("datetime", bar.Stamp()),
					logger.Error(err))
				return nil
			}
			forwarded.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(forwarded.Load())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
