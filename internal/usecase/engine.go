package usecase

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/domain/service"
	"FinSignal/internal/services/features"
	"FinSignal/pkg/logger"
)

// IndicatorEngine turns bars into per-ticker reports: indicators, signals, anomalies.
type IndicatorEngine struct {
	params   features.Params
	signals  service.SignalGenerator
	detector service.AnomalyDetector
	metrics  domrepo.Metrics
	log      *logger.Logger
	workers  int
	now      func() time.Time
}

func NewIndicatorEngine(
	params features.Params,
	signals service.SignalGenerator,
	detector service.AnomalyDetector,
	metrics domrepo.Metrics,
	log *logger.Logger,
	workers int,
) *IndicatorEngine {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &IndicatorEngine{
		params:   params,
		signals:  signals,
		detector: detector,
		metrics:  metrics,
		log:      log,
		workers:  workers,
		now:      time.Now,
	}
}

// Run processes every ticker found in bars. A failing ticker is recorded in
// Analysis.Failed and does not affect the others; only ctx cancellation aborts the run.
func (e *IndicatorEngine) Run(ctx context.Context, bars []models.Bar) (*models.Analysis, error) {
	if err := e.params.Validate(); err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("engine run: %w", domrepo.ErrNoBars)
	}

	start := time.Now()
	groups := GroupBars(bars)
	res := &models.Analysis{
		RunID:   uuid.NewString(),
		Reports: make(map[string]*models.TickerReport, len(groups)),
		Failed:  map[string]string{},
	}
	log := e.log.With(logger.String("run_id", res.RunID))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, ticker := range sortedKeys(groups) {
		ticker := ticker
		series := groups[ticker]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t0 := time.Now()
			rep, err := e.RunTicker(ticker, series)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[ticker] = err.Error()
				e.metrics.RecordError("engine_ticker")
				log.Error("ticker failed", logger.String("ticker", ticker), logger.Error(err))
				return nil
			}
			rep.RunID = res.RunID
			res.Reports[ticker] = rep

			e.metrics.RecordTickerProcessed(ticker, len(rep.Indicators), len(rep.Anomalies))
			e.metrics.RecordLastClose(ticker, rep.Latest().Close)
			e.metrics.RecordLatency("engine_ticker", time.Since(t0).Seconds())
			log.Debug("ticker processed",
				logger.String("ticker", ticker),
				logger.Int("records", len(rep.Indicators)),
				logger.Int("anomalies", len(rep.Anomalies)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("engine run: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("engine run: %w", err)
	}

	e.metrics.RecordLatency("engine_run", time.Since(start).Seconds())
	log.Info("engine run complete",
		logger.Int("tickers", len(res.Reports)),
		logger.Int("failed", len(res.Failed)),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

// RunTicker computes one ticker's report from bars already ordered by GroupBars.
// Panics inside the calculators are returned as errors.
func (e *IndicatorEngine) RunTicker(ticker string, bars []models.Bar) (rep *models.TickerReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("indicator panic",
				logger.String("ticker", ticker),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
			rep, err = nil, fmt.Errorf("ticker %s: panic: %v", ticker, r)
		}
	}()

	if len(bars) == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, domrepo.ErrNoBars)
	}
	for i := range bars {
		if verr := bars[i].Validate(); verr != nil {
			return nil, fmt.Errorf("ticker %s bar %s: %w", ticker, bars[i].Stamp(), verr)
		}
	}

	records := features.Extract(bars, e.params)
	e.signals.Apply(records)
	anomalies := e.detector.Detect(ticker, records)
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}
	return &models.TickerReport{
		Ticker:      ticker,
		GeneratedAt: e.now().UTC(),
		Indicators:  records,
		Anomalies:   anomalies,
	}, nil
}

// GroupBars splits bars by ticker, orders each group by timestamp and keeps the
// last occurrence of a duplicated timestamp.
func GroupBars(bars []models.Bar) map[string][]models.Bar {
	idx := make(map[string]map[string]int)
	groups := make(map[string][]models.Bar)
	for _, b := range bars {
		seen, ok := idx[b.Ticker]
		if !ok {
			seen = make(map[string]int)
			idx[b.Ticker] = seen
		}
		if i, dup := seen[b.Stamp()]; dup {
			groups[b.Ticker][i] = b
			continue
		}
		seen[b.Stamp()] = len(groups[b.Ticker])
		groups[b.Ticker] = append(groups[b.Ticker], b)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].Stamp() < g[j].Stamp() })
	}
	return groups
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
