package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/logger"
)

// IndicatorsJob loads bars, runs the engine and hands the result to every sink.
type IndicatorsJob struct {
	loader  domrepo.BarLoader
	engine  *IndicatorEngine
	sinks   []domrepo.ReportSink
	tickers []string
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewIndicatorsJob(
	loader domrepo.BarLoader,
	engine *IndicatorEngine,
	sinks []domrepo.ReportSink,
	tickers []string,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *IndicatorsJob {
	if log == nil {
		log = logger.Nop()
	}
	return &IndicatorsJob{loader: loader, engine: engine, sinks: sinks, tickers: tickers, metrics: metrics, log: log}
}

// Run returns the analysis even when some sinks failed; their errors are joined
// into the returned error. A load or engine failure returns no analysis and
// nothing is written.
func (j *IndicatorsJob) Run(ctx context.Context) (*models.Analysis, error) {
	start := time.Now()
	bars, err := j.loader.Load(ctx, j.tickers)
	if err != nil {
		j.metrics.RecordError("load_bars")
		return nil, fmt.Errorf("load bars: %w", err)
	}
	j.log.Info("bars loaded", logger.Int("bars", len(bars)), logger.Strings("tickers", j.tickers))

	a, err := j.engine.Run(ctx, bars)
	if err != nil {
		return nil, err
	}
	err = j.Save(ctx, a)
	j.metrics.RecordLatency("indicators_job", time.Since(start).Seconds())
	return a, err
}

// Save writes a to every sink; one failing sink never stops the others.
func (j *IndicatorsJob) Save(ctx context.Context, a *models.Analysis) error {
	var errs []error
	for _, s := range j.sinks {
		t0 := time.Now()
		if err := s.Save(ctx, a); err != nil {
			j.metrics.RecordError("sink_" + s.Name())
			j.log.Error("report sink failed", logger.String("sink", s.Name()), logger.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
			continue
		}
		j.metrics.RecordLatency("sink_"+s.Name(), time.Since(t0).Seconds())
		j.log.Info("report saved", logger.String("sink", s.Name()), logger.String("run_id", a.RunID))
	}
	return errors.Join(errs...)
}
