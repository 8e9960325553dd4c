package usecase

import (
	"context"
	"fmt"

	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/logger"
)

// ConvertJob rewrites a saved JSON report into other sinks, typically the CSV pair.
type ConvertJob struct {
	src   domrepo.ReportLoader
	sinks []domrepo.ReportSink
	log   *logger.Logger
}

func NewConvertJob(src domrepo.ReportLoader, log *logger.Logger, sinks ...domrepo.ReportSink) *ConvertJob {
	if log == nil {
		log = logger.Nop()
	}
	return &ConvertJob{src: src, sinks: sinks, log: log}
}

func (j *ConvertJob) Run(ctx context.Context) error {
	a, err := j.src.LoadReport(ctx)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	for _, s := range j.sinks {
		if err := s.Save(ctx, a); err != nil {
			return fmt.Errorf("convert to %s: %w", s.Name(), err)
		}
		j.log.Info("report converted", logger.String("sink", s.Name()), logger.Int("tickers", len(a.Reports)))
	}
	return nil
}
