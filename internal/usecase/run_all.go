package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSignal/pkg/logger"
)

// Stage is one step of a sequential run.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunStages runs stages in order. A failed stage is logged and the next one still
// runs; only ctx cancellation stops the sequence early.
func RunStages(ctx context.Context, log *logger.Logger, stages ...Stage) error {
	if log == nil {
		log = logger.Nop()
	}
	var errs []error
	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		l := log.With(logger.String("stage", s.Name), logger.Int("step", i+1), logger.Int("of", len(stages)))
		l.Info("stage started")
		t0 := time.Now()
		if err := s.Run(ctx); err != nil {
			l.Error("stage failed", logger.Duration("elapsed", time.Since(t0)), logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		l.Info("stage completed", logger.Duration("elapsed", time.Since(t0)))
	}
	return errors.Join(errs...)
}
