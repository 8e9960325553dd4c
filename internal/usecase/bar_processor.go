package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	drepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/logger"
)

// BarProcessor routes live bars to the live store and the optional fan-out backends.
//
// The live store is the primary destination when present; otherwise the publisher is.
// Primary failures are returned so the pipeline can retry, secondary ones are logged.
type BarProcessor struct {
	store     drepo.LiveStore
	pub       drepo.BarPublisher
	warehouse drepo.BarWriter
	metrics   drepo.Metrics
	log       *logger.Logger
}

// NewBarProcessor creates a new BarProcessor. pub and warehouse may be nil.
func NewBarProcessor(
	store drepo.LiveStore,
	pub drepo.BarPublisher,
	warehouse drepo.BarWriter,
	metrics drepo.Metrics,
	log *logger.Logger,
) (*BarProcessor, error) {
	if store == nil && pub == nil {
		return nil, errors.New("bar processor needs a live store or a publisher")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BarProcessor{store: store, pub: pub, warehouse: warehouse, metrics: metrics, log: log}, nil
}

// Process stores a single bar and forwards it when it was not seen before.
func (p *BarProcessor) Process(ctx context.Context, b models.Bar) error {
	start := time.Now()

	if p.store != nil {
		stored, err := p.store.Append(ctx, b)
		if err != nil {
			p.metrics.RecordError("live_store")
			return fmt.Errorf("process bar %s: %w", b.Key(), err)
		}
		if !stored {
			p.log.Debug("duplicate bar skipped", logger.String("ticker", b.Ticker), logger.String("datetime", b.Stamp()))
			return nil
		}
		p.metrics.RecordBarStored("live", b.Ticker)
	}

	if p.pub != nil {
		if err := p.pub.PublishBars(ctx, []models.Bar{b}); err != nil {
			p.metrics.RecordError("publish_bar")
			if p.store == nil {
				return fmt.Errorf("publish bar %s: %w", b.Key(), err)
			}
			p.log.Warn("publish bar failed", logger.String("ticker", b.Ticker), logger.Error(err))
		} else {
			p.metrics.RecordBarStored("kafka", b.Ticker)
		}
	}

	if p.warehouse != nil {
		if err := p.warehouse.WriteBars(ctx, []models.Bar{b}); err != nil {
			p.metrics.RecordError("warehouse_bar")
			p.log.Warn("warehouse write failed", logger.String("ticker", b.Ticker), logger.Error(err))
		} else {
			p.metrics.RecordBarStored("clickhouse", b.Ticker)
		}
	}

	p.metrics.RecordLastClose(b.Ticker, b.Close)
	p.metrics.RecordLatency("process_bar", time.Since(start).Seconds())
	return nil
}

// Close releases the live store. Shared clients behind the publisher and
// warehouse are owned by the caller.
func (p *BarProcessor) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}
