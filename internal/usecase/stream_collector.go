package usecase

import (
	"context"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	drepo "FinSignal/internal/domain/repository"
	mid "FinSignal/internal/middleware"
	"FinSignal/pkg/logger"
)

// StreamCollector turns a trade stream into one-minute bars and feeds them to the pipeline.
type StreamCollector struct {
	stream  drepo.MarketStream
	agg     *BarAggregator
	pipe    mid.Proc
	metrics drepo.Metrics
	log     *logger.Logger
	flushEv time.Duration
	done    chan struct{}
}

// NewStreamCollector creates a new StreamCollector instance.
func NewStreamCollector(stream drepo.MarketStream, agg *BarAggregator, pipe mid.Proc, metrics drepo.Metrics, log *logger.Logger) *StreamCollector {
	if log == nil {
		log = logger.Nop()
	}
	return &StreamCollector{
		stream:  stream,
		agg:     agg,
		pipe:    pipe,
		metrics: metrics,
		log:     log.With(logger.String("component", "stream_collector")),
		flushEv: 5 * time.Second,
		done:    make(chan struct{}),
	}
}

// IsConnected returns true if the market stream is connected.
func (c *StreamCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes and consumes in the background until ctx ends.
func (c *StreamCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return fmt.Errorf("stream subscribe: %w", err)
	}
	go c.run(ctx)
	return nil
}

// Done is closed once the consume loop has exited and open bars were flushed.
func (c *StreamCollector) Done() <-chan struct{} { return c.done }

func (c *StreamCollector) run(ctx context.Context) {
	defer close(c.done)
	for {
		trCh, errCh := c.stream.Read(ctx)
		err := c.consume(ctx, trCh, errCh)
		if ctx.Err() != nil {
			// a shutdown still persists the minutes in progress
			c.emit(context.WithoutCancel(ctx), c.agg.Flush(time.Now().Add(24*time.Hour)))
			return
		}
		c.metrics.RecordError("stream")
		c.log.Warn("stream interrupted, reconnecting", logger.Error(err))
		for {
			rerr := c.stream.Reconnect(ctx)
			if rerr == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			c.metrics.RecordError("stream_reconnect")
			c.log.Error("stream reconnect failed", logger.Error(rerr))
		}
	}
}

// consume returns when the stream ends or ctx is done.
func (c *StreamCollector) consume(ctx context.Context, trCh <-chan *models.Trade, errCh <-chan error) error {
	tick := time.NewTicker(c.flushEv)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-tick.C:
			c.emit(ctx, c.agg.Flush(now))
		case t, ok := <-trCh:
			if !ok {
				select {
				case err := <-errCh:
					if err != nil {
						return err
					}
				default:
				}
				return fmt.Errorf("stream closed")
			}
			c.emit(ctx, c.agg.Add(t))
		}
	}
}

func (c *StreamCollector) emit(ctx context.Context, bars []models.Bar) {
	for _, b := range bars {
		if err := c.pipe.Process(ctx, b); err != nil {
			c.log.Warn("stream bar not stored",
				logger.String("ticker", b.Ticker),
				logger.String("datetime", b.Stamp()),
				logger.Error(err))
		}
	}
}

// Shutdown closes the stream.
func (c *StreamCollector) Shutdown() error {
	return c.stream.Close()
}
