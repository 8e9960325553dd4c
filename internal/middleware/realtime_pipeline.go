package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/service/ratelimit"
	"FinSignal/pkg/logger"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, bar models.Bar) error
}

// RealtimePipeline sits between the live sources (poller, stream) and the bar processor.
// It validates, throttles per ticker, optionally transforms, and buffers bars while downstream fails.
type RealtimePipeline struct {
	proc      Proc
	metrics   domrepo.Metrics
	log       *logger.Logger
	maxRPS    int
	bufSize   int
	bufCh     chan models.Bar
	stopCh    chan struct{}
	done      chan struct{}
	started   bool
	mu        sync.Mutex
	limiter   *ratelimit.Limiter
	transform func(models.Bar) models.Bar
	backoff   time.Duration
	maxWait   time.Duration
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS sets the max bars per second per ticker.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer size used while downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a hook that rewrites a bar before it is forwarded.
func WithTransform(fn func(models.Bar) models.Bar) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

// WithBackoff sets the initial and maximum delay between buffered retries.
func WithBackoff(initial, max time.Duration) PipelineOption {
	return func(p *RealtimePipeline) {
		if initial > 0 {
			p.backoff = initial
		}
		if max >= initial {
			p.maxWait = max
		}
	}
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *RealtimePipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		proc:    proc,
		metrics: metrics,
		log:     logger.Nop(),
		maxRPS:  10,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		backoff: 50 * time.Millisecond,
		maxWait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.Bar, p.bufSize)
	p.limiter = ratelimit.New(float64(p.maxRPS), 1)
	return p
}

// Start launches background flushing of buffered bars.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flush(ctx)
}

func (p *RealtimePipeline) flush(ctx context.Context) {
	defer close(p.done)
	backoff := p.backoff
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case b := <-p.bufCh:
			if err := p.proc.Process(ctx, b); err != nil {
				if backoff < p.maxWait {
					backoff *= 2
				}
				p.metrics.RecordError("pipeline_flush")
				p.log.Warn("buffered bar retry failed",
					logger.String("ticker", b.Ticker),
					logger.String("datetime", b.Stamp()),
					logger.Duration("backoff", backoff),
					logger.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-p.stopCh:
					return
				case <-time.After(backoff):
				}
				select {
				case p.bufCh <- b:
				default:
					p.metrics.RecordError("pipeline_buffer_drop")
				}
			} else {
				backoff = p.backoff
			}
		}
	}
}

// Stop stops the background flushing and waits for it to exit.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.done
}

// Buffered returns the number of bars waiting for a retry.
func (p *RealtimePipeline) Buffered() int { return len(p.bufCh) }

// Process validates, throttles and forwards a bar downstream, buffering it on errors.
func (p *RealtimePipeline) Process(ctx context.Context, b models.Bar) error {
	start := time.Now()
	if err := b.Validate(); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return fmt.Errorf("invalid bar: %w", err)
	}
	if p.transform != nil {
		b = p.transform(b)
		if err := b.Validate(); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return fmt.Errorf("invalid bar after transform: %w", err)
		}
	}
	if !p.limiter.Allow(b.Ticker) {
		p.metrics.RecordError("pipeline_throttle")
		p.log.Debug("bar throttled", logger.String("ticker", b.Ticker))
		return nil
	}

	if err := p.proc.Process(ctx, b); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- b:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}
