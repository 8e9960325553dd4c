package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinSignal/internal/handler/cli"
	mid "FinSignal/internal/middleware"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/cache"
	"FinSignal/pkg/config"
	xhttp "FinSignal/pkg/http"
	pkgkafka "FinSignal/pkg/kafka"
	applogger "FinSignal/pkg/logger"
)

// Job names accepted by Run.
const (
	JobIndicators = "indicators"
	JobFetch      = "fetch"
	JobStream     = "stream"
	JobHistory    = "history"
	JobConvert    = "convert"
	JobServe      = "serve"
	JobAll        = "all"
)

// Jobs lists every job name in CLI order.
var Jobs = []string{JobIndicators, JobFetch, JobStream, JobHistory, JobConvert, JobServe, JobAll}

var ErrUnknownJob = errors.New("unknown job")

// Components is everything the jobs need. Optional parts are nil when disabled.
type Components struct {
	Config     *config.Config
	Logger     *applogger.Logger
	Cache      cache.Service
	Indicators *usecase.IndicatorsJob
	History    *usecase.HistoryJob
	Convert    *usecase.ConvertJob
	Pipeline   *mid.RealtimePipeline
	Processor  *usecase.BarProcessor
	Fetcher    *usecase.LiveFetcher
	Stream     *usecase.StreamCollector
	Consumer   *pkgkafka.Consumer
	BarsTopic  *usecase.KafkaBarsHandler
	HTTP       *xhttp.Server
}

// App encapsulates the application lifecycle.
type App struct {
	Components
	out io.Writer
}

func New(c Components) *App {
	if c.Logger == nil {
		c.Logger = applogger.Nop()
	}
	return &App{Components: c, out: os.Stdout}
}

// SetOutput redirects the CLI summary.
func (a *App) SetOutput(w io.Writer) { a.out = w }

// Run executes job and blocks until it finishes or SIGINT/SIGTERM arrives.
func (a *App) Run(job string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx, job)
}

// RunContext executes job under ctx.
func (a *App) RunContext(ctx context.Context, job string) error {
	log := a.Logger.With(applogger.String("job", job))
	log.Info("job started", applogger.String("environment", a.Config.Environment))
	start := time.Now()

	var err error
	switch job {
	case JobIndicators:
		err = a.locked(ctx, job, a.runIndicators)
	case JobHistory:
		err = a.locked(ctx, job, a.runHistory)
	case JobConvert:
		err = a.Convert.Run(ctx)
	case JobFetch:
		err = a.runFetch(ctx)
	case JobStream:
		err = a.runStream(ctx)
	case JobServe:
		err = a.runServe(ctx)
	case JobAll:
		err = usecase.RunStages(ctx, log,
			usecase.Stage{Name: JobHistory, Run: a.runHistory},
			usecase.Stage{Name: JobIndicators, Run: a.runIndicators},
			usecase.Stage{Name: JobConvert, Run: a.Convert.Run},
		)
	default:
		return fmt.Errorf("%w %q", ErrUnknownJob, job)
	}

	if err != nil {
		log.Error("job failed", applogger.Error(err), applogger.Duration("elapsed", time.Since(start)))
		return err
	}
	log.Info("job finished", applogger.Duration("elapsed", time.Since(start)))
	return nil
}

// locked runs fn under a cache lock so concurrent runners sharing redis do
// not overwrite each other's outputs.
func (a *App) locked(ctx context.Context, job string, fn func(context.Context) error) error {
	if a.Cache == nil {
		return fn(ctx)
	}
	key := "lock:job:" + job
	ok, err := a.Cache.TryLock(ctx, key, time.Hour)
	if err != nil {
		return fmt.Errorf("job lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %s is already running", job)
	}
	defer func() {
		if err := a.Cache.Unlock(context.WithoutCancel(ctx), key); err != nil {
			a.Logger.Warn("job unlock failed", applogger.String("job", job), applogger.Error(err))
		}
	}()
	return fn(ctx)
}

func (a *App) runIndicators(ctx context.Context) error {
	res, err := a.Indicators.Run(ctx)
	if res == nil {
		return err
	}
	cli.WriteSummary(a.out, res)
	if err != nil {
		a.Logger.Warn("some report sinks failed", applogger.Error(err))
	}
	return nil
}

func (a *App) runHistory(ctx context.Context) error {
	res, err := a.History.Run(ctx)
	if err != nil {
		return err
	}
	for ticker, reason := range res.Failed {
		a.Logger.Warn("history ticker failed", applogger.String("ticker", ticker), applogger.String("reason", reason))
	}
	return nil
}

func (a *App) runFetch(ctx context.Context) error {
	a.Pipeline.Start(ctx)
	defer a.stopPipeline()

	err := a.Fetcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) runStream(ctx context.Context) error {
	if a.Stream == nil {
		return errors.New("stream job needs finnhub.enabled")
	}
	a.Pipeline.Start(ctx)
	defer a.stopPipeline()

	if err := a.Stream.Start(ctx); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	<-ctx.Done()

	select {
	case <-a.Stream.Done():
	case <-time.After(a.Config.Server.ShutdownTimeout):
		a.Logger.Warn("stream flush timed out")
	}
	if err := a.Stream.Shutdown(); err != nil {
		a.Logger.Warn("stream close error", applogger.Error(err))
	}
	return nil
}

func (a *App) runServe(ctx context.Context) error {
	if a.Consumer != nil && a.BarsTopic != nil {
		a.Consumer.RegisterHandler(a.BarsTopic)
		if err := a.Consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		a.Logger.Info("kafka consumer started", applogger.String("topic", a.BarsTopic.Topic()))
	}

	if err := a.HTTP.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	<-ctx.Done()
	a.Logger.Info("shutdown signal received")
	return a.shutdown(context.WithoutCancel(ctx))
}

// shutdown stops the HTTP server and the consumer. Shared clients are closed
// by the DI cleanup.
func (a *App) shutdown(ctx context.Context) error {
	var errs []error
	if err := a.HTTP.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.Consumer != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Consumer.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer stop: %w", err))
		}
	}
	if a.Processor != nil {
		if err := a.Processor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("live store close: %w", err))
		}
	}
	a.Logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) stopPipeline() {
	a.Pipeline.Stop()
	if n := a.Pipeline.Buffered(); n > 0 {
		a.Logger.Warn("bars left unsent in pipeline buffer", applogger.Int("count", n))
	}
	if err := a.Processor.Close(); err != nil {
		a.Logger.Warn("live store close error", applogger.Error(err))
	}
}
