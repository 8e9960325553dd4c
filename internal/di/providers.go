package di

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"FinSignal/internal/database"
	"FinSignal/internal/domain/repository"
	"FinSignal/internal/handler/api"
	"FinSignal/internal/markethours"
	mid "FinSignal/internal/middleware"
	internalrepo "FinSignal/internal/repository"
	"FinSignal/internal/service/finnhub"
	"FinSignal/internal/service/marketdata"
	"FinSignal/internal/service/ratelimit"
	"FinSignal/internal/services/analytics"
	"FinSignal/internal/services/features"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/cache"
	pkgch "FinSignal/pkg/clickhouse"
	"FinSignal/pkg/config"
	xhttp "FinSignal/pkg/http"
	pkgkafka "FinSignal/pkg/kafka"
	applogger "FinSignal/pkg/logger"
	"FinSignal/pkg/metrics"
	"FinSignal/pkg/server"
)

const serviceName = "finsignal"

func noop() {}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, noop, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the application logger. Error digests go to the logs
// topic when the collector is enabled and kafka is available.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: serviceName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if !cfg.Log.Collector.Enabled || producer == nil {
		return l, noop, nil
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   cfg.Log.Collector.Interval,
		CountThreshold: cfg.Log.Collector.Threshold,
		Topic:          cfg.Kafka.Topics.Logs,
		Publisher:      producer,
		Service:        serviceName,
	})
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects and prepares the schema, or returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, noop, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithCreateDatabase(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideDatabase opens Postgres and applies migrations, or returns nil when disabled.
func ProvideDatabase(cfg *config.Config) (*database.DB, func(), error) {
	if !cfg.Postgres.Enabled {
		return nil, noop, nil
	}
	db, err := database.New(cfg.Postgres.DSN, database.Options{
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if cfg.Postgres.Migrate {
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return db, func() { _ = db.Close() }, nil
}

// ProvideCache returns an in-process cache, layered over Redis when redis is enabled.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	memOpts := []cache.MemoryOption{
		cache.WithMemoryMaxSize(cfg.Cache.MaxEntries),
		cache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
	}
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache(memOpts...)
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc, memOpts...)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideMarketData creates the rate limited market-data client.
func ProvideMarketData(cfg *config.Config, log *applogger.Logger, m repository.Metrics) repository.MarketData {
	mc := cfg.MarketData
	return marketdata.NewClient(mc.BaseURL,
		marketdata.WithHTTPClient(xhttp.NewClient(
			xhttp.WithTimeout(mc.Timeout),
			xhttp.WithUserAgent(mc.UserAgent),
		)),
		marketdata.WithRetry(mc.Retries, mc.RetryDelay),
		marketdata.WithLimiter(ratelimit.New(mc.RateLimit, mc.Burst)),
		marketdata.WithLogger(log),
		marketdata.WithMetrics(m),
	)
}

// ProvideCalendar builds the NYSE calendar with configured extra closures.
func ProvideCalendar(cfg *config.Config) (*markethours.Calendar, error) {
	cal, err := markethours.New(cfg.Live.Holidays...)
	if err != nil {
		return nil, fmt.Errorf("market calendar: %w", err)
	}
	return cal, nil
}

// ProvideLiveStore creates the JSON-lines live bar store.
func ProvideLiveStore(cfg *config.Config, c cache.Service, log *applogger.Logger) (repository.LiveStore, error) {
	store, err := internalrepo.NewJSONLLiveStore(cfg.Paths.LiveDir, c, log)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideBarPublisher publishes live bars to kafka, or returns nil when kafka is disabled.
func ProvideBarPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.BarPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.Topics.Bars)
}

// ProvideWarehouse mirrors live bars into ClickHouse, or returns nil when disabled.
func ProvideWarehouse(cfg *config.Config, ch *pkgch.Client, log *applogger.Logger) repository.BarWriter {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database, "live", log)
}

func ProvideBarProcessor(
	store repository.LiveStore,
	pub repository.BarPublisher,
	warehouse repository.BarWriter,
	m repository.Metrics,
	log *applogger.Logger,
) (*usecase.BarProcessor, error) {
	return usecase.NewBarProcessor(store, pub, warehouse, m, log)
}

// ProvidePipeline builds the realtime pipeline between ingestion and the bar processor.
func ProvidePipeline(cfg *config.Config, proc *usecase.BarProcessor, m repository.Metrics, log *applogger.Logger) *mid.RealtimePipeline {
	return mid.NewRealtimePipeline(proc, m,
		mid.WithMaxRPS(cfg.Live.MaxRPS),
		mid.WithBufferSize(cfg.Live.BufferSize),
		mid.WithPipelineLogger(log),
	)
}

func ProvideLiveFetcher(
	cfg *config.Config,
	md repository.MarketData,
	pipe *mid.RealtimePipeline,
	cal *markethours.Calendar,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.LiveFetcher {
	return usecase.NewLiveFetcher(md, pipe, cal, cfg.Engine.Tickers,
		usecase.WithInterval(cfg.Live.Interval),
		usecase.WithClosedPoll(cfg.Live.ClosedPoll),
		usecase.WithFetcherLogger(log),
		usecase.WithFetcherMetrics(m),
	)
}

// ProvideStreamCollector wires the finnhub trade stream, or returns nil when disabled.
func ProvideStreamCollector(cfg *config.Config, pipe *mid.RealtimePipeline, m repository.Metrics, log *applogger.Logger) *usecase.StreamCollector {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	stream := finnhub.New(finnhub.Config{
		APIKey:         cfg.Finnhub.APIKey,
		WebSocketURL:   cfg.Finnhub.WebSocketURL,
		Symbols:        cfg.StreamSymbols(),
		ReconnectDelay: cfg.Finnhub.ReconnectDelay,
		PingInterval:   cfg.Finnhub.PingInterval,
	}, log)
	return usecase.NewStreamCollector(stream, usecase.NewBarAggregator(), pipe, m, log)
}

// ProvideBarLoader selects where the indicators job reads bars from.
func ProvideBarLoader(cfg *config.Config, ch *pkgch.Client, db *database.DB, log *applogger.Logger) (repository.BarLoader, error) {
	switch cfg.Engine.Source {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("engine.source clickhouse needs clickhouse.enabled")
		}
		return internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database, "history", log), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("engine.source postgres needs postgres.enabled")
		}
		from, err := time.Parse(time.DateOnly, cfg.History.Start)
		if err != nil {
			return nil, fmt.Errorf("history.start: %w", err)
		}
		return internalrepo.NewPGBarStore(db, from), nil
	default:
		return internalrepo.NewFileBarStore(cfg.Paths.InputFile), nil
	}
}

// ProvideEngine builds the indicator engine from the configured windows and thresholds.
func ProvideEngine(cfg *config.Config, m repository.Metrics, log *applogger.Logger) (*usecase.IndicatorEngine, error) {
	ic := cfg.Indicators
	params := features.Params{
		ShortMA:     ic.ShortMA,
		LongMA:      ic.LongMA,
		SMAWindow:   ic.SMA,
		EMASpan:     ic.EMA,
		RSIWindow:   ic.RSI,
		MACDFast:    ic.MACDFast,
		MACDSlow:    ic.MACDSlow,
		MACDSignal:  ic.MACDSignal,
		BollingerN:  ic.Bollinger,
		BollingerK:  ic.BollingerK,
		StochasticK: ic.StochasticK,
		StochasticD: ic.StochasticD,
		ADXWindow:   ic.ADX,
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("indicator params: %w", err)
	}
	sc := cfg.Signals
	signals := analytics.NewSignalGenerator(analytics.Thresholds{
		RSIOversold:     sc.RSIOversold,
		RSIOverbought:   sc.RSIOverbought,
		StochOversold:   sc.StochOversold,
		StochOverbought: sc.StochOverbought,
		ADXTrend:        sc.ADXTrend,
	})
	return usecase.NewIndicatorEngine(params, signals, analytics.NewContradictionDetector(), m, log, cfg.Engine.Workers), nil
}

func ProvideReportStore(cfg *config.Config, c cache.Service) *internalrepo.CachedReportStore {
	return internalrepo.NewCachedReportStore(c, cfg.Cache.ReportTTL)
}

// ProvideReportSinks lists every destination of an indicators run. Files
// always, then each enabled backend, then the report cache.
func ProvideReportSinks(
	cfg *config.Config,
	store *internalrepo.CachedReportStore,
	db *database.DB,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
) ([]repository.ReportSink, error) {
	out := cfg.Paths.OutputDir
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", out, err)
	}
	sinks := []repository.ReportSink{
		internalrepo.NewJSONReportSink(filepath.Join(out, cfg.Paths.ReportFile)),
		internalrepo.NewCSVReportSink(
			filepath.Join(out, cfg.Paths.IndicatorsCSV),
			filepath.Join(out, cfg.Paths.AnomaliesCSV),
			cfg.Paths.CSVPrecision,
		),
	}
	if db != nil {
		sinks = append(sinks, internalrepo.NewPGReportSink(db, repository.TFDaily))
	}
	if ch != nil {
		sinks = append(sinks, internalrepo.NewCHReportSink(ch, cfg.ClickHouse.Database))
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaReportSink(producer, cfg.Kafka.Topics.Records))
	}
	return append(sinks, store), nil
}

func ProvideIndicatorsJob(
	cfg *config.Config,
	loader repository.BarLoader,
	engine *usecase.IndicatorEngine,
	sinks []repository.ReportSink,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.IndicatorsJob {
	return usecase.NewIndicatorsJob(loader, engine, sinks, cfg.Engine.Tickers, m, log)
}

// ProvideHistoryJob writes downloaded bars to the input file and to every enabled backend.
func ProvideHistoryJob(
	cfg *config.Config,
	md repository.MarketData,
	db *database.DB,
	ch *pkgch.Client,
	m repository.Metrics,
	log *applogger.Logger,
) (*usecase.HistoryJob, error) {
	hc := cfg.History
	from, err := time.Parse(time.DateOnly, hc.Start)
	if err != nil {
		return nil, fmt.Errorf("history.start: %w", err)
	}
	var to time.Time
	if hc.End != "" {
		if to, err = time.Parse(time.DateOnly, hc.End); err != nil {
			return nil, fmt.Errorf("history.end: %w", err)
		}
	}

	writers := []usecase.NamedWriter{{Name: "file", Writer: internalrepo.NewFileBarStore(hc.OutputFile)}}
	if db != nil {
		writers = append(writers, usecase.NamedWriter{Name: "postgres", Writer: internalrepo.NewPGBarStore(db, from)})
	}
	if ch != nil {
		writers = append(writers, usecase.NamedWriter{Name: "clickhouse", Writer: internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database, "history", log)})
	}
	return usecase.NewHistoryJob(md, writers, cfg.Engine.Tickers, from, to, hc.Workers, m, log), nil
}

// ProvideConvertJob rewrites the JSON report as the two CSVs.
func ProvideConvertJob(cfg *config.Config, log *applogger.Logger) *usecase.ConvertJob {
	out := cfg.Paths.OutputDir
	return usecase.NewConvertJob(
		internalrepo.NewJSONReportSink(filepath.Join(out, cfg.Paths.ReportFile)),
		log,
		internalrepo.NewCSVReportSink(
			filepath.Join(out, cfg.Paths.IndicatorsCSV),
			filepath.Join(out, cfg.Paths.AnomaliesCSV),
			cfg.Paths.CSVPrecision,
		),
	)
}

func ProvideReportsUseCase(
	cfg *config.Config,
	store *internalrepo.CachedReportStore,
	job *usecase.IndicatorsJob,
	log *applogger.Logger,
) *usecase.ReportsUseCase {
	return usecase.NewReportsUseCase(store, job, cfg.Cache.MinRefresh, log)
}

// ProvideHTTPServer builds the echo server for the reports API.
func ProvideHTTPServer(
	cfg *config.Config,
	uc *usecase.ReportsUseCase,
	db *database.DB,
	ch *pkgch.Client,
	log *applogger.Logger,
) *xhttp.Server {
	sc := cfg.Server
	opts := []xhttp.ServerOption{
		xhttp.WithPort(sc.Port),
		xhttp.WithTimeouts(sc.ReadTimeout, sc.WriteTimeout, sc.ShutdownTimeout),
		xhttp.WithLogger(log),
	}
	if db != nil {
		opts = append(opts, xhttp.WithHealthCheck("postgres", db.Health))
	}
	if ch != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", ch.Health))
	}
	if sc.RateLimit > 0 {
		opts = append(opts, xhttp.WithRateLimiter(ratelimit.New(sc.RateLimit, int(sc.RateLimit)+1)))
	}
	path := cfg.Metrics.Path
	if !cfg.Metrics.Enabled {
		path = ""
	}
	opts = append(opts, xhttp.WithMetricsPath(path))
	return xhttp.NewServer(api.NewReportsEchoHandler(log, uc), opts...)
}

// ProvideKafkaConsumer creates the bars consumer, or returns nil unless kafka.consumer is enabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerBufferSize(kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
		pkgkafka.WithConsumerFetch(kc.MinBytes, kc.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
		pkgkafka.WithConsumerRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.RejectEmptyHook(),
		pkgkafka.LoggingHook(log, time.Second),
	))
	return consumer, nil
}

// ProvideKafkaBarsHandler persists consumed bars into the live store.
func ProvideKafkaBarsHandler(cfg *config.Config, consumer *pkgkafka.Consumer, store repository.LiveStore, m repository.Metrics) *usecase.KafkaBarsHandler {
	if consumer == nil {
		return nil
	}
	return usecase.NewKafkaBarsHandler(cfg.Kafka.Topics.Bars, store, m)
}

func ProvideApp(c server.Components) *server.App {
	return server.New(c)
}
