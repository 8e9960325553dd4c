package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"FinSignal/pkg/util"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Engine      EngineConfig     `yaml:"engine"`
	Indicators  IndicatorConfig  `yaml:"indicators"`
	Signals     SignalConfig     `yaml:"signals"`
	Paths       PathsConfig      `yaml:"paths"`
	MarketData  MarketDataConfig `yaml:"market_data"`
	Live        LiveConfig       `yaml:"live"`
	History     HistoryConfig    `yaml:"history"`
	Finnhub     FinnhubConfig    `yaml:"finnhub"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Postgres    PostgresConfig   `yaml:"postgres"`
	Redis       RedisConfig      `yaml:"redis"`
	Cache       CacheConfig      `yaml:"cache"`
}

type LogConfig struct {
	Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format    string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output    string `yaml:"output" default:"stdout"`
	Collector struct {
		Enabled   bool          `yaml:"enabled"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100" validate:"gte=1"`
	} `yaml:"collector"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	RateLimit       float64       `yaml:"rate_limit" default:"20" validate:"gte=0"` // requests per second per client, 0 disables
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type EngineConfig struct {
	Tickers []string `yaml:"tickers" default:"[\"SPY\",\"QQQ\",\"EEM\"]" validate:"min=1,dive,required"`
	Workers int      `yaml:"workers" default:"4" validate:"gte=1"`
	// Source of bars for the indicators job: file, clickhouse or postgres.
	Source string `yaml:"source" default:"file" validate:"oneof=file clickhouse postgres"`
}

// IndicatorConfig holds calculator windows.
type IndicatorConfig struct {
	ShortMA     int     `yaml:"short_ma" default:"10" validate:"gte=1"`
	LongMA      int     `yaml:"long_ma" default:"20" validate:"gte=1"`
	SMA         int     `yaml:"sma" default:"20" validate:"gte=1"`
	EMA         int     `yaml:"ema" default:"20" validate:"gte=1"`
	RSI         int     `yaml:"rsi" default:"14" validate:"gte=1"`
	MACDFast    int     `yaml:"macd_fast" default:"12" validate:"gte=1"`
	MACDSlow    int     `yaml:"macd_slow" default:"26" validate:"gte=1"`
	MACDSignal  int     `yaml:"macd_signal" default:"9" validate:"gte=1"`
	Bollinger   int     `yaml:"bollinger" default:"20" validate:"gte=2"`
	BollingerK  float64 `yaml:"bollinger_k" default:"2" validate:"gt=0"`
	StochasticK int     `yaml:"stochastic_k" default:"14" validate:"gte=1"`
	StochasticD int     `yaml:"stochastic_d" default:"3" validate:"gte=1"`
	ADX         int     `yaml:"adx" default:"14" validate:"gte=1"`
}

type SignalConfig struct {
	RSIOversold     float64 `yaml:"rsi_oversold" default:"30"`
	RSIOverbought   float64 `yaml:"rsi_overbought" default:"70" validate:"gtfield=RSIOversold"`
	StochOversold   float64 `yaml:"stoch_oversold" default:"20"`
	StochOverbought float64 `yaml:"stoch_overbought" default:"80" validate:"gtfield=StochOversold"`
	ADXTrend        float64 `yaml:"adx_trend" default:"25" validate:"gte=0"`
}

type PathsConfig struct {
	InputFile     string `yaml:"input_file" default:"data/economic_data.json" validate:"required"`
	OutputDir     string `yaml:"output_dir" default:"output" validate:"required"`
	LiveDir       string `yaml:"live_dir" default:"data/live" validate:"required"`
	ReportFile    string `yaml:"report_file" default:"analysis_output.json"`
	IndicatorsCSV string `yaml:"indicators_csv" default:"indicators.csv"`
	AnomaliesCSV  string `yaml:"anomalies_csv" default:"anomalies.csv"`
	CSVPrecision  int32  `yaml:"csv_precision" default:"6" validate:"gte=0,lte=12"`
}

type MarketDataConfig struct {
	BaseURL    string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
	UserAgent  string        `yaml:"user_agent" default:"Mozilla/5.0 (FinSignal)"`
	Timeout    time.Duration `yaml:"timeout" default:"10s"`
	Retries    int           `yaml:"retries" default:"3" validate:"gte=1"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	RateLimit  float64       `yaml:"rate_limit" default:"2" validate:"gt=0"` // requests per second
	Burst      int           `yaml:"burst" default:"3" validate:"gte=1"`
}

type LiveConfig struct {
	Interval   time.Duration `yaml:"interval" default:"60s"`
	ClosedPoll time.Duration `yaml:"closed_poll" default:"5m"`
	MaxRPS     int           `yaml:"max_rps" default:"10" validate:"gte=1"` // per ticker, through the realtime pipeline
	BufferSize int           `yaml:"buffer_size" default:"1000" validate:"gte=1"`
	Holidays   []string      `yaml:"holidays" validate:"dive,datetime=2006-01-02"` // extra closures on top of the built-in calendar
}

type HistoryConfig struct {
	Start      string `yaml:"start" default:"2020-01-01" validate:"datetime=2006-01-02"`
	End        string `yaml:"end" validate:"omitempty,datetime=2006-01-02"`
	OutputFile string `yaml:"output_file" default:"data/economic_data.json" validate:"required"`
	Workers    int    `yaml:"workers" default:"3" validate:"gte=1"`
}

type FinnhubConfig struct {
	Enabled        bool          `yaml:"enabled"`
	APIKey         string        `yaml:"api_key" validate:"required_if=Enabled true"`
	WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
	Symbols        []string      `yaml:"symbols"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
	RequiredAcks int      `yaml:"required_acks" default:"1" validate:"min=-1,max=1"`
	Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Topics       struct {
		Bars    string `yaml:"bars" default:"bars"`
		Records string `yaml:"records" default:"records"`
		Logs    string `yaml:"logs" default:"engine-logs"`
	} `yaml:"topics"`
	Producer struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		GroupID    string        `yaml:"group_id" default:"finsignal-bars"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"100"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"bars-dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"finsignal"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn" validate:"required_if=Enabled true"`
	MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	Migrate         bool          `yaml:"migrate" default:"true"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"finsignal"`
}

type CacheConfig struct {
	ReportTTL       time.Duration `yaml:"report_ttl" default:"24h"`
	MaxEntries      int           `yaml:"max_entries" default:"1024" validate:"gte=1"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
	// MinRefresh throttles recomputation when the API misses the report cache.
	MinRefresh time.Duration `yaml:"min_refresh" default:"1m"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("TICKERS"); v != "" {
		c.Engine.Tickers = util.SplitList(v)
	}
	if v := os.Getenv("INPUT_FILE"); v != "" {
		c.Paths.InputFile = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Paths.OutputDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
		c.Postgres.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// StreamSymbols returns the finnhub subscription list, falling back to the engine tickers.
func (c *Config) StreamSymbols() []string {
	if len(c.Finnhub.Symbols) > 0 {
		return c.Finnhub.Symbols
	}
	return c.Engine.Tickers
}
