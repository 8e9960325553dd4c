package repository

import (
	"context"
	"errors"
	"time"

	"FinSignal/internal/domain/models"
)

var (
	ErrNoBars        = errors.New("no bars")
	ErrReportMissing = errors.New("report not found")
)

// MarketData is a pull-based market-data provider.
type MarketData interface {
	Latest(ctx context.Context, ticker string) (*models.Bar, error)
	History(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error)
}

// MarketStream is a push-based trade feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BarLoader loads the bars the indicators job runs over.
type BarLoader interface {
	Load(ctx context.Context, tickers []string) ([]models.Bar, error)
}

// BarWriter persists bars produced by ingestion.
type BarWriter interface {
	WriteBars(ctx context.Context, bars []models.Bar) error
}

// LiveStore is the append-only store for intraday bars.
// Append reports false when the (ticker, datetime) key was already stored.
type LiveStore interface {
	Append(ctx context.Context, bar models.Bar) (bool, error)
	Close() error
}

// BarPublisher fans live bars out to other consumers.
type BarPublisher interface {
	PublishBars(ctx context.Context, bars []models.Bar) error
	Close() error
}

// ReportSink receives the result of an engine run.
type ReportSink interface {
	Name() string
	Save(ctx context.Context, a *models.Analysis) error
}

// ReportLoader reads back a previously saved run.
type ReportLoader interface {
	LoadReport(ctx context.Context) (*models.Analysis, error)
}

// ReportStore serves the latest report per ticker.
type ReportStore interface {
	Put(ctx context.Context, r *models.TickerReport) error
	Get(ctx context.Context, ticker string) (*models.TickerReport, error)
	Tickers(ctx context.Context) ([]string, error)
}

type Metrics interface {
	RecordTickerProcessed(ticker string, records, anomalies int)
	RecordError(kind string)
	RecordLastClose(ticker string, price float64)
	RecordLatency(op string, seconds float64)
	RecordFetch(ticker, result string)
	RecordBarStored(source, ticker string)
}
