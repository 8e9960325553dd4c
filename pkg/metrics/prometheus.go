package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tickersProcessed *prometheus.CounterVec
	records          *prometheus.CounterVec
	anomalies        *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastClose        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
	fetches          *prometheus.CounterVec
	barsStored       *prometheus.CounterVec
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		tickersProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_tickers_processed_total",
			Help: "Tickers that completed an engine run",
		}, []string{"ticker"}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_indicator_records_total",
			Help: "Indicator records produced",
		}, []string{"ticker"}),
		anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_anomalies_total",
			Help: "Signal contradictions detected",
		}, []string{"ticker"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_errors_total",
			Help: "Total number of errors encountered",
		}, []string{"type"}),
		lastClose: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "finsignal_last_close",
			Help: "Last close seen for a ticker",
		}, []string{"ticker"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finsignal_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_fetch_total",
			Help: "Market data fetches by outcome",
		}, []string{"ticker", "result"}),
		barsStored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_bars_stored_total",
			Help: "Live bars persisted by source",
		}, []string{"source", "ticker"}),
	}
}

func (r *Recorder) RecordTickerProcessed(ticker string, records, anomalies int) {
	r.tickersProcessed.WithLabelValues(ticker).Inc()
	r.records.WithLabelValues(ticker).Add(float64(records))
	r.anomalies.WithLabelValues(ticker).Add(float64(anomalies))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastClose(ticker string, price float64) {
	r.lastClose.WithLabelValues(ticker).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordFetch counts a fetch attempt; result is ok, empty or failed.
func (r *Recorder) RecordFetch(ticker, result string) {
	r.fetches.WithLabelValues(ticker, result).Inc()
}

func (r *Recorder) RecordBarStored(source, ticker string) {
	r.barsStored.WithLabelValues(source, ticker).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordTickerProcessed(string, int, int) {}
func (Nop) RecordError(string)                     {}
func (Nop) RecordLastClose(string, float64)        {}
func (Nop) RecordLatency(string, float64)          {}
func (Nop) RecordFetch(string, string)             {}
func (Nop) RecordBarStored(string, string)         {}
