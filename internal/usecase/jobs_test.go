package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/logger"
	"FinSignal/pkg/metrics"
)

func TestIndicatorsJob(t *testing.T) {
	ctx := context.Background()
	loader := &memLoader{bars: append(rampBars("SPY", 30, 100), rampBars("QQQ", 30, 200)...)}

	t.Run("runs the engine over the requested tickers and saves everywhere", func(t *testing.T) {
		a1, a2 := &memSink{name: "a"}, &memSink{name: "b"}
		j := NewIndicatorsJob(loader, newEngine(), []domrepo.ReportSink{a1, a2}, []string{"SPY"}, metrics.Nop{}, nil)

		a, err := j.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"SPY"}, a.Tickers())
		require.Len(t, a1.saved, 1)
		require.Len(t, a2.saved, 1)
		assert.Same(t, a, a1.saved[0])
	})

	t.Run("a failing sink does not stop the others", func(t *testing.T) {
		bad, good := &memSink{name: "bad", err: errors.New("read-only fs")}, &memSink{name: "good"}
		j := NewIndicatorsJob(loader, newEngine(), []domrepo.ReportSink{bad, good}, nil, metrics.Nop{}, nil)

		a, err := j.Run(ctx)
		require.NotNil(t, a)
		assert.ErrorContains(t, err, "sink bad")
		assert.Len(t, good.saved, 1)
	})

	t.Run("a load failure writes nothing", func(t *testing.T) {
		sink := &memSink{name: "json"}
		j := NewIndicatorsJob(&memLoader{err: errors.New("malformed input")}, newEngine(),
			[]domrepo.ReportSink{sink}, nil, metrics.Nop{}, nil)

		a, err := j.Run(ctx)
		assert.Nil(t, a)
		assert.ErrorContains(t, err, "malformed input")
		assert.Empty(t, sink.saved)
	})

	t.Run("records the run latency", func(t *testing.T) {
		m := &latencyMetrics{}
		j := NewIndicatorsJob(loader, newEngine(), []domrepo.ReportSink{&memSink{name: "json"}}, []string{"SPY"}, m, nil)
		_, err := j.Run(ctx)
		require.NoError(t, err)
		assert.Contains(t, m.recorded(), "indicators_job")
		assert.Contains(t, m.recorded(), "sink_json")
	})

	t.Run("unknown tickers surface as no bars", func(t *testing.T) {
		j := NewIndicatorsJob(loader, newEngine(), nil, []string{"IWM"}, metrics.Nop{}, nil)
		_, err := j.Run(ctx)
		assert.ErrorIs(t, err, domrepo.ErrNoBars)
	})
}

type latencyMetrics struct {
	metrics.Nop
	mu  sync.Mutex
	ops []string
}

func (m *latencyMetrics) RecordLatency(op string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

func (m *latencyMetrics) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func TestHistoryJob(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("writes every fetched ticker to each destination", func(t *testing.T) {
		file, pg := &memBarWriter{}, &memBarWriter{}
		j := NewHistoryJob(&fakeMarketData{fail: map[string]bool{"EEM": true}},
			[]NamedWriter{{"file", file}, {"postgres", pg}},
			[]string{"SPY", "QQQ", "EEM"}, from, time.Time{}, 2, metrics.Nop{}, logger.Nop())

		res, err := j.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6, res.Bars)
		assert.Contains(t, res.Failed, "EEM")
		assert.Len(t, file.written(), 6)
		assert.Len(t, pg.written(), 6)
	})

	t.Run("contains a failing destination", func(t *testing.T) {
		good := &memBarWriter{}
		j := NewHistoryJob(&fakeMarketData{}, []NamedWriter{{"clickhouse", &memBarWriter{err: errors.New("down")}}, {"file", good}},
			[]string{"SPY"}, from, time.Time{}, 1, metrics.Nop{}, nil)

		res, err := j.Run(ctx)
		assert.ErrorContains(t, err, "write clickhouse")
		assert.Equal(t, 3, res.Bars)
		assert.Len(t, good.written(), 3)
	})

	t.Run("fails when nothing could be fetched", func(t *testing.T) {
		j := NewHistoryJob(&fakeMarketData{fail: map[string]bool{"SPY": true}}, nil,
			[]string{"SPY"}, from, time.Time{}, 1, metrics.Nop{}, nil)
		_, err := j.Run(ctx)
		assert.ErrorIs(t, err, domrepo.ErrNoBars)
	})

	t.Run("rejects an empty range", func(t *testing.T) {
		j := NewHistoryJob(&fakeMarketData{}, nil, []string{"SPY"}, from, from, 1, metrics.Nop{}, nil)
		_, err := j.Run(ctx)
		assert.ErrorContains(t, err, "history range")
	})
}

type memReportLoader struct {
	a   *models.Analysis
	err error
}

func (l memReportLoader) LoadReport(context.Context) (*models.Analysis, error) { return l.a, l.err }

func TestConvertJob(t *testing.T) {
	ctx := context.Background()

	t.Run("copies the loaded report into each sink", func(t *testing.T) {
		a := &models.Analysis{Reports: map[string]*models.TickerReport{"SPY": {Ticker: "SPY"}}}
		csv := &memSink{name: "csv"}
		require.NoError(t, NewConvertJob(memReportLoader{a: a}, nil, csv).Run(ctx))
		require.Len(t, csv.saved, 1)
		assert.Same(t, a, csv.saved[0])
	})

	t.Run("fails on a missing report", func(t *testing.T) {
		err := NewConvertJob(memReportLoader{err: errors.New("no such file")}, nil, &memSink{name: "csv"}).Run(ctx)
		assert.ErrorContains(t, err, "no such file")
	})
}

func TestRunStages(t *testing.T) {
	t.Run("runs every stage in order and joins failures", func(t *testing.T) {
		var order []string
		stage := func(name string, err error) Stage {
			return Stage{Name: name, Run: func(context.Context) error {
				order = append(order, name)
				return err
			}}
		}

		err := RunStages(context.Background(), nil,
			stage("history", errors.New("offline")),
			stage("indicators", nil),
			stage("convert", nil))
		assert.Equal(t, []string{"history", "indicators", "convert"}, order)
		assert.ErrorContains(t, err, "history: offline")
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ran := 0
		err := RunStages(ctx, nil,
			Stage{Name: "first", Run: func(context.Context) error { ran++; cancel(); return nil }},
			Stage{Name: "second", Run: func(context.Context) error { ran++; return nil }})
		assert.Equal(t, 1, ran)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
