package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
	pkgkafka "FinSignal/pkg/kafka"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newRecordingProducer(t *testing.T, w *recordingWriter) *pkgkafka.Producer {
	t.Helper()
	p, err := pkgkafka.NewProducer(pkgkafka.WithWriter(w))
	require.NoError(t, err)
	return p
}

func TestKafkaReportSink(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes one report per ticker keyed by ticker", func(t *testing.T) {
		w := &recordingWriter{}
		sink := NewKafkaReportSink(newRecordingProducer(t, w), "etf.records")
		a := sampleAnalysis()
		a.RunID = "run-7"
		require.NoError(t, sink.Save(ctx, a))

		require.Len(t, w.msgs, len(a.Reports))
		for _, m := range w.msgs {
			assert.Equal(t, "etf.records", m.Topic)
			assert.Equal(t, "run-7", pkgkafka.Header(m, "run_id"))

			var rep models.TickerReport
			require.NoError(t, json.Unmarshal(m.Value, &rep))
			assert.Equal(t, string(m.Key), rep.Ticker)
			assert.Len(t, rep.Indicators, len(a.Reports[rep.Ticker].Indicators))
		}
	})

	t.Run("writer errors are returned", func(t *testing.T) {
		w := &recordingWriter{err: errors.New("broker down")}
		sink := NewKafkaReportSink(newRecordingProducer(t, w), "etf.records")
		assert.ErrorContains(t, sink.Save(ctx, sampleAnalysis()), "broker down")
	})
}

func TestKafkaBarPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("bars are keyed by ticker and encoded as json", func(t *testing.T) {
		w := &recordingWriter{}
		pub := NewKafkaBarPublisher(newRecordingProducer(t, w), "etf.bars")
		bars := []models.Bar{
			liveBar("SPY", "2024-03-05 09:31:00", 500),
			liveBar("QQQ", "2024-03-05 09:31:00", 430),
		}
		require.NoError(t, pub.PublishBars(ctx, bars))

		require.Len(t, w.msgs, 2)
		for i, m := range w.msgs {
			assert.Equal(t, "etf.bars", m.Topic)
			assert.Equal(t, bars[i].Ticker, string(m.Key))

			var got models.Bar
			require.NoError(t, json.Unmarshal(m.Value, &got))
			assert.Equal(t, bars[i].Key(), got.Key())
			assert.Equal(t, bars[i].Close, got.Close)
		}
	})

	t.Run("an empty batch sends nothing", func(t *testing.T) {
		w := &recordingWriter{}
		pub := NewKafkaBarPublisher(newRecordingProducer(t, w), "etf.bars")
		require.NoError(t, pub.PublishBars(ctx, nil))
		assert.Empty(t, w.msgs)
	})
}
