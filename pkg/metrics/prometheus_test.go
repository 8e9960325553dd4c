package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordTickerProcessed("SPY", 30, 4)
	r.RecordTickerProcessed("SPY", 2, 0)
	r.RecordFetch("QQQ", "failed")
	r.RecordLastClose("EEM", 41.5)
	r.RecordError("ticker")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.tickersProcessed.WithLabelValues("SPY")))
	assert.Equal(t, 32.0, testutil.ToFloat64(r.records.WithLabelValues("SPY")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.anomalies.WithLabelValues("SPY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("QQQ", "failed")))
	assert.Equal(t, 41.5, testutil.ToFloat64(r.lastClose.WithLabelValues("EEM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("ticker")))
}
