package features

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
)

func bars(closes ...float64) []models.Bar {
	out := make([]models.Bar, len(closes))
	for i, c := range closes {
		out[i] = models.Bar{Ticker: "EEM", Date: "2024-01-01", Open: c, Close: c, High: c + 1, Low: c - 1, Volume: 10}
	}
	return out
}

func TestExtract(t *testing.T) {
	t.Run("short history leaves windowed fields empty", func(t *testing.T) {
		recs := Extract(bars(1, 2, 3, 4, 5), DefaultParams())
		require.Len(t, recs, 5)
		for _, r := range recs {
			assert.Nil(t, r.SMA)
			assert.Nil(t, r.MA10)
			assert.Nil(t, r.RSI)
			assert.Nil(t, r.UpperBand)
			assert.Nil(t, r.PercentK)
			assert.Nil(t, r.ADX)
			assert.NotNil(t, r.EMA)
			assert.NotNil(t, r.MACD)
		}
	})

	t.Run("bar fields are carried over", func(t *testing.T) {
		in := bars(10, 11)
		recs := Extract(in, DefaultParams())
		assert.Equal(t, in[1], recs[1].Bar)
	})

	t.Run("undefined values serialize as null", func(t *testing.T) {
		recs := Extract(bars(10), DefaultParams())
		raw, err := json.Marshal(recs[0])
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		v, ok := m["SMA"]
		assert.True(t, ok)
		assert.Nil(t, v)
		assert.Equal(t, "EEM", m["ticker"])
		assert.Equal(t, 10.0, m["close_price"])
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Extract(nil, DefaultParams()))
	})
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.RSIWindow = 0
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.BollingerN = 1
	assert.Error(t, p.Validate())
}
