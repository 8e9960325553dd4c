package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/repository"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/cache"
	xhttp "FinSignal/pkg/http"
)

func seededServer(t *testing.T) *xhttp.Server {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	store := repository.NewCachedReportStore(mc, time.Hour)

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	var records []models.IndicatorRecord
	for i := 0; i < 3; i++ {
		r := models.IndicatorRecord{Bar: models.NewBar("SPY", day.AddDate(0, 0, i), 10, 11, 9, 10+float64(i), 100)}
		r.RSI = models.Value(80)
		r.Signals = models.Signals{MA: models.SignalBuy, RSI: models.SignalSell, Bollinger: models.SignalHold,
			MACD: models.SignalBuy, Stochastic: models.SignalHold, ADX: models.SignalHold}
		records = append(records, r)
	}
	rep := &models.TickerReport{
		RunID:      "run-1",
		Ticker:     "SPY",
		Indicators: records,
		Anomalies: []models.Anomaly{
			{Ticker: "SPY", Date: "2024-01-03", Type: models.AnomalyMARSI,
				Details: map[string]models.Signal{"MA_Signal": models.SignalBuy, "RSI_Signal": models.SignalSell}},
			{Ticker: "SPY", Date: "2024-01-03", Type: models.AnomalyMACDRSI,
				Details: map[string]models.Signal{"MACD_Signal": models.SignalBuy, "RSI_Signal": models.SignalSell}},
		},
	}
	require.NoError(t, store.Put(context.Background(), rep))

	uc := usecase.NewReportsUseCase(store, nil, time.Minute, nil)
	return xhttp.NewServer(NewReportsEchoHandler(nil, uc))
}

func get(s *xhttp.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestReportsEchoHandler(t *testing.T) {
	s := seededServer(t)

	t.Run("lists cached tickers", func(t *testing.T) {
		rec := get(s, "/api/tickers")
		require.Equal(t, http.StatusOK, rec.Code)
		var list struct {
			Rows  []string `json:"rows"`
			Total int      `json:"total"`
		}
		decode(t, rec, &list)
		assert.Equal(t, []string{"SPY"}, list.Rows)
		assert.Equal(t, 1, list.Total)
	})

	t.Run("returns indicators within a range", func(t *testing.T) {
		rec := get(s, "/api/tickers/SPY/indicators?from=2024-01-03&limit=10")
		require.Equal(t, http.StatusOK, rec.Code)
		var res usecase.IndicatorsResult
		decode(t, rec, &res)
		assert.Equal(t, 2, res.Count)
		assert.Equal(t, "2024-01-03", res.Records[0].Date)
		require.NotNil(t, res.Records[0].RSI)
		assert.Nil(t, res.Records[0].SMA)
	})

	t.Run("renders undefined indicators as null", func(t *testing.T) {
		rec := get(s, "/api/tickers/SPY/indicators")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"SMA":null`)
	})

	t.Run("validates query parameters", func(t *testing.T) {
		rec := get(s, "/api/tickers/SPY/indicators?from=yesterday")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "ERR_DATETIME")

		rec = get(s, "/api/tickers/SPY/indicators?from=2024-02-01&to=2024-01-01")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "ERR_BAD_REQUEST")
	})

	t.Run("returns the latest signals", func(t *testing.T) {
		rec := get(s, "/api/tickers/SPY/signals")
		require.Equal(t, http.StatusOK, rec.Code)
		var res usecase.SignalsResult
		decode(t, rec, &res)
		assert.Equal(t, "2024-01-04", res.Date)
		assert.Equal(t, models.SignalSell, res.Signals.RSI)
	})

	t.Run("filters anomalies by type", func(t *testing.T) {
		rec := get(s, "/api/tickers/SPY/anomalies?type=MACD-RSI")
		require.Equal(t, http.StatusOK, rec.Code)
		var res usecase.AnomaliesResult
		decode(t, rec, &res)
		require.Equal(t, 1, res.Count)
		assert.Equal(t, models.AnomalyMACDRSI, res.Anomalies[0].Type)

		rec = get(s, "/api/tickers/SPY/anomalies?type=ADX-RSI")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown tickers are 404", func(t *testing.T) {
		rec := get(s, "/api/tickers/IWM/signals")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
	})
}
