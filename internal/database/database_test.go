package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
)

func ptr(v float64) *float64 { return &v }

func TestFlatten(t *testing.T) {
	t.Run("skips undefined values and keeps type order", func(t *testing.T) {
		r := models.IndicatorRecord{Bar: models.Bar{Ticker: "SPY", Date: "2024-03-05"}}
		r.SMA = ptr(101.5)
		r.RSI = ptr(55)

		rows, err := Flatten([]models.IndicatorRecord{r}, "")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, IndicatorSMA20, rows[0].IndicatorType)
		assert.Equal(t, IndicatorRSI14, rows[1].IndicatorType)
		assert.Equal(t, "daily", rows[0].Timeframe)
		assert.Equal(t, "101.5", rows[0].Value.String())
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		r := models.IndicatorRecord{Bar: models.Bar{Ticker: "SPY", Date: "05/03/2024"}}
		r.SMA = ptr(1)
		_, err := Flatten([]models.IndicatorRecord{r}, "daily")
		assert.Error(t, err)
	})

	t.Run("types line up with record fields", func(t *testing.T) {
		assert.Len(t, IndicatorTypes, len(models.IndicatorFields))
	})
}

func TestRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("all tables exist", func(t *testing.T) {
		for _, table := range []string{"price_data_daily", "technical_indicators", "anomalies"} {
			var exists bool
			err := testDB.conn.QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public' AND table_name = $1
				)`, table).Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists, "table %s should exist", table)
		}
	})

	t.Run("migrating twice is a no-op", func(t *testing.T) {
		assert.NoError(t, testDB.Migrate())
	})

	t.Run("price data upserts on conflict and reads back in order", func(t *testing.T) {
		testDB.TruncateAll(t)

		first := []models.Bar{
			{Ticker: "SPY", Date: "2024-01-03", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
			{Ticker: "SPY", Date: "2024-01-02", Open: 1, High: 2, Low: 0.5, Close: 1.25, Volume: 10},
		}
		require.NoError(t, testDB.UpsertPriceDataBatch(ctx, first))
		require.NoError(t, testDB.UpsertPriceDataBatch(ctx, []models.Bar{
			{Ticker: "SPY", Date: "2024-01-03", Open: 1, High: 3, Low: 0.5, Close: 2.75, Volume: 99},
		}))

		bars, err := testDB.GetPriceDataRange(ctx, "SPY", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{})
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, "2024-01-02", bars[0].Date)
		assert.Equal(t, "2024-01-03 00:00:00", bars[1].Datetime)
		assert.Equal(t, 2.75, bars[1].Close)
		assert.Equal(t, int64(99), bars[1].Volume)

		symbols, err := testDB.Symbols(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"SPY"}, symbols)
	})

	t.Run("indicators keep the latest value per type", func(t *testing.T) {
		testDB.TruncateAll(t)

		older := models.IndicatorRecord{Bar: models.Bar{Ticker: "QQQ", Date: "2024-01-02"}}
		older.RSI = ptr(40)
		newer := models.IndicatorRecord{Bar: models.Bar{Ticker: "QQQ", Date: "2024-01-03"}}
		newer.RSI = ptr(60)
		rows, err := Flatten([]models.IndicatorRecord{older, newer}, "daily")
		require.NoError(t, err)
		require.NoError(t, testDB.CreateTechnicalIndicatorBatch(ctx, rows))

		latest, err := testDB.GetLatestIndicators(ctx, "QQQ")
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, IndicatorRSI14, latest[0].IndicatorType)
		assert.Equal(t, "60", latest[0].Value.String())
	})

	t.Run("anomalies round trip with details", func(t *testing.T) {
		testDB.TruncateAll(t)

		in := []models.Anomaly{
			{Ticker: "EEM", Date: "2024-01-05", Type: models.AnomalyMARSI,
				Details: map[string]models.Signal{"MA_Signal": models.SignalBuy, "RSI_Signal": models.SignalSell}},
			{Ticker: "EEM", Date: "2024-01-06", Type: models.AnomalyMACDRSI,
				Details: map[string]models.Signal{"MACD_Signal": models.SignalSell, "RSI_Signal": models.SignalBuy}},
		}
		require.NoError(t, testDB.InsertAnomalies(ctx, "4b9c4d0e-6f0a-4c55-9d5c-1f1e2d3c4b5a", in))

		all, err := testDB.GetAnomalies(ctx, "EEM", "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, in[0].Details, all[0].Details)

		only, err := testDB.GetAnomalies(ctx, "EEM", models.AnomalyMACDRSI)
		require.NoError(t, err)
		require.Len(t, only, 1)
		assert.Equal(t, "2024-01-06", only[0].Date)
	})
}
