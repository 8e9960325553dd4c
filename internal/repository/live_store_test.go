package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
	"FinSignal/pkg/cache"
)

func liveBar(ticker, datetime string, price float64) models.Bar {
	return models.Bar{
		Ticker: ticker, Date: datetime[:10], Datetime: datetime,
		Open: price, Close: price, High: price + 1, Low: price - 1, Volume: 100,
	}
}

func TestJSONLLiveStore(t *testing.T) {
	ctx := context.Background()

	t.Run("stores each ticker and datetime once", func(t *testing.T) {
		c := cache.NewMemoryCache()
		defer c.Close()
		store, err := NewJSONLLiveStore(t.TempDir(), c, nil)
		require.NoError(t, err)
		defer store.Close()

		added, err := store.Append(ctx, liveBar("SPY", "2024-03-05 09:31:00", 500))
		require.NoError(t, err)
		assert.True(t, added)

		added, err = store.Append(ctx, liveBar("SPY", "2024-03-05 09:31:00", 501))
		require.NoError(t, err)
		assert.False(t, added)

		added, err = store.Append(ctx, liveBar("QQQ", "2024-03-05 09:31:00", 430))
		require.NoError(t, err)
		assert.True(t, added)

		bars, err := store.ReadDay("20240305")
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, 500.0, bars[0].Close)
	})

	t.Run("reopening a day keeps earlier keys", func(t *testing.T) {
		dir := t.TempDir()
		c1 := cache.NewMemoryCache()
		defer c1.Close()
		first, err := NewJSONLLiveStore(dir, c1, nil)
		require.NoError(t, err)
		_, err = first.Append(ctx, liveBar("SPY", "2024-03-05 09:31:00", 500))
		require.NoError(t, err)
		require.NoError(t, first.Close())

		c2 := cache.NewMemoryCache()
		defer c2.Close()
		second, err := NewJSONLLiveStore(dir, c2, nil)
		require.NoError(t, err)
		defer second.Close()

		added, err := second.Append(ctx, liveBar("SPY", "2024-03-05 09:31:00", 500))
		require.NoError(t, err)
		assert.False(t, added)
	})

	t.Run("bars of a new day go to a new file", func(t *testing.T) {
		c := cache.NewMemoryCache()
		defer c.Close()
		store, err := NewJSONLLiveStore(t.TempDir(), c, nil)
		require.NoError(t, err)
		defer store.Close()

		_, err = store.Append(ctx, liveBar("SPY", "2024-03-05 15:59:00", 500))
		require.NoError(t, err)
		_, err = store.Append(ctx, liveBar("SPY", "2024-03-06 09:30:00", 502))
		require.NoError(t, err)

		day1, err := store.ReadDay("20240305")
		require.NoError(t, err)
		day2, err := store.ReadDay("20240306")
		require.NoError(t, err)
		assert.Len(t, day1, 1)
		assert.Len(t, day2, 1)
	})

	t.Run("a failed write leaves the bar retryable", func(t *testing.T) {
		c := cache.NewMemoryCache()
		defer c.Close()
		store, err := NewJSONLLiveStore(t.TempDir(), c, nil)
		require.NoError(t, err)
		defer store.Close()

		_, err = store.Append(ctx, liveBar("SPY", "2024-03-05 09:31:00", 500))
		require.NoError(t, err)
		require.NoError(t, store.file.Close())

		b := liveBar("SPY", "2024-03-05 09:32:00", 501)
		added, err := store.Append(ctx, b)
		require.Error(t, err)
		assert.False(t, added)

		seen, err := c.IsMember(ctx, liveSetKey("20240305"), b.Key())
		require.NoError(t, err)
		assert.False(t, seen)

		added, err = store.Append(ctx, b)
		require.NoError(t, err)
		assert.True(t, added)

		bars, err := store.ReadDay("20240305")
		require.NoError(t, err)
		assert.Len(t, bars, 2)
	})

	t.Run("invalid bars are rejected", func(t *testing.T) {
		c := cache.NewMemoryCache()
		defer c.Close()
		store, err := NewJSONLLiveStore(t.TempDir(), c, nil)
		require.NoError(t, err)
		defer store.Close()

		b := liveBar("SPY", "2024-03-05 09:31:00", 500)
		b.High = b.Low - 1
		_, err = store.Append(ctx, b)
		assert.Error(t, err)
	})
}
