package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

func TestFileBarStore(t *testing.T) {
	ctx := context.Background()

	t.Run("loads a JSON array and filters tickers", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "economic_data.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"ticker":"SPY","date":"2024-01-02","datetime":"2024-01-02 00:00:00","open_price":1,"close_price":2,"high_price":3,"low_price":0.5,"volume":10},
			{"ticker":"QQQ","date":"2024-01-02","datetime":"2024-01-02 00:00:00","open_price":4,"close_price":5,"high_price":6,"low_price":3.5,"volume":20}
		]`), 0o644))

		bars, err := NewFileBarStore(path).Load(ctx, []string{"QQQ"})
		require.NoError(t, err)
		require.Len(t, bars, 1)
		assert.Equal(t, 5.0, bars[0].Close)
		assert.Equal(t, int64(20), bars[0].Volume)
	})

	t.Run("loads JSON lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "live.jsonl")
		require.NoError(t, os.WriteFile(path, []byte(
			`{"ticker":"SPY","date":"2024-01-02","datetime":"2024-01-02 09:31:00","open_price":1,"close_price":2,"high_price":3,"low_price":0.5,"volume":10}`+"\n\n"+
				`{"ticker":"SPY","date":"2024-01-02","datetime":"2024-01-02 09:32:00","open_price":1,"close_price":2,"high_price":3,"low_price":0.5,"volume":10}`+"\n",
		), 0o644))

		bars, err := NewFileBarStore(path).Load(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, bars, 2)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := NewFileBarStore(filepath.Join(t.TempDir(), "nope.json")).Load(ctx, nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"ticker":`), 0o644))
		_, err := NewFileBarStore(path).Load(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("no matching ticker reports no bars", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "economic_data.json")
		require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
		_, err := NewFileBarStore(path).Load(ctx, []string{"SPY"})
		assert.ErrorIs(t, err, domrepo.ErrNoBars)
	})

	t.Run("write merges with existing bars", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "economic_data.json")
		store := NewFileBarStore(path)
		require.NoError(t, store.WriteBars(ctx, []models.Bar{
			{Ticker: "SPY", Date: "2024-01-03", Datetime: "2024-01-03 00:00:00", Close: 1},
			{Ticker: "SPY", Date: "2024-01-02", Datetime: "2024-01-02 00:00:00", Close: 1},
		}))
		require.NoError(t, store.WriteBars(ctx, []models.Bar{
			{Ticker: "SPY", Date: "2024-01-03", Datetime: "2024-01-03 00:00:00", Close: 9},
		}))

		bars, err := store.Load(ctx, nil)
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, "2024-01-02", bars[0].Date)
		assert.Equal(t, 9.0, bars[1].Close)
	})
}
