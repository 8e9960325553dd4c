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
	"FinSignal/internal/markethours"
)

type fakeMarketData struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int
}

func (m *fakeMarketData) Latest(_ context.Context, ticker string) (*models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[ticker]++
	if m.fail[ticker] {
		return nil, errors.New("upstream 503")
	}
	b := rampBars(ticker, 1, 50)[0]
	return &b, nil
}

func (m *fakeMarketData) History(_ context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	if m.fail[ticker] {
		return nil, errors.New("upstream 503")
	}
	return rampBars(ticker, 3, 50), nil
}

type procFunc func(context.Context, models.Bar) error

func (f procFunc) Process(ctx context.Context, b models.Bar) error { return f(ctx, b) }

func TestLiveFetcher(t *testing.T) {
	cal, err := markethours.New()
	require.NoError(t, err)

	t.Run("tick forwards every successful fetch", func(t *testing.T) {
		md := &fakeMarketData{fail: map[string]bool{"EEM": true}}
		store := newMemLiveStore()
		f := NewLiveFetcher(md, procFunc(func(ctx context.Context, b models.Bar) error {
			_, err := store.Append(ctx, b)
			return err
		}), cal, []string{"SPY", "QQQ", "EEM"})

		n := f.Tick(context.Background())
		assert.Equal(t, 2, n)
		assert.Len(t, store.stored(), 2)
		assert.Equal(t, 1, md.calls["EEM"])
	})

	t.Run("polls while the market is open", func(t *testing.T) {
		md := &fakeMarketData{}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var waits []time.Duration
		f := NewLiveFetcher(md, procFunc(func(context.Context, models.Bar) error { return nil }), cal,
			[]string{"SPY"}, WithInterval(time.Minute))
		f.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, markethours.NewYork) }
		f.sleep = func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			if len(waits) == 2 {
				cancel()
				return context.Canceled
			}
			return nil
		}

		require.NoError(t, f.Run(ctx))
		assert.Equal(t, []time.Duration{time.Minute, time.Minute}, waits)
		assert.Equal(t, 2, md.calls["SPY"])
	})

	t.Run("waits while the market is closed", func(t *testing.T) {
		md := &fakeMarketData{}
		var waits []time.Duration
		f := NewLiveFetcher(md, procFunc(func(context.Context, models.Bar) error { return nil }), cal,
			[]string{"SPY"}, WithClosedPoll(5*time.Minute))
		f.sleep = func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return context.Canceled
		}

		// Saturday: the next open is days away, so the closed poll applies.
		f.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, markethours.NewYork) }
		require.NoError(t, f.Run(context.Background()))

		// Two minutes before the open the wait is capped at the open.
		f.now = func() time.Time { return time.Date(2024, 3, 5, 9, 28, 0, 0, markethours.NewYork) }
		require.NoError(t, f.Run(context.Background()))

		assert.Equal(t, []time.Duration{5 * time.Minute, 2 * time.Minute}, waits)
		assert.Zero(t, md.calls["SPY"])
	})
}
