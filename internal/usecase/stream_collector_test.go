package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/markethours"
	"FinSignal/pkg/metrics"
)

func trade(sym string, at time.Time, price, vol float64) *models.Trade {
	return &models.Trade{Symbol: sym, Timestamp: at.UnixMilli(), Price: price, Volume: vol}
}

func TestBarAggregator(t *testing.T) {
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, markethours.NewYork)

	t.Run("folds trades of one minute into a bar", func(t *testing.T) {
		a := NewBarAggregator()
		assert.Empty(t, a.Add(trade("SPY", base.Add(5*time.Second), 10, 1)))
		assert.Empty(t, a.Add(trade("SPY", base.Add(20*time.Second), 12, 2)))
		assert.Empty(t, a.Add(trade("SPY", base.Add(40*time.Second), 9, 3)))
		assert.Empty(t, a.Add(trade("SPY", base.Add(50*time.Second), 11, 0.4)))

		out := a.Add(trade("SPY", base.Add(70*time.Second), 13, 1))
		require.Len(t, out, 1)
		b := out[0]
		assert.Equal(t, "2024-03-05 10:00:00", b.Datetime)
		assert.Equal(t, "2024-03-05", b.Date)
		assert.Equal(t, 10.0, b.Open)
		assert.Equal(t, 12.0, b.High)
		assert.Equal(t, 9.0, b.Low)
		assert.Equal(t, 11.0, b.Close)
		assert.Equal(t, int64(6), b.Volume)
	})

	t.Run("drops late trades", func(t *testing.T) {
		a := NewBarAggregator()
		a.Add(trade("SPY", base.Add(90*time.Second), 10, 1))
		assert.Empty(t, a.Add(trade("SPY", base.Add(10*time.Second), 10, 1)))
		assert.Equal(t, int64(1), a.Late())
	})

	t.Run("flushes only finished minutes", func(t *testing.T) {
		a := NewBarAggregator()
		a.Add(trade("SPY", base.Add(5*time.Second), 10, 1))
		a.Add(trade("QQQ", base.Add(65*time.Second), 20, 1))

		out := a.Flush(base.Add(time.Minute))
		require.Len(t, out, 1)
		assert.Equal(t, "SPY", out[0].Ticker)

		out = a.Flush(base.Add(2 * time.Minute))
		require.Len(t, out, 1)
		assert.Equal(t, "QQQ", out[0].Ticker)
	})

	t.Run("ignores empty trades", func(t *testing.T) {
		a := NewBarAggregator()
		assert.Nil(t, a.Add(nil))
		assert.Nil(t, a.Add(&models.Trade{Symbol: "SPY"}))
	})
}

type fakeStream struct {
	mu         sync.Mutex
	reads      int
	reconnects atomic.Int32
	first      []*models.Trade
}

func (s *fakeStream) Connect(context.Context) error   { return nil }
func (s *fakeStream) Subscribe(context.Context) error { return nil }
func (s *fakeStream) Close() error                    { return nil }
func (s *fakeStream) IsConnected() bool               { return true }

func (s *fakeStream) Reconnect(context.Context) error {
	s.reconnects.Add(1)
	return nil
}

func (s *fakeStream) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	s.mu.Lock()
	s.reads++
	n := s.reads
	s.mu.Unlock()

	trades := make(chan *models.Trade, len(s.first))
	errs := make(chan error, 1)
	if n == 1 {
		for _, t := range s.first {
			trades <- t
		}
		errs <- errors.New("connection reset")
		close(errs)
		close(trades)
		return trades, errs
	}
	go func() {
		<-ctx.Done()
		close(errs)
		close(trades)
	}()
	return trades, errs
}

func TestStreamCollector(t *testing.T) {
	t.Run("aggregates, reconnects and flushes on shutdown", func(t *testing.T) {
		base := time.Date(2024, 3, 5, 10, 0, 0, 0, markethours.NewYork)
		stream := &fakeStream{first: []*models.Trade{
			trade("SPY", base.Add(5*time.Second), 10, 1),
			trade("SPY", base.Add(30*time.Second), 11, 1),
			trade("SPY", base.Add(70*time.Second), 12, 1),
		}}
		store := newMemLiveStore()
		pipe := procFunc(func(ctx context.Context, b models.Bar) error {
			_, err := store.Append(ctx, b)
			return err
		})

		ctx, cancel := context.WithCancel(context.Background())
		c := NewStreamCollector(stream, NewBarAggregator(), pipe, metrics.Nop{}, nil)
		require.NoError(t, c.Start(ctx))

		assert.Eventually(t, func() bool { return stream.reconnects.Load() == 1 }, time.Second, 5*time.Millisecond)
		assert.Eventually(t, func() bool { return len(store.stored()) == 1 }, time.Second, 5*time.Millisecond)

		cancel()
		select {
		case <-c.Done():
		case <-time.After(time.Second):
			t.Fatal("collector did not stop")
		}

		bars := store.stored()
		require.Len(t, bars, 2)
		assert.Equal(t, "2024-03-05 10:00:00", bars[0].Datetime)
		assert.Equal(t, 11.0, bars[0].Close)
		assert.Equal(t, "2024-03-05 10:01:00", bars[1].Datetime)
		require.NoError(t, c.Shutdown())
	})
}
