package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
	"FinSignal/pkg/metrics"
)

type fakeProc struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []models.Bar
}

func (f *fakeProc) Process(_ context.Context, b models.Bar) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("downstream unavailable")
	}
	f.got = append(f.got, b)
	return nil
}

func (f *fakeProc) delivered() []models.Bar {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Bar(nil), f.got...)
}

func bar(ticker string, minute int) models.Bar {
	t := time.Date(2024, 3, 4, 10, minute, 0, 0, time.UTC)
	return models.NewBar(ticker, t, 10, 11, 9, 10.5, 100)
}

func TestRealtimePipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects invalid bars before the processor", func(t *testing.T) {
		proc := &fakeProc{}
		p := NewRealtimePipeline(proc, metrics.Nop{})

		b := bar("SPY", 0)
		b.High, b.Low = 1, 2
		require.Error(t, p.Process(ctx, b))
		assert.Zero(t, proc.calls)
	})

	t.Run("throttles per ticker", func(t *testing.T) {
		proc := &fakeProc{}
		p := NewRealtimePipeline(proc, metrics.Nop{}, WithMaxRPS(1))

		require.NoError(t, p.Process(ctx, bar("SPY", 0)))
		require.NoError(t, p.Process(ctx, bar("SPY", 1)))
		require.NoError(t, p.Process(ctx, bar("QQQ", 0)))

		got := proc.delivered()
		require.Len(t, got, 2)
		assert.Equal(t, "SPY", got[0].Ticker)
		assert.Equal(t, "QQQ", got[1].Ticker)
	})

	t.Run("applies the transform hook", func(t *testing.T) {
		proc := &fakeProc{}
		p := NewRealtimePipeline(proc, metrics.Nop{}, WithTransform(func(b models.Bar) models.Bar {
			b.Ticker = "X" + b.Ticker
			return b
		}))

		require.NoError(t, p.Process(ctx, bar("SPY", 0)))
		assert.Equal(t, "XSPY", proc.delivered()[0].Ticker)
	})

	t.Run("buffers failed bars and retries them in the background", func(t *testing.T) {
		proc := &fakeProc{failures: 1}
		p := NewRealtimePipeline(proc, metrics.Nop{}, WithBackoff(time.Millisecond, 5*time.Millisecond))

		err := p.Process(ctx, bar("SPY", 0))
		require.Error(t, err)
		assert.Equal(t, 1, p.Buffered())

		p.Start(ctx)
		defer p.Stop()
		assert.Eventually(t, func() bool { return len(proc.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("stop is safe without start and when repeated", func(t *testing.T) {
		p := NewRealtimePipeline(&fakeProc{}, metrics.Nop{})
		p.Stop()
		p.Start(ctx)
		p.Stop()
		p.Stop()
	})
}
