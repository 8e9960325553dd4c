package usecase

import (
	"context"
	"sync"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// rampBars returns n daily bars with closes first, first+1, ...
func rampBars(ticker string, n int, first float64) []models.Bar {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		c := first + float64(i)
		out[i] = models.NewBar(ticker, day.AddDate(0, 0, i), c-0.5, c+1, c-1, c, 1000)
	}
	return out
}

type memLiveStore struct {
	mu     sync.Mutex
	keys   map[string]bool
	bars   []models.Bar
	err    error
	closed bool
}

func newMemLiveStore() *memLiveStore { return &memLiveStore{keys: map[string]bool{}} }

func (s *memLiveStore) Append(_ context.Context, b models.Bar) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.keys[b.Key()] {
		return false, nil
	}
	s.keys[b.Key()] = true
	s.bars = append(s.bars, b)
	return true, nil
}

func (s *memLiveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memLiveStore) stored() []models.Bar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Bar(nil), s.bars...)
}

type memBarWriter struct {
	mu   sync.Mutex
	bars []models.Bar
	err  error
}

func (w *memBarWriter) WriteBars(_ context.Context, bars []models.Bar) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.bars = append(w.bars, bars...)
	return nil
}

func (w *memBarWriter) written() []models.Bar {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Bar(nil), w.bars...)
}

type memPublisher struct {
	memBarWriter
}

func (p *memPublisher) PublishBars(ctx context.Context, bars []models.Bar) error {
	return p.WriteBars(ctx, bars)
}

func (p *memPublisher) Close() error { return nil }

type memLoader struct {
	bars []models.Bar
	err  error
}

func (l *memLoader) Load(_ context.Context, tickers []string) ([]models.Bar, error) {
	if l.err != nil {
		return nil, l.err
	}
	if len(tickers) == 0 {
		return l.bars, nil
	}
	want := map[string]bool{}
	for _, t := range tickers {
		want[t] = true
	}
	var out []models.Bar
	for _, b := range l.bars {
		if want[b.Ticker] {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, domrepo.ErrNoBars
	}
	return out, nil
}

type memSink struct {
	name  string
	err   error
	saved []*models.Analysis
}

func (s *memSink) Name() string { return s.name }

func (s *memSink) Save(_ context.Context, a *models.Analysis) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, a)
	return nil
}
