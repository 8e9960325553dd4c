package usecase

import (
	"math"
	"sort"
	"sync"
	"time"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/markethours"
)

type bucket struct {
	start                  time.Time
	open, high, low, close float64
	volume                 float64
}

// BarAggregator folds streamed trades into one-minute bars stamped in New York time.
type BarAggregator struct {
	mu      sync.Mutex
	open    map[string]*bucket
	late    int64
	loc     *time.Location
	barSize time.Duration
}

func NewBarAggregator() *BarAggregator {
	return &BarAggregator{open: make(map[string]*bucket), loc: markethours.NewYork, barSize: time.Minute}
}

// Add folds t into its symbol's current bar. It returns the previous bar when t
// starts a new minute. Trades older than the open bar are counted and dropped.
func (a *BarAggregator) Add(t *models.Trade) []models.Bar {
	if t == nil || t.Symbol == "" || t.Price <= 0 {
		return nil
	}
	start := time.UnixMilli(t.Timestamp).In(a.loc).Truncate(a.barSize)

	a.mu.Lock()
	defer a.mu.Unlock()

	cur, ok := a.open[t.Symbol]
	switch {
	case !ok:
		a.open[t.Symbol] = newBucket(start, t)
		return nil
	case start.Before(cur.start):
		a.late++
		return nil
	case start.After(cur.start):
		done := cur.bar(t.Symbol)
		a.open[t.Symbol] = newBucket(start, t)
		return []models.Bar{done}
	}

	cur.high = math.Max(cur.high, t.Price)
	cur.low = math.Min(cur.low, t.Price)
	cur.close = t.Price
	cur.volume += t.Volume
	return nil
}

// Flush emits and forgets every bar whose minute ended at or before now.
func (a *BarAggregator) Flush(now time.Time) []models.Bar {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []models.Bar
	for sym, b := range a.open {
		if !b.start.Add(a.barSize).After(now) {
			out = append(out, b.bar(sym))
			delete(a.open, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Late returns how many out-of-order trades were dropped.
func (a *BarAggregator) Late() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.late
}

func newBucket(start time.Time, t *models.Trade) *bucket {
	return &bucket{start: start, open: t.Price, high: t.Price, low: t.Price, close: t.Price, volume: t.Volume}
}

func (b *bucket) bar(symbol string) models.Bar {
	return models.NewBar(symbol, b.start, b.open, b.high, b.low, b.close, int64(math.Round(b.volume)))
}
