package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/domain/repository"
	"FinSignal/internal/markethours"
	"FinSignal/internal/service/ratelimit"
	xhttp "FinSignal/pkg/http"
	applogger "FinSignal/pkg/logger"
	"FinSignal/pkg/metrics"
)

// ErrNoData is returned when the provider answers without usable bars.
var ErrNoData = errors.New("no market data")

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol string `json:"symbol"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Client pulls bars from a Yahoo-style chart endpoint.
type Client struct {
	http     *xhttp.Client
	baseURL  string
	attempts int
	delay    time.Duration
	limiter  *ratelimit.Limiter
	log      *applogger.Logger
	metrics  repository.Metrics
}

var _ repository.MarketData = (*Client)(nil)

type Option func(*Client)

// WithRetry sets the attempt count and the fixed pause between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLimiter throttles requests per ticker.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m repository.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		attempts: 3,
		delay:    5 * time.Second,
		log:      applogger.Nop(),
		metrics:  metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	}
	if c.attempts < 1 {
		c.attempts = 1
	}
	return c
}

// Latest returns the most recent one-minute bar of the current session.
func (c *Client) Latest(ctx context.Context, ticker string) (*models.Bar, error) {
	bars, err := c.chart(ctx, ticker, map[string][]string{
		"interval": {"1m"},
		"range":    {"1d"},
	}, true)
	if err != nil {
		return nil, err
	}
	last := bars[len(bars)-1]
	c.metrics.RecordLastClose(ticker, last.Close)
	return &last, nil
}

// History returns daily bars with from <= date < to.
func (c *Client) History(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	return c.chart(ctx, ticker, map[string][]string{
		"interval": {"1d"},
		"period1":  {strconv.FormatInt(from.Unix(), 10)},
		"period2":  {strconv.FormatInt(to.Unix(), 10)},
		"events":   {"history"},
	}, false)
}

func (c *Client) chart(ctx context.Context, ticker string, query map[string][]string, intraday bool) ([]models.Bar, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(ticker))
	start := time.Now()
	defer func() { c.metrics.RecordLatency("marketdata_chart", time.Since(start).Seconds()) }()

	var resp chartResponse
	err := c.withRetry(ctx, ticker, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, ticker); err != nil {
				return err
			}
		}
		resp = chartResponse{}
		return c.http.GetJSON(ctx, endpoint, query, &resp)
	})
	if err != nil {
		c.metrics.RecordFetch(ticker, "failed")
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}

	bars, err := toBars(ticker, resp, intraday)
	if err != nil {
		c.metrics.RecordFetch(ticker, "empty")
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	c.metrics.RecordFetch(ticker, "ok")
	return bars, nil
}

// withRetry runs fn up to c.attempts times with a fixed pause, retrying only transient failures.
func (c *Client) withRetry(ctx context.Context, ticker string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = fn(); err == nil || !xhttp.IsTransient(err) {
			return err
		}
		c.log.Warn("market data fetch failed",
			applogger.String("ticker", ticker),
			applogger.Int("attempt", attempt),
			applogger.Int("max_attempts", c.attempts),
			applogger.Error(err),
		)
		if attempt == c.attempts {
			break
		}
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", c.attempts, err)
}

func toBars(ticker string, resp chartResponse, intraday bool) ([]models.Bar, error) {
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}
	r := resp.Chart.Result[0]
	q := r.Indicators.Quote[0]

	bars := make([]models.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		open, high, low, last := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if open == nil || high == nil || low == nil || last == nil {
			continue
		}
		var vol int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			vol = *q.Volume[i]
		}
		t := time.Unix(ts, 0).In(markethours.NewYork)
		b := models.NewBar(ticker, t, *open, *high, *low, *last, vol)
		if !intraday {
			b.Datetime = b.Date + " 00:00:00"
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

func at(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}
