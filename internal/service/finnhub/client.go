package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"FinSignal/internal/domain/models"
	drepo "FinSignal/internal/domain/repository"
	applogger "FinSignal/pkg/logger"
)

type Config struct {
	APIKey         string
	WebSocketURL   string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// Client implements a MarketStream backed by the Finnhub trade WebSocket.
type Client struct {
	cfg Config
	log *applogger.Logger

	mu        sync.Mutex // guards conn and serializes writes
	conn      *websocket.Conn
	connected atomic.Bool
	dropped   atomic.Int64
}

var _ drepo.MarketStream = (*Client)(nil)

func New(cfg Config, log *applogger.Logger) *Client {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Client{cfg: cfg, log: log.With(applogger.String("component", "finnhub"))}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.cfg.WebSocketURL)
	if err != nil {
		return fmt.Errorf("finnhub url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.cfg.APIKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.log.Info("connected")
	return nil
}

// Subscribe subscribes to configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	for _, s := range c.cfg.Symbols {
		if err := c.write(func(conn *websocket.Conn) error {
			return conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": s})
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.log.Info("subscribed", applogger.Strings("symbols", c.cfg.Symbols))
	return nil
}

func (c *Client) write(fn func(*websocket.Conn) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected.Load() {
		return fmt.Errorf("finnhub not connected")
	}
	return fn(c.conn)
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // unix ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// Read streams trades until the connection fails or ctx ends. Trades are
// dropped when the consumer falls behind; Dropped reports how many.
func (c *Client) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		errs <- fmt.Errorf("finnhub not connected")
		close(errs)
		close(trades)
		return trades, errs
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// unblock ReadMessage
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				_ = c.write(func(conn *websocket.Conn) error {
					return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				})
			}
		}
	}()

	go func() {
		defer close(trades)
		defer close(errs)
		defer close(done)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				c.connected.Store(false)
				if ctx.Err() == nil {
					errs <- fmt.Errorf("finnhub read: %w", err)
				}
				return
			}
			var m fhMessage
			if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
				continue
			}
			for _, d := range m.Data {
				select {
				case trades <- &models.Trade{Symbol: d.S, Timestamp: d.T, Price: d.P, Volume: d.V}:
				default:
					c.dropped.Add(1)
				}
			}
		}
	}()

	return trades, errs
}

// Reconnect closes, waits the reconnect delay and connects again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.cfg.ReconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) IsConnected() bool { return c.connected.Load() }

// Dropped returns how many trades were discarded on backpressure.
func (c *Client) Dropped() int64 { return c.dropped.Load() }
