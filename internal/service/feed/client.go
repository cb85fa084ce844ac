package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tradingcore/internal/domain/models"
	drepo "tradingcore/internal/domain/repository"
	"tradingcore/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream over a market-data WebSocket emitting
// decoded trade, depth, mark-price and candle frames for one symbol.
type Client struct {
	url            string
	apiKey         string
	symbol         string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	// mu guards conn, connected, done and every write on the connection;
	// gorilla allows only one concurrent writer.
	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	done      chan struct{}
}

var _ drepo.MarketStream = (*Client)(nil)

func New(url, apiKey, symbol string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) *Client {
	return &Client{
		url:            url,
		apiKey:         apiKey,
		symbol:         symbol,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.url
	if c.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", c.url, c.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})
	c.mu.Unlock()
	c.log.Info("feed connected", logger.String("symbol", c.symbol))
	return nil
}

// Subscribe subscribes to the configured symbol's channels.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	for _, ch := range []string{"trade", "depth", "markPrice", "kline_1m"} {
		msg := map[string]string{"type": "subscribe", "channel": ch, "symbol": c.symbol}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", ch, err)
		}
	}
	return nil
}

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wsTrade struct {
	T    int64   `json:"t"` // ms
	P    float64 `json:"p"`
	Q    float64 `json:"q"`
	Side string  `json:"side"`
}

type wsDepth struct {
	Bids [][]float64 `json:"bids"`
	Asks [][]float64 `json:"asks"`
}

type wsMark struct {
	Value float64 `json:"value"`
}

type wsCandle struct {
	OpenTime    int64   `json:"open_time"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quote_volume"`
	Confirmed   bool    `json:"confirmed"`
}

// Read streams decoded FeedEvents and errors. Malformed frames are logged
// and dropped so state keeps its last valid value.
func (c *Client) Read(ctx context.Context) (<-chan *models.FeedEvent, <-chan error) {
	events := make(chan *models.FeedEvent, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	if conn == nil {
		errs <- fmt.Errorf("feed conn nil")
		close(events)
		close(errs)
		return events, errs
	}

	// ping loop, bound to this connection's lifetime
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.conn == conn && c.connected {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
				c.mu.Unlock()
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("feed read: %w", err)
				return
			}
			ev, err := parseFrame(b)
			if err != nil {
				c.log.Warn("dropping malformed frame", logger.Error(err))
				continue
			}
			if ev == nil {
				continue
			}
			select {
			case events <- ev:
			default:
				// drop on backpressure
			}
		}
	}()

	return events, errs
}

// parseFrame decodes one frame into a FeedEvent. Unknown frame types
// yield (nil, nil); invalid numeric fields yield an error.
func parseFrame(b []byte) (*models.FeedEvent, error) {
	var frame wsFrame
	if err := json.Unmarshal(b, &frame); err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}

	switch frame.Type {
	case "trade":
		var t wsTrade
		if err := json.Unmarshal(frame.Data, &t); err != nil {
			return nil, fmt.Errorf("trade frame: %w", err)
		}
		if t.P <= 0 || t.Q <= 0 || t.T <= 0 {
			return nil, fmt.Errorf("trade frame: bad values p=%v q=%v t=%v", t.P, t.Q, t.T)
		}
		side := models.SideBuy
		if t.Side == "sell" {
			side = models.SideSell
		}
		return &models.FeedEvent{
			Type:  models.EventTrade,
			Trade: &models.Trade{Time: t.T, Price: t.P, Qty: t.Q, Side: side},
		}, nil

	case "depth":
		var d wsDepth
		if err := json.Unmarshal(frame.Data, &d); err != nil {
			return nil, fmt.Errorf("depth frame: %w", err)
		}
		depth := &models.Depth{}
		var err error
		if depth.Bids, err = parseLevels(d.Bids); err != nil {
			return nil, fmt.Errorf("depth bids: %w", err)
		}
		if depth.Asks, err = parseLevels(d.Asks); err != nil {
			return nil, fmt.Errorf("depth asks: %w", err)
		}
		return &models.FeedEvent{Type: models.EventDepth, Depth: depth}, nil

	case "mark_price":
		var m wsMark
		if err := json.Unmarshal(frame.Data, &m); err != nil {
			return nil, fmt.Errorf("mark frame: %w", err)
		}
		if m.Value <= 0 {
			return nil, fmt.Errorf("mark frame: bad value %v", m.Value)
		}
		return &models.FeedEvent{Type: models.EventMarkPrice, MarkPrice: m.Value}, nil

	case "candle":
		var k wsCandle
		if err := json.Unmarshal(frame.Data, &k); err != nil {
			return nil, fmt.Errorf("candle frame: %w", err)
		}
		if k.OpenTime <= 0 || k.Open <= 0 || k.High < k.Low {
			return nil, fmt.Errorf("candle frame: bad values")
		}
		return &models.FeedEvent{
			Type: models.EventCandle,
			Candle: &models.Candle{
				OpenTime:    k.OpenTime,
				Open:        k.Open,
				High:        k.High,
				Low:         k.Low,
				Close:       k.Close,
				Volume:      k.Volume,
				QuoteVolume: k.QuoteVolume,
				Confirmed:   k.Confirmed,
			},
		}, nil
	}

	// heartbeat/ack frames
	return nil, nil
}

func parseLevels(raw [][]float64) ([]models.DepthLevel, error) {
	levels := make([]models.DepthLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("level has %d fields", len(pair))
		}
		if pair[0] <= 0 || pair[1] < 0 {
			return nil, fmt.Errorf("level has bad values %v", pair)
		}
		levels = append(levels, models.DepthLevel{Price: pair[0], Qty: pair[1]})
	}
	return levels, nil
}

// Reconnect closes and reconnects after the configured delay.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close stops the ping loop for the current connection and closes it.
// Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
