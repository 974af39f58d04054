package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"fx-trade-lab/internal/observability"
)

// ClientConfig configures websocket feed behavior.
type ClientConfig struct {
	// ReconnectDelay is initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// Buffer is the tick channel capacity.
	Buffer int
}

// DefaultClientConfig returns default feed configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		Buffer:            1024,
	}
}

// Client streams price ticks from a broker websocket endpoint. It
// reconnects with exponential backoff and resubscribes to its markets
// after every reconnect.
type Client struct {
	endpoint string
	markets  []string
	config   ClientConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	ticks chan Tick
	done  chan struct{}
	wg    sync.WaitGroup

	logger *log.Logger
}

// NewClient connects to the endpoint and subscribes to the given
// markets. The returned client is already streaming.
func NewClient(ctx context.Context, endpoint string, markets []string, config *ClientConfig) (*Client, error) {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}

	c := &Client{
		endpoint: endpoint,
		markets:  markets,
		config:   cfg,
		ticks:    make(chan Tick, cfg.Buffer),
		done:     make(chan struct{}),
		logger:   log.New(os.Stderr, "[feed] ", log.LstdFlags),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Ticks returns the stream of incoming ticks. The channel closes when
// the client shuts down.
func (c *Client) Ticks() <-chan Tick {
	return c.ticks
}

// Close shuts the client down and waits for its goroutines to exit.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.ticks)
	return nil
}

// connect establishes the websocket connection and subscribes.
func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", c.endpoint, err)
	}

	sub := struct {
		Op      string   `json:"op"`
		Markets []string `json:"markets"`
	}{Op: "subscribe", Markets: c.markets}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// readLoop reads tick messages and pushes them onto the tick channel,
// reconnecting on read failure until the client is closed.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			observability.RecordFeedError("read")
			if !c.reconnect() {
				return
			}
			continue
		}

		var tick Tick
		if err := json.Unmarshal(data, &tick); err != nil {
			observability.RecordFeedError("decode")
			c.logger.Printf("dropping undecodable message: %v", err)
			continue
		}
		observability.RecordTick(float64(tick.Time.Unix()))

		select {
		case c.ticks <- tick:
		case <-c.done:
			return
		}
	}
}

// reconnect retries the connection with exponential backoff. Returns
// false when the client was closed while waiting.
func (c *Client) reconnect() bool {
	delay := c.config.ReconnectDelay
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		if err := c.connect(context.Background()); err == nil {
			c.logger.Printf("reconnected to %s", c.endpoint)
			return true
		}
		observability.RecordFeedError("reconnect")

		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// pingLoop keeps the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil && !c.closed.Load() {
				observability.RecordFeedError("ping")
			}
		}
	}
}
