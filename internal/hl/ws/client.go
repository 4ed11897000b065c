package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Client is a thin subscribe/read wrapper over a single websocket
// connection. It does not reconnect: the feed carries ordering guarantees
// that do not survive a reconnect, so a dropped connection ends Run.
type Client struct {
	url          string
	pingInterval time.Duration
	log          *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	subs []interface{}
}

func New(url string, pingInterval time.Duration, log *zap.Logger) *Client {
	return &Client{url: url, pingInterval: pingInterval, log: log}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *Client) Subscribe(ctx context.Context, sub interface{}) error {
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("ws not connected")
	}
	return writeJSON(ctx, conn, sub)
}

// Run reads messages until the context ends or the connection drops, passing
// each raw message to handler. A clean close returns nil; anything else
// returns the read error.
func (c *Client) Run(ctx context.Context, handler func(json.RawMessage)) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("ws not connected")
	}
	pingCtx, cancel := context.WithCancel(ctx)
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		c.pingLoop(pingCtx)
	}()
	err := c.readLoop(ctx, conn, handler)
	cancel()
	<-pingDone
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		c.logInfo("ws closed", zap.Error(err))
		return nil
	}
	return err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, handler func(json.RawMessage)) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if handler != nil {
			handler(json.RawMessage(data))
		}
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	interval := c.pingInterval
	c.mu.Unlock()
	if conn == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writeJSON(ctx, conn, pingMessage); err != nil {
				return
			}
		}
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "done")
		c.conn = nil
	}
}

func (c *Client) logInfo(msg string, fields ...zap.Field) {
	if c.log == nil {
		return
	}
	c.log.Info(msg, fields...)
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

var pingMessage = map[string]any{"method": "ping"}
