// Package livews carries live subscription snapshots to browsers over a
// websocket. Each connection runs one read pump and one write pump; the
// connection's context is canceled when either side ends, which is what
// tears down the subscriptions feeding it.
package livews

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config tunes heartbeats and limits.
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	AllowedOrigins []string // empty: same-origin only
}

// DefaultConfig mirrors common gorilla/websocket settings.
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 8 * 1024,
	}
}

// Conn is one upgraded connection.
type Conn struct {
	ws     *websocket.Conn
	send   chan []byte
	cfg    Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	finishing  chan struct{}
	finishOnce sync.Once
}

// Upgrade switches r to the websocket protocol. The returned connection's
// context derives from context.Background, not from r.
func Upgrade(w http.ResponseWriter, r *http.Request, cfg Config, log *zap.Logger) (*Conn, error) {
	up := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(cfg.AllowedOrigins) > 0 {
		up.CheckOrigin = originChecker(cfg.AllowedOrigins)
	}

	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		ws:     ws,
		send:   make(chan []byte, 16),
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,

		finishing: make(chan struct{}),
	}, nil
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// Context is canceled once the connection is gone.
func (c *Conn) Context() context.Context {
	return c.ctx
}

// Send queues v as a JSON text frame. It blocks while the client is slow and
// returns the context error once the connection has ended.
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// Finish queues v as the last frame and closes the connection once every
// queued frame has been written.
func (c *Conn) Finish(v any) error {
	if err := c.Send(v); err != nil {
		return err
	}
	c.finishOnce.Do(func() { close(c.finishing) })
	return nil
}

// Serve runs the pumps and blocks until the connection ends. onMessage is
// called from the read pump for every text frame; it may be nil for
// push-only connections.
func (c *Conn) Serve(onMessage func([]byte)) {
	go c.writePump()
	c.readPump(onMessage)
}

// Close ends the connection.
func (c *Conn) Close() {
	c.once.Do(func() {
		c.cancel()
		_ = c.ws.Close()
	})
}

func (c *Conn) readPump(onMessage func([]byte)) {
	defer c.Close()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		if onMessage != nil {
			onMessage(message)
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.finishing:
			for {
				select {
				case message := <-c.send:
					_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
					if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}

		case <-c.ctx.Done():
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
