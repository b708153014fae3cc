package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrConnClosed     = errors.New("connection closed")
)

type ClientConfig struct {
	SendBuffer      int
	PongWait        time.Duration
	PingPeriod      time.Duration
	WriteWait       time.Duration
	MaxMessageBytes int64
}

// Client is a gorilla websocket connection with one read and one write
// goroutine. All writes of data frames go through the write goroutine.
type Client struct {
	id        string
	principal Principal
	conn      *websocket.Conn
	cfg       ClientConfig
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	registry  *Registry
	handler   *InboundHandler
}

// Send queues payload without blocking.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.cfg.WriteWait))
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readPump() {
	defer func() {
		c.registry.release(c.id, c)
		c.Close()
	}()

	if c.cfg.MaxMessageBytes > 0 {
		c.conn.SetReadLimit(c.cfg.MaxMessageBytes)
	}
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		typ, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("connection_id", c.id).Msg("websocket read error")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		if typ != websocket.TextMessage {
			continue
		}
		c.handler.Handle(c.id, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Endpoint upgrades HTTP requests and runs the connection until it closes.
type Endpoint struct {
	registry *Registry
	handler  *InboundHandler
	cfg      ClientConfig
	upgrader websocket.Upgrader
}

func NewEndpoint(registry *Registry, handler *InboundHandler, cfg ClientConfig) *Endpoint {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	return &Endpoint{
		registry: registry,
		handler:  handler,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve blocks until the connection identified by id is gone.
func (e *Endpoint) Serve(w http.ResponseWriter, r *http.Request, id string, p Principal) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("connection_id", id).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		id:        id,
		principal: p,
		conn:      conn,
		cfg:       e.cfg,
		send:      make(chan []byte, e.cfg.SendBuffer),
		done:      make(chan struct{}),
		registry:  e.registry,
		handler:   e.handler,
	}
	e.registry.Register(id, c, p)
	go c.writePump()
	c.readPump()
}
