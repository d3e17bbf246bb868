package client

import (
	"fmt"
	"log"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tweide/chirp/internal/model/chat"
)

// Conn is a live push connection. Listeners run one at a time on the
// connection's delivery goroutine; Start begins delivery so callers can
// attach listeners first without missing events sent on connect.
type Conn interface {
	Start()
	On(event string, fn func(chat.Envelope))
	Off(event string)
	Connected() bool
	Disconnect()
}

// ConnectFunc opens a push connection parameterized by the
// authenticated user's id. The returned Conn has not started delivery.
type ConnectFunc func(userID string) (Conn, error)

// wsConn is the websocket-backed Conn.
type wsConn struct {
	ws        *websocket.Conn
	started   chan struct{}
	startOnce sync.Once

	mu        sync.Mutex
	handlers  map[string][]func(chat.Envelope)
	connected bool
}

// WSConnector builds a ConnectFunc dialing the push endpoint of the
// server at baseURL (an http:// or https:// address).
func WSConnector(baseURL string) ConnectFunc {
	return func(userID string) (Conn, error) {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		switch u.Scheme {
		case "http":
			u.Scheme = "ws"
		case "https":
			u.Scheme = "wss"
		}
		u.Path = "/ws"
		u.RawQuery = url.Values{"userId": {userID}}.Encode()

		ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", u.String(), err)
		}

		c := &wsConn{
			ws:        ws,
			started:   make(chan struct{}),
			handlers:  make(map[string][]func(chat.Envelope)),
			connected: true,
		}
		go c.readLoop()
		return c, nil
	}
}

// Start releases the delivery loop. Events arriving before Start are
// held in the socket buffer, not dropped.
func (c *wsConn) Start() {
	c.startOnce.Do(func() { close(c.started) })
}

func (c *wsConn) On(event string, fn func(chat.Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], fn)
}

// Off removes every listener registered for event.
func (c *wsConn) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

func (c *wsConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *wsConn) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.mu.Unlock()

	c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.ws.Close()
}

func (c *wsConn) readLoop() {
	<-c.started
	for {
		var env chat.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			c.mu.Lock()
			wasConnected := c.connected
			c.connected = false
			c.mu.Unlock()
			if wasConnected {
				log.Printf("[conn] connection lost: %v", err)
				c.ws.Close()
			}
			return
		}

		if !chat.KnownEvent(env.Event) {
			log.Printf("[conn] unknown event kind %q, dropping", env.Event)
			continue
		}

		c.mu.Lock()
		fns := append([]func(chat.Envelope){}, c.handlers[env.Event]...)
		c.mu.Unlock()
		for _, fn := range fns {
			fn(env)
		}
	}
}
