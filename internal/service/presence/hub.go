package presence

import (
	"log"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tweide/chirp/internal/model/chat"
)

// Hub tracks one live websocket per user and pushes events to them.
// Every join or leave rebroadcasts the full online-user-id snapshot;
// clients replace their presence set wholesale, so the hub never emits
// per-user deltas.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
}

// send is never closed; writePump exits on done instead, so a
// concurrent broadcast can never hit a closed channel.
type client struct {
	userID string
	conn   *websocket.Conn
	send   chan chat.Envelope
	done   chan struct{}
	once   sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Register adopts conn as userID's live connection and starts its pumps.
// A previous connection for the same user is superseded and closed.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan chat.Envelope, 16),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if prev, ok := h.clients[userID]; ok {
		prev.close()
	}
	h.clients[userID] = c
	h.mu.Unlock()

	go c.writePump()
	go h.readPump(c)

	log.Printf("[hub] user %s connected", userID)
	h.broadcastPresence()
}

// OnlineIDs returns the ids of all currently connected users.
func (h *Hub) OnlineIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SendTo pushes an event to userID's live connection, if any. Returns
// false when the user has no connection or its send buffer is full.
func (h *Hub) SendTo(userID, event string, payload any) bool {
	env, err := chat.NewEnvelope(event, payload)
	if err != nil {
		log.Printf("[hub] drop %s for %s: %v", event, userID, err)
		return false
	}

	h.mu.Lock()
	c, ok := h.clients[userID]
	h.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case c.send <- env:
		return true
	default:
		// Slow consumer; drop it rather than block every sender.
		h.drop(c)
		return false
	}
}

func (h *Hub) broadcastPresence() {
	ids := h.OnlineIDs()
	env, err := chat.NewEnvelope(chat.EventOnlineUsersChanged, ids)
	if err != nil {
		log.Printf("[hub] encode presence snapshot: %v", err)
		return
	}

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case c.send <- env:
		default:
			h.drop(c)
		}
	}
}

// readPump consumes (and discards) inbound frames until the peer goes
// away; clients talk to the server over HTTP, the socket is push-only.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if h.clients[c.userID] == c {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	c.close()
	log.Printf("[hub] user %s disconnected", c.userID)
	h.broadcastPresence()
}

func (c *client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case env := <-c.send:
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}
