package client

import (
	"log"
	"sort"
	"sync"

	"github.com/tweide/chirp/internal/model/chat"
)

// PresenceTracker mirrors the server's set of online user ids. Each
// push replaces the whole set; the server is the sole source of truth
// and never sends deltas. The listener's lifetime is tied to the
// connection it is bound to, so there is nothing to unsubscribe.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{online: make(map[string]struct{})}
}

// Bind registers the presence listener on conn.
func (t *PresenceTracker) Bind(conn Conn) {
	conn.On(chat.EventOnlineUsersChanged, func(env chat.Envelope) {
		ids, err := env.OnlineUsers()
		if err != nil {
			log.Printf("[presence] bad snapshot: %v", err)
			return
		}
		t.replace(ids)
	})
}

// Online returns the current online user ids, sorted.
func (t *PresenceTracker) Online() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.online))
	for id := range t.online {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsOnline reports whether id holds a live connection.
func (t *PresenceTracker) IsOnline(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[id]
	return ok
}

// Reset clears the set; called around connection lifecycle changes.
func (t *PresenceTracker) Reset() {
	t.replace(nil)
}

func (t *PresenceTracker) replace(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	t.mu.Lock()
	t.online = next
	t.mu.Unlock()
}
