package client

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotConnected is returned by operations that need a live push
// connection when none exists.
var ErrNotConnected = errors.New("no live connection")

// ConnManager owns the single push connection of a session. Connect is
// idempotent while the connection is live; Disconnect invalidates the
// stored handle.
type ConnManager struct {
	mu       sync.Mutex
	dial     ConnectFunc
	conn     Conn
	presence *PresenceTracker
}

// NewConnManager creates a manager dialing through dial. The presence
// tracker is bound to every new connection before delivery starts so no
// snapshot pushed on connect is missed.
func NewConnManager(dial ConnectFunc, presence *PresenceTracker) *ConnManager {
	return &ConnManager{dial: dial, presence: presence}
}

// Connect ensures a live connection for userID. A no-op when the
// current connection is still live.
func (m *ConnManager) Connect(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && m.conn.Connected() {
		return nil
	}

	conn, err := m.dial(userID)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	m.presence.Reset()
	m.presence.Bind(conn)
	conn.Start()
	m.conn = conn
	return nil
}

// Disconnect terminates the current connection if it is live. The
// handle is discarded either way; a later Connect dials fresh.
func (m *ConnManager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && m.conn.Connected() {
		m.conn.Disconnect()
	}
	m.conn = nil
	m.presence.Reset()
}

// Current returns the live connection, if any, so dependents can attach
// and detach their own listeners.
func (m *ConnManager) Current() (Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || !m.conn.Connected() {
		return nil, false
	}
	return m.conn, true
}
