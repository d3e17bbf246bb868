package chat

import (
	"encoding/json"
	"fmt"
)

// Push event names carried over the persistent connection. The server is
// the sole producer; clients only ever consume these.
const (
	EventOnlineUsersChanged = "online-users-changed"
	EventNewMessage         = "new-message"
)

// KnownEvent reports whether name is an event kind this protocol
// defines. Consumers log and drop anything else.
func KnownEvent(name string) bool {
	switch name {
	case EventOnlineUsersChanged, EventNewMessage:
		return true
	}
	return false
}

// Envelope frames every push event on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope frames a payload under an event name.
func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// OnlineUsers decodes an online-users-changed payload: the full snapshot
// of online user ids, never a delta.
func (e Envelope) OnlineUsers() ([]string, error) {
	if e.Event != EventOnlineUsersChanged {
		return nil, fmt.Errorf("not an %s event: %s", EventOnlineUsersChanged, e.Event)
	}
	var ids []string
	if err := json.Unmarshal(e.Data, &ids); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return ids, nil
}

// NewMessage decodes a new-message payload.
func (e Envelope) NewMessage() (Message, error) {
	if e.Event != EventNewMessage {
		return Message{}, fmt.Errorf("not a %s event: %s", EventNewMessage, e.Event)
	}
	var msg Message
	if err := json.Unmarshal(e.Data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	if msg.SenderID == "" {
		return Message{}, fmt.Errorf("%s payload missing sender id", e.Event)
	}
	return msg, nil
}
