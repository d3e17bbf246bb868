package client

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/tweide/chirp/internal/model/chat"
)

// ErrNoPeerSelected is returned when an operation needs a selected
// conversation and none is.
var ErrNoPeerSelected = errors.New("no peer selected")

// ConversationStore owns the active conversation: the contact list, the
// selected peer, and that peer's ordered message list. The list is
// mutated by exactly two events after the initial load: a successful
// send appending the server's echo, and a subscribed push appending a
// message from the selected peer. It is discarded on reselection.
//
// The caller sequences the protocol: Unsubscribe old, SelectPeer new,
// LoadMessages new, Subscribe new. Loading after subscribing (without
// unsubscribing first) can duplicate entries; the store does not
// enforce the ordering.
type ConversationStore struct {
	api    API
	conns  *ConnManager
	notify Notifier

	mu              sync.Mutex
	contacts        []chat.User
	selected        *chat.User
	messages        []chat.Message
	loadingContacts bool
	loadingMessages bool
	sending         bool
	onAppend        func(chat.Message)
}

// NewConversationStore creates an empty store with nothing selected.
func NewConversationStore(api API, conns *ConnManager, notify Notifier) *ConversationStore {
	return &ConversationStore{api: api, conns: conns, notify: notify}
}

// LoadContacts fetches the candidate conversation partners and replaces
// the stored list wholesale. Failure is surfaced as a notification.
func (s *ConversationStore) LoadContacts(ctx context.Context) {
	s.setFlag(&s.loadingContacts, true)
	defer s.setFlag(&s.loadingContacts, false)

	users, err := s.api.Contacts(ctx)
	if err != nil {
		log.Printf("[chat] load contacts: %v", err)
		s.notify.Error(ErrorMessage(err))
		return
	}

	s.mu.Lock()
	s.contacts = users
	s.mu.Unlock()
}

// SelectPeer sets the active conversation target, or clears it with
// nil. The previous message list is discarded; it does not trigger
// loading or subscription.
func (s *ConversationStore) SelectPeer(peer *chat.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if peer == nil {
		s.selected = nil
	} else {
		p := *peer
		s.selected = &p
	}
	s.messages = nil
}

// LoadMessages fetches the full history with peerID and replaces the
// local list wholesale. Call before Subscribe, or a push racing the
// fetch can be lost or duplicated.
func (s *ConversationStore) LoadMessages(ctx context.Context, peerID string) {
	s.setFlag(&s.loadingMessages, true)
	defer s.setFlag(&s.loadingMessages, false)

	history, err := s.api.History(ctx, peerID)
	if err != nil {
		log.Printf("[chat] load messages: %v", err)
		s.notify.Error(ErrorMessage(err))
		return
	}

	s.mu.Lock()
	s.messages = history
	s.mu.Unlock()
}

// SendMessage submits a message to the selected peer and appends the
// server's authoritative echo on success. The list is never updated
// before the server acknowledges; on failure it is untouched.
func (s *ConversationStore) SendMessage(ctx context.Context, req chat.SendRequest) error {
	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return ErrNoPeerSelected
	}
	peerID := s.selected.ID
	s.mu.Unlock()

	s.setFlag(&s.sending, true)
	defer s.setFlag(&s.sending, false)

	msg, err := s.api.Send(ctx, peerID, req)
	if err != nil {
		log.Printf("[chat] send: %v", err)
		s.notify.Error(ErrorMessage(err))
		return err
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return nil
}

// Subscribe registers the new-message listener on the live connection.
// The listener appends pushes whose sender is the peer selected at
// subscription time and silently drops everything else; history for
// unselected conversations lives on the server, not here.
func (s *ConversationStore) Subscribe() error {
	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return ErrNoPeerSelected
	}
	peerID := s.selected.ID
	s.mu.Unlock()

	conn, ok := s.conns.Current()
	if !ok {
		return ErrNotConnected
	}

	conn.On(chat.EventNewMessage, func(env chat.Envelope) {
		msg, err := env.NewMessage()
		if err != nil {
			log.Printf("[chat] bad push: %v", err)
			return
		}
		if msg.SenderID != peerID {
			return
		}

		s.mu.Lock()
		s.messages = append(s.messages, msg)
		onAppend := s.onAppend
		s.mu.Unlock()

		if onAppend != nil {
			onAppend(msg)
		}
	})
	return nil
}

// Watch installs a callback invoked for every message appended by a
// push, so a display layer can react without polling Messages.
func (s *ConversationStore) Watch(fn func(chat.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAppend = fn
}

// Unsubscribe removes the new-message listener. Must run before the
// selection changes or the old listener keeps appending under its
// captured peer id.
func (s *ConversationStore) Unsubscribe() {
	conn, ok := s.conns.Current()
	if !ok {
		return
	}
	conn.Off(chat.EventNewMessage)
}

// Contacts returns the loaded contact list.
func (s *ConversationStore) Contacts() []chat.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.User(nil), s.contacts...)
}

// Selected returns the active peer, if any.
func (s *ConversationStore) Selected() (chat.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return chat.User{}, false
	}
	return *s.selected, true
}

// Messages returns the ordered message list of the active conversation.
func (s *ConversationStore) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// LoadingContacts reports whether a contact fetch is in flight.
func (s *ConversationStore) LoadingContacts() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingContacts
}

// LoadingMessages reports whether a history fetch is in flight.
func (s *ConversationStore) LoadingMessages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingMessages
}

// Sending reports whether a send is in flight.
func (s *ConversationStore) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

func (s *ConversationStore) setFlag(flag *bool, value bool) {
	s.mu.Lock()
	*flag = value
	s.mu.Unlock()
}
