package client

import (
	"context"
	"log"
	"sync"

	"github.com/tweide/chirp/internal/model/chat"
)

// AuthSession owns the authentication state of the client: either
// anonymous or a single authenticated user with a live push connection.
// Request failures never escape; they become notifications, and the
// session stays (or becomes) anonymous.
//
// The in-flight flags are advisory guards for a UI, not locks: two
// concurrent LogIn calls both run, and the last to resolve wins.
type AuthSession struct {
	api    API
	conns  *ConnManager
	notify Notifier

	mu              sync.Mutex
	user            *chat.User
	checkedAuth     bool
	checkingAuth    bool
	signingUp       bool
	loggingIn       bool
	updatingProfile bool
}

// NewAuthSession creates an anonymous session.
func NewAuthSession(api API, conns *ConnManager, notify Notifier) *AuthSession {
	return &AuthSession{api: api, conns: conns, notify: notify, checkingAuth: true}
}

// CheckSession asks the server whether a stored credential still yields
// a user. Failure of any kind is the expected anonymous outcome and is
// not surfaced; the checked flag is set exactly once either way so a
// UI can drop its loading state.
func (s *AuthSession) CheckSession(ctx context.Context) {
	s.mu.Lock()
	s.checkingAuth = true
	s.mu.Unlock()

	user, err := s.api.CheckAuth(ctx)

	s.mu.Lock()
	if err != nil {
		log.Printf("[session] auth check: %v", err)
		s.user = nil
	} else {
		s.user = &user
	}
	s.checkingAuth = false
	s.checkedAuth = true
	s.mu.Unlock()

	if err != nil {
		s.conns.Disconnect()
		return
	}
	s.connect()
}

// SignUp submits new-account credentials; on success the session
// becomes authenticated and the push connection opens.
func (s *AuthSession) SignUp(ctx context.Context, req chat.SignupRequest) {
	s.setFlag(&s.signingUp, true)
	defer s.setFlag(&s.signingUp, false)

	user, err := s.api.SignUp(ctx, req)
	if err != nil {
		log.Printf("[session] signup: %v", err)
		s.notify.Error(ErrorMessage(err))
		return
	}

	s.setUser(user)
	s.notify.Success("Account created successfully")
	s.connect()
}

// LogIn submits credentials; on success the session becomes
// authenticated and the push connection opens.
func (s *AuthSession) LogIn(ctx context.Context, req chat.LoginRequest) {
	s.setFlag(&s.loggingIn, true)
	defer s.setFlag(&s.loggingIn, false)

	user, err := s.api.LogIn(ctx, req)
	if err != nil {
		log.Printf("[session] login: %v", err)
		s.notify.Error(ErrorMessage(err))
		return
	}

	s.setUser(user)
	s.notify.Success("Logged in successfully")
	s.connect()
}

// LogOut requests server-side session termination. Local teardown is
// unconditional: whatever the server call's outcome, the session ends
// anonymous with the connection closed. A client must not stay
// connected as a user it no longer believes is authenticated.
func (s *AuthSession) LogOut(ctx context.Context) {
	err := s.api.LogOut(ctx)

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.conns.Disconnect()

	if err != nil {
		log.Printf("[session] logout: %v", err)
		s.notify.Error(ErrorMessage(err))
		return
	}
	s.notify.Success("Logged out successfully")
}

// UpdateProfile submits a partial profile change; on success the stored
// user is replaced, on failure it is left untouched.
func (s *AuthSession) UpdateProfile(ctx context.Context, upd chat.ProfileUpdate) {
	s.setFlag(&s.updatingProfile, true)
	defer s.setFlag(&s.updatingProfile, false)

	user, err := s.api.UpdateProfile(ctx, upd)
	if err != nil {
		log.Printf("[session] update profile: %v", err)
		s.notify.Error(ErrorMessage(err))
		return
	}

	s.setUser(user)
	s.notify.Success("Profile updated successfully")
}

// User returns the authenticated user, if any.
func (s *AuthSession) User() (chat.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return chat.User{}, false
	}
	return *s.user, true
}

// CheckedAuth reports whether the initial session check has completed.
func (s *AuthSession) CheckedAuth() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkedAuth
}

// CheckingAuth reports whether a session check is in flight.
func (s *AuthSession) CheckingAuth() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkingAuth
}

// SigningUp reports whether a signup request is in flight.
func (s *AuthSession) SigningUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signingUp
}

// LoggingIn reports whether a login request is in flight.
func (s *AuthSession) LoggingIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggingIn
}

// UpdatingProfile reports whether a profile update is in flight.
func (s *AuthSession) UpdatingProfile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatingProfile
}

// connect opens the push connection for the authenticated user. A
// no-op while anonymous or while already connected.
func (s *AuthSession) connect() {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	if user == nil {
		return
	}

	if err := s.conns.Connect(user.ID); err != nil {
		log.Printf("[session] %v", err)
	}
}

func (s *AuthSession) setUser(user chat.User) {
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
}

func (s *AuthSession) setFlag(flag *bool, value bool) {
	s.mu.Lock()
	*flag = value
	s.mu.Unlock()
}
