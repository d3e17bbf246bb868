package client_test

import (
	"context"
	"sync"

	"github.com/tweide/chirp/internal/client"
	"github.com/tweide/chirp/internal/model/chat"
)

// fakeAPI scripts responses per endpoint; nil funcs fail the call with
// a zero APIError so unset endpoints are obvious in tests.
type fakeAPI struct {
	checkAuth     func(ctx context.Context) (chat.User, error)
	signUp        func(ctx context.Context, req chat.SignupRequest) (chat.User, error)
	logIn         func(ctx context.Context, req chat.LoginRequest) (chat.User, error)
	logOut        func(ctx context.Context) error
	updateProfile func(ctx context.Context, upd chat.ProfileUpdate) (chat.User, error)
	contacts      func(ctx context.Context) ([]chat.User, error)
	history       func(ctx context.Context, peerID string) ([]chat.Message, error)
	send          func(ctx context.Context, peerID string, req chat.SendRequest) (chat.Message, error)
}

func (f *fakeAPI) CheckAuth(ctx context.Context) (chat.User, error) {
	if f.checkAuth == nil {
		return chat.User{}, &client.APIError{Status: 500}
	}
	return f.checkAuth(ctx)
}

func (f *fakeAPI) SignUp(ctx context.Context, req chat.SignupRequest) (chat.User, error) {
	if f.signUp == nil {
		return chat.User{}, &client.APIError{Status: 500}
	}
	return f.signUp(ctx, req)
}

func (f *fakeAPI) LogIn(ctx context.Context, req chat.LoginRequest) (chat.User, error) {
	if f.logIn == nil {
		return chat.User{}, &client.APIError{Status: 500}
	}
	return f.logIn(ctx, req)
}

func (f *fakeAPI) LogOut(ctx context.Context) error {
	if f.logOut == nil {
		return &client.APIError{Status: 500}
	}
	return f.logOut(ctx)
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, upd chat.ProfileUpdate) (chat.User, error) {
	if f.updateProfile == nil {
		return chat.User{}, &client.APIError{Status: 500}
	}
	return f.updateProfile(ctx, upd)
}

func (f *fakeAPI) Contacts(ctx context.Context) ([]chat.User, error) {
	if f.contacts == nil {
		return nil, &client.APIError{Status: 500}
	}
	return f.contacts(ctx)
}

func (f *fakeAPI) History(ctx context.Context, peerID string) ([]chat.Message, error) {
	if f.history == nil {
		return nil, &client.APIError{Status: 500}
	}
	return f.history(ctx, peerID)
}

func (f *fakeAPI) Send(ctx context.Context, peerID string, req chat.SendRequest) (chat.Message, error) {
	if f.send == nil {
		return chat.Message{}, &client.APIError{Status: 500}
	}
	return f.send(ctx, peerID, req)
}

// fakeConn implements client.Conn in-process; tests drive pushes with
// Emit on the test goroutine, mimicking the single delivery goroutine.
type fakeConn struct {
	mu              sync.Mutex
	handlers        map[string][]func(chat.Envelope)
	started         bool
	closed          bool
	handlersAtStart int
}

func newFakeConn() *fakeConn {
	return &fakeConn{handlers: make(map[string][]func(chat.Envelope))}
}

func (c *fakeConn) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	c.handlersAtStart = len(c.handlers)
}

func (c *fakeConn) On(event string, fn func(chat.Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], fn)
}

func (c *fakeConn) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

func (c *fakeConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && !c.closed
}

func (c *fakeConn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) Emit(event string, payload any) error {
	env, err := chat.NewEnvelope(event, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	// Mirrors the real connection: nothing is delivered before Start
	// or after disconnect.
	if !c.started || c.closed {
		c.mu.Unlock()
		return nil
	}
	fns := append([]func(chat.Envelope){}, c.handlers[event]...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(env)
	}
	return nil
}

// dialer hands out fakeConns and counts dials.
type dialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
}

func (d *dialer) dial(userID string) (client.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *dialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *dialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// recorder captures notifications.
type recorder struct {
	mu       sync.Mutex
	errors   []string
	successes []string
}

func (r *recorder) Success(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, message)
}

func (r *recorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

func (r *recorder) lastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errors) == 0 {
		return ""
	}
	return r.errors[len(r.errors)-1]
}

func (r *recorder) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}
