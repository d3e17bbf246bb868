package client_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tweide/chirp/internal/client"
	"github.com/tweide/chirp/internal/model/chat"
)

func newSession(api *fakeAPI) (*client.AuthSession, *dialer, *recorder) {
	d := &dialer{}
	notify := &recorder{}
	m := client.NewConnManager(d.dial, client.NewPresenceTracker())
	return client.NewAuthSession(api, m, notify), d, notify
}

func TestLogInSuccessOpensConnection(t *testing.T) {
	alice := chat.User{ID: "u-alice", Email: "user@x.com", FullName: "Alice"}

	session, d, _ := newSession(nil)
	api := &fakeAPI{
		logIn: func(_ context.Context, req chat.LoginRequest) (chat.User, error) {
			if req.Email != "user@x.com" {
				t.Fatalf("unexpected email %q", req.Email)
			}
			if !session.LoggingIn() {
				t.Fatal("expected LoggingIn true while the request is in flight")
			}
			return alice, nil
		},
	}
	session, d, _ = newSessionWith(api, d)

	session.LogIn(context.Background(), chat.LoginRequest{Email: "user@x.com", Password: "pw"})

	user, ok := session.User()
	if !ok || user.ID != "u-alice" {
		t.Fatalf("expected authenticated as u-alice, got %+v ok=%v", user, ok)
	}
	if session.LoggingIn() {
		t.Fatal("expected LoggingIn false after the call resolved")
	}
	if d.count() != 1 {
		t.Fatalf("expected one connection dial, got %d", d.count())
	}
}

func TestLogInFailureStaysAnonymous(t *testing.T) {
	api := &fakeAPI{
		logIn: func(context.Context, chat.LoginRequest) (chat.User, error) {
			return chat.User{}, &client.APIError{Status: 400, Message: "Invalid credentials"}
		},
	}
	session, d, notify := newSession(api)

	session.LogIn(context.Background(), chat.LoginRequest{Email: "user@x.com", Password: "nope"})

	if _, ok := session.User(); ok {
		t.Fatal("expected anonymous session")
	}
	if d.count() != 0 {
		t.Fatal("expected no connection dial on failed login")
	}
	if notify.lastError() != "Invalid credentials" {
		t.Fatalf("expected server message surfaced, got %q", notify.lastError())
	}
}

func TestLogInFailureGenericMessage(t *testing.T) {
	api := &fakeAPI{
		logIn: func(context.Context, chat.LoginRequest) (chat.User, error) {
			return chat.User{}, errors.New("dial tcp: connection refused")
		},
	}
	session, _, notify := newSession(api)

	session.LogIn(context.Background(), chat.LoginRequest{Email: "user@x.com", Password: "pw"})

	if notify.lastError() != "Something went wrong" {
		t.Fatalf("expected generic fallback, got %q", notify.lastError())
	}
}

func TestSignUpSuccess(t *testing.T) {
	api := &fakeAPI{
		signUp: func(_ context.Context, req chat.SignupRequest) (chat.User, error) {
			return chat.User{ID: "u-new", Email: req.Email, FullName: req.FullName}, nil
		},
	}
	session, d, _ := newSession(api)

	session.SignUp(context.Background(), chat.SignupRequest{FullName: "New", Email: "n@x.com", Password: "secret"})

	if _, ok := session.User(); !ok {
		t.Fatal("expected authenticated session after signup")
	}
	if d.count() != 1 {
		t.Fatalf("expected one dial, got %d", d.count())
	}
	if session.SigningUp() {
		t.Fatal("expected SigningUp false after the call resolved")
	}
}

func TestCheckSessionSuccess(t *testing.T) {
	api := &fakeAPI{
		checkAuth: func(context.Context) (chat.User, error) {
			return chat.User{ID: "u-alice"}, nil
		},
	}
	session, d, _ := newSession(api)

	session.CheckSession(context.Background())

	if _, ok := session.User(); !ok {
		t.Fatal("expected authenticated session")
	}
	if !session.CheckedAuth() {
		t.Fatal("expected checked flag set")
	}
	if session.CheckingAuth() {
		t.Fatal("expected checking flag cleared")
	}
	if d.count() != 1 {
		t.Fatalf("expected one dial, got %d", d.count())
	}
}

func TestCheckSessionFailureIsSilent(t *testing.T) {
	api := &fakeAPI{
		checkAuth: func(context.Context) (chat.User, error) {
			return chat.User{}, &client.APIError{Status: 401, Message: "Unauthorized"}
		},
	}
	session, d, notify := newSession(api)

	session.CheckSession(context.Background())

	if _, ok := session.User(); ok {
		t.Fatal("expected anonymous session")
	}
	if !session.CheckedAuth() {
		t.Fatal("expected checked flag set even on failure")
	}
	if notify.errorCount() != 0 {
		t.Fatal("check failure is an expected outcome, not a notification")
	}
	if d.count() != 0 {
		t.Fatal("expected no dial for an anonymous session")
	}
}

func TestLogOutTearsDownUnconditionally(t *testing.T) {
	logInAPI := func(logOutErr error) *fakeAPI {
		return &fakeAPI{
			logIn: func(context.Context, chat.LoginRequest) (chat.User, error) {
				return chat.User{ID: "u-alice"}, nil
			},
			logOut: func(context.Context) error { return logOutErr },
		}
	}

	for _, tc := range []struct {
		name      string
		logOutErr error
	}{
		{"server accepts", nil},
		{"server fails", &client.APIError{Status: 500, Message: "boom"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			session, d, _ := newSession(logInAPI(tc.logOutErr))
			ctx := context.Background()

			session.LogIn(ctx, chat.LoginRequest{Email: "user@x.com", Password: "pw"})
			if !d.last().Connected() {
				t.Fatal("expected live connection after login")
			}

			session.LogOut(ctx)

			if _, ok := session.User(); ok {
				t.Fatal("expected anonymous session after logout")
			}
			if d.last().Connected() {
				t.Fatal("expected connection torn down after logout")
			}
		})
	}
}

func TestUpdateProfileReplacesUserOnlyOnSuccess(t *testing.T) {
	updateErr := errors.New("nope")
	api := &fakeAPI{
		logIn: func(context.Context, chat.LoginRequest) (chat.User, error) {
			return chat.User{ID: "u-alice", ProfilePic: "old.png"}, nil
		},
		updateProfile: func(_ context.Context, upd chat.ProfileUpdate) (chat.User, error) {
			if updateErr != nil {
				return chat.User{}, updateErr
			}
			return chat.User{ID: "u-alice", ProfilePic: upd.ProfilePic}, nil
		},
	}
	session, _, _ := newSession(api)
	ctx := context.Background()
	session.LogIn(ctx, chat.LoginRequest{Email: "a@x.com", Password: "pw"})

	session.UpdateProfile(ctx, chat.ProfileUpdate{ProfilePic: "new.png"})
	if user, _ := session.User(); user.ProfilePic != "old.png" {
		t.Fatalf("expected stored user untouched on failure, got %q", user.ProfilePic)
	}

	updateErr = nil
	session.UpdateProfile(ctx, chat.ProfileUpdate{ProfilePic: "new.png"})
	if user, _ := session.User(); user.ProfilePic != "new.png" {
		t.Fatalf("expected avatar propagated to self, got %q", user.ProfilePic)
	}
}

// newSessionWith rebinds a session onto an existing dialer so tests can
// reference the session from inside API fakes.
func newSessionWith(api *fakeAPI, d *dialer) (*client.AuthSession, *dialer, *recorder) {
	notify := &recorder{}
	m := client.NewConnManager(d.dial, client.NewPresenceTracker())
	return client.NewAuthSession(api, m, notify), d, notify
}
