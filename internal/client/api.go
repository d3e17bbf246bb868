package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/tweide/chirp/internal/model/chat"
)

// genericErrorMessage is surfaced when a failure carries no
// server-provided message.
const genericErrorMessage = "Something went wrong"

// API is the request surface the session layer depends on. Implemented
// by HTTPClient against a real server and by fakes in tests.
type API interface {
	CheckAuth(ctx context.Context) (chat.User, error)
	SignUp(ctx context.Context, req chat.SignupRequest) (chat.User, error)
	LogIn(ctx context.Context, req chat.LoginRequest) (chat.User, error)
	LogOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, upd chat.ProfileUpdate) (chat.User, error)
	Contacts(ctx context.Context) ([]chat.User, error)
	History(ctx context.Context, peerID string) ([]chat.Message, error)
	Send(ctx context.Context, peerID string, req chat.SendRequest) (chat.Message, error)
}

// APIError is a request that completed but was rejected by the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request (status %d)", e.Status)
	}
	return e.Message
}

// ErrorMessage extracts the user-facing text for a failed request: the
// server's message when present, a generic fallback otherwise.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericErrorMessage
}

// HTTPClient talks JSON to the chirp API under a fixed base URL. The
// session cookie set on login/signup rides along in the cookie jar.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient creates an API client for baseURL (e.g.
// "http://localhost:5001/api").
func NewHTTPClient(baseURL string) (*HTTPClient, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Jar: jar},
	}, nil
}

func (c *HTTPClient) CheckAuth(ctx context.Context) (chat.User, error) {
	var user chat.User
	err := c.do(ctx, http.MethodGet, "/auth/check", nil, &user)
	return user, err
}

func (c *HTTPClient) SignUp(ctx context.Context, req chat.SignupRequest) (chat.User, error) {
	var user chat.User
	err := c.do(ctx, http.MethodPost, "/auth/signup", req, &user)
	return user, err
}

func (c *HTTPClient) LogIn(ctx context.Context, req chat.LoginRequest) (chat.User, error) {
	var user chat.User
	err := c.do(ctx, http.MethodPost, "/auth/login", req, &user)
	return user, err
}

func (c *HTTPClient) LogOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil)
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, upd chat.ProfileUpdate) (chat.User, error) {
	var user chat.User
	err := c.do(ctx, http.MethodPut, "/auth/update-profile", upd, &user)
	return user, err
}

func (c *HTTPClient) Contacts(ctx context.Context) ([]chat.User, error) {
	var users []chat.User
	err := c.do(ctx, http.MethodGet, "/messages/users", nil, &users)
	return users, err
}

func (c *HTTPClient) History(ctx context.Context, peerID string) ([]chat.Message, error) {
	var messages []chat.Message
	err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(peerID), nil, &messages)
	return messages, err
}

func (c *HTTPClient) Send(ctx context.Context, peerID string, req chat.SendRequest) (chat.Message, error) {
	var msg chat.Message
	err := c.do(ctx, http.MethodPost, "/messages/send/"+url.PathEscape(peerID), req, &msg)
	return msg, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
