package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/tweide/chirp/internal/config"
	"github.com/tweide/chirp/internal/model/chat"
	"github.com/tweide/chirp/internal/store"
	"github.com/tweide/chirp/pkg/utils"
)

const (
	sessionName = "chirp_session"
	sessionKey  = "userId"
)

// Handler serves account signup, login and session management backed by
// a cookie session store.
type Handler struct {
	store    *store.Store
	sessions sessions.Store
}

// New creates the auth handler with a cookie store derived from cfg.
func New(st *store.Store, cfg config.SessionConfig) *Handler {
	cookies := sessions.NewCookieStore([]byte(cfg.Secret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Handler{store: st, sessions: cookies}
}

// RegisterRoutes mounts the auth endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.handleSignup)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/check", h.handleCheck)
	r.Put("/auth/update-profile", h.handleUpdateProfile)
}

// CurrentUserID resolves the authenticated user id from the request's
// session cookie.
func (h *Handler) CurrentUserID(r *http.Request) (string, bool) {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return "", false
	}
	id, ok := session.Values[sessionKey].(string)
	return id, ok && id != ""
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var payload chat.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.FullName == "" || payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if len(payload.Password) < 6 {
		utils.RespondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	user, err := h.store.CreateUser(payload.FullName, payload.Email, payload.Password)
	if errors.Is(err, store.ErrEmailTaken) {
		utils.RespondError(w, http.StatusBadRequest, "Email already exists")
		return
	}
	if err != nil {
		log.Printf("[auth] signup failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.saveSession(w, r, user.ID); err != nil {
		log.Printf("[auth] save session: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload chat.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.Authenticate(payload.Email, payload.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		utils.RespondError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err != nil {
		log.Printf("[auth] login failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.saveSession(w, r, user.ID); err != nil {
		log.Printf("[auth] save session: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Get returns a fresh session even when the cookie fails to decode;
	// expire it either way.
	session, _ := h.sessions.Get(r, sessionName)
	if session != nil {
		session.Options.MaxAge = -1
		delete(session.Values, sessionKey)
		if err := session.Save(r, w); err != nil {
			log.Printf("[auth] clear session: %v", err)
		}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := h.CurrentUserID(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.store.GetUser(id)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.CurrentUserID(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload chat.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ProfilePic == "" {
		utils.RespondError(w, http.StatusBadRequest, "Profile pic is required")
		return
	}

	user, err := h.store.UpdateProfilePic(id, payload.ProfilePic)
	if err != nil {
		log.Printf("[auth] update profile: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) saveSession(w http.ResponseWriter, r *http.Request, userID string) error {
	session, err := h.sessions.New(r, sessionName)
	if err != nil {
		// A stale or differently-keyed cookie still yields a fresh session.
		if session == nil {
			return err
		}
	}
	session.Values[sessionKey] = userID
	return session.Save(r, w)
}
