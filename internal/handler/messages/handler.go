package messages

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tweide/chirp/internal/model/chat"
	"github.com/tweide/chirp/internal/service/presence"
	"github.com/tweide/chirp/internal/store"
	"github.com/tweide/chirp/pkg/utils"
)

// Authenticator resolves the logged-in user for a request.
type Authenticator interface {
	CurrentUserID(r *http.Request) (string, bool)
}

// Handler serves contact listing, history and sending. Sends are pushed
// to the recipient's live connection through the hub after persisting.
type Handler struct {
	store *store.Store
	hub   *presence.Hub
	auth  Authenticator
}

// New creates the messages handler.
func New(st *store.Store, hub *presence.Hub, auth Authenticator) *Handler {
	return &Handler{store: st, hub: hub, auth: auth}
}

// RegisterRoutes mounts the message endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/messages/users", h.handleContacts)
	r.Get("/messages/{peerID}", h.handleHistory)
	r.Post("/messages/send/{peerID}", h.handleSend)
}

func (h *Handler) handleContacts(w http.ResponseWriter, r *http.Request) {
	selfID, ok := h.auth.CurrentUserID(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	users, err := h.store.ListContacts(selfID)
	if err != nil {
		log.Printf("[messages] list contacts: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondJSON(w, http.StatusOK, users)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	selfID, ok := h.auth.CurrentUserID(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	peerID := chi.URLParam(r, "peerID")
	history, err := h.store.ListMessagesBetween(selfID, peerID)
	if err != nil {
		log.Printf("[messages] load history: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondJSON(w, http.StatusOK, history)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	selfID, ok := h.auth.CurrentUserID(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload chat.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Empty() {
		utils.RespondError(w, http.StatusBadRequest, "Message text or image is required")
		return
	}

	peerID := chi.URLParam(r, "peerID")
	msg, err := h.store.CreateMessage(selfID, peerID, payload)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("[messages] send: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Best-effort push; the recipient re-fetches history on selection
	// anyway, so a missed push is not a loss of data.
	h.hub.SendTo(msg.RecipientID, chat.EventNewMessage, msg)

	utils.RespondJSON(w, http.StatusCreated, msg)
}
