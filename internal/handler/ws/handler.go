package ws

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tweide/chirp/internal/service/presence"
)

// Handler upgrades push connections and hands them to the hub. The
// connection is parameterized by the userId query parameter; clients
// open it once per login.
type Handler struct {
	hub      *presence.Hub
	upgrader websocket.Upgrader
}

// New creates the websocket handler. allowOrigins of nil accepts any
// origin, matching a development setup.
func New(hub *presence.Hub, allowOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}
}

// RegisterRoutes mounts the push endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleConnect)
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	h.hub.Register(userID, conn)
}
