package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tweide/chirp/internal/config"
	authHandler "github.com/tweide/chirp/internal/handler/auth"
	messagesHandler "github.com/tweide/chirp/internal/handler/messages"
	wsHandler "github.com/tweide/chirp/internal/handler/ws"
	middlewarePkg "github.com/tweide/chirp/internal/middleware"
	"github.com/tweide/chirp/internal/service/presence"
	"github.com/tweide/chirp/internal/store"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(st *store.Store, hub *presence.Hub, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	auth := authHandler.New(st, cfg.Session)
	messages := messagesHandler.New(st, hub, auth)
	push := wsHandler.New(hub, cfg.Server.AllowOrigins)

	r.Route("/api", func(api chi.Router) {
		auth.RegisterRoutes(api)
		messages.RegisterRoutes(api)
	})

	push.RegisterRoutes(r)

	return r
}
