package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dom/league-customs/internal/api/handlers"
	"github.com/dom/league-customs/internal/api/middleware"
	"github.com/dom/league-customs/internal/match"
	"github.com/dom/league-customs/internal/registry"
	"github.com/dom/league-customs/internal/repository"
	"github.com/dom/league-customs/internal/service"
	"github.com/dom/league-customs/internal/websocket"
)

func NewRouter(services *service.Services, hub *websocket.Hub, coordinator *match.Coordinator, reg *registry.Registry, repos *repository.Repositories) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handlers.NewAuthHandler(services.Auth)
	queueHandler := handlers.NewQueueHandler(services.Queue, services.Match)
	matchHandler := handlers.NewMatchHandler(services.Match, coordinator)
	lcuHandler := handlers.NewLCUHandler(reg)
	adminHandler := handlers.NewAdminHandler(services.Queue, repos.Settings)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ws", wsHandler.Serve)

		// Token minting needs only the header identity; the token itself
		// does not exist yet.
		if services.Auth.Enabled() {
			r.With(middleware.RequireName).Post("/auth/session", authHandler.Session)
		}

		// Read-only routes stay public.
		r.Get("/queue/status", queueHandler.Status)
		r.Get("/queue/my-active-match", queueHandler.MyActiveMatch)
		r.Get("/match/{matchId}", matchHandler.Get)
		r.Get("/match/{matchId}/votes", matchHandler.Votes)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(services.Auth))

			r.Post("/queue/join", queueHandler.Join)
			r.Post("/queue/leave", queueHandler.Leave)
			r.Post("/lcu/configure", lcuHandler.Configure)
			r.Delete("/match/{matchId}/cancel", matchHandler.Cancel)
			r.Post("/match/{matchId}/vote", matchHandler.Vote)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminKey(services.Auth))

			r.Post("/admin/award-championship", adminHandler.AwardChampionship)
			r.Post("/admin/queue", adminHandler.SetQueueActive)
			r.Get("/admin/privileged-voters", adminHandler.PrivilegedVoters)
		})
	})

	return r
}
