package api

import (
	"net/http"

	"github.com/dom/puckquery/internal/api/handlers"
	"github.com/dom/puckquery/internal/api/middleware"
	"github.com/dom/puckquery/internal/config"
	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/querycache"
	"github.com/dom/puckquery/internal/service"
	"github.com/dom/puckquery/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(services *service.Services, cache *querycache.Cache, hub *websocket.Hub, cfg *config.Config, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	r.Get("/", handlers.Root)
	r.Get("/ping", handlers.Ping)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/api/test", handlers.APITest)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth)
	userHandler := handlers.NewUserHandler(services.Auth)
	gameHandler := handlers.NewGameHandler(services.Game)
	eventHandler := handlers.NewEventHandler(services.Event)
	rosterHandler := handlers.NewRosterHandler(services.Roster)
	chatHandler := handlers.NewChatHandler(services.Chat)
	cacheHandler := handlers.NewCacheHandler(cache, services.Game)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, cfg.CORSAllowedOrigin)

	requireAuth := middleware.Auth(services.Auth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/", gameHandler.List)
			r.Get("/{id}", gameHandler.Get)
			r.Get("/{id}/events", gameHandler.Events)
			r.Get("/{id}/shot-density", gameHandler.ShotDensity)
			r.Get("/{id}/goal-density", gameHandler.GoalDensity)
			r.Get("/{id}/export", gameHandler.Export)
		})

		r.Get("/teams", rosterHandler.Teams)
		r.Get("/players", rosterHandler.Players)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.List)
			r.Get("/types", eventHandler.Types)
			r.Get("/{id}", eventHandler.Get)

			// Corrections to the event log
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, middleware.RequireRole(domain.RoleAnalyst))
				r.Post("/", eventHandler.Create)
				r.Put("/{id}", eventHandler.Update)
				r.Delete("/{id}", eventHandler.Delete)
			})
		})

		r.Post("/chat", chatHandler.Chat)
		r.Get("/chat/history", chatHandler.History)

		// Cache administration
		r.Route("/cache", func(r chi.Router) {
			r.Use(requireAuth, middleware.RequireRole(domain.RoleAdmin))
			r.Get("/", cacheHandler.Stats)
			r.Delete("/", cacheHandler.InvalidateAll)
			r.Delete("/games/{id}", cacheHandler.InvalidateGame)
		})

		// Account administration
		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth, middleware.RequireRole(domain.RoleAdmin))
			r.Get("/", userHandler.List)
			r.Put("/{id}/role", userHandler.SetRole)
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
