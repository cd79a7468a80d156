package api

import (
	"net/http"
	"time"

	"embedchat-backend/internal/config"
	"embedchat-backend/internal/handlers"
	"embedchat-backend/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds everything the router needs: handlers, the
// store (for API key auth) and configuration.
type RouterDependencies struct {
	AuthHandler    *handlers.AuthHandler
	ClientHandler  *handlers.ClientHandler
	SessionHandler *handlers.SessionHandler
	ChatHandler    *handlers.ChatHandler
	FileHandler    *handlers.FileHandler
	WidgetHandler  *handlers.WidgetHandler
	Store          store.Store
	Config         *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// --- CORS Configuration ---
	// The widget runs on arbitrary customer sites, so the chat surface
	// allows any origin; the per-client domain whitelist does the real
	// gatekeeping after authentication.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// --- Dashboard Routes (JWT Required) ---
	r.Route("/v1/clients", func(r chi.Router) {
		if deps.ClientHandler == nil {
			panic("ClientHandler dependency is nil in router setup")
		}
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		r.Post("/", deps.ClientHandler.HandleCreateClient)
		r.Get("/", deps.ClientHandler.HandleListClients)
		r.Get("/{clientID}", deps.ClientHandler.HandleGetClient)
		r.Patch("/{clientID}", deps.ClientHandler.HandleUpdateClient)
		r.Post("/{clientID}/regenerate-key", deps.ClientHandler.HandleRegenerateAPIKey)
		r.Delete("/{clientID}", deps.ClientHandler.HandleDeleteClient)
	})

	// --- Widget Routes (API Key Required) ---
	r.Route("/v1/chat", func(r chi.Router) {
		if deps.SessionHandler == nil || deps.ChatHandler == nil {
			panic("SessionHandler or ChatHandler dependency is nil in router setup")
		}
		r.Use(APIKeyAuthMiddleware(deps.Store))
		r.Use(DomainWhitelistMiddleware())

		if deps.WidgetHandler != nil {
			r.Get("/widget-config", deps.WidgetHandler.HandleGetConfig)
		}

		r.Post("/message", deps.ChatHandler.HandleSendMessage)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", deps.SessionHandler.HandleCreateSession)
			r.Get("/", deps.SessionHandler.HandleListSessions)
			r.Get("/{sessionID}", deps.SessionHandler.HandleGetSession)
			r.Get("/{sessionID}/messages", deps.SessionHandler.HandleListMessages)
			r.Delete("/{sessionID}", deps.SessionHandler.HandleDeleteSession)

			if deps.FileHandler != nil {
				r.Post("/{sessionID}/files", deps.FileHandler.HandleUpload)
				r.Get("/{sessionID}/files", deps.FileHandler.HandleGetActive)
				r.Delete("/{sessionID}/files", deps.FileHandler.HandleRemove)
			}
		})
	})

	return r
}
