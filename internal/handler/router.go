package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/config"
	"github.com/cvdeck/cv-deck/backend/internal/handler/chat"
	"github.com/cvdeck/cv-deck/backend/internal/handler/contact"
	"github.com/cvdeck/cv-deck/backend/internal/handler/profile"
	"github.com/cvdeck/cv-deck/backend/internal/handler/stream"
	"github.com/cvdeck/cv-deck/backend/internal/handler/ws"
	"github.com/cvdeck/cv-deck/backend/internal/middleware"
	contactService "github.com/cvdeck/cv-deck/backend/internal/service/contact"
	"github.com/cvdeck/cv-deck/backend/internal/service/conversation"
	profileService "github.com/cvdeck/cv-deck/backend/internal/service/profile"
)

// Services is everything the routes need. Completer and Extractor are nil
// when no model is configured.
type Services struct {
	Completer     stream.Completer
	Extractor     contact.Extractor
	Conversations *conversation.Service
	Contacts      *contactService.Service
	Reconciler    *contactService.Reconciler
	Profiles      *profileService.Service
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.ServerConfig, svc Services, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Visitor(cfg.CookieSecure))

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	streamHandler := stream.New(svc.Completer, svc.Conversations, logger)
	contactHandler := contact.New(svc.Contacts, svc.Extractor, logger)
	chatHandler := chat.New(svc.Conversations, svc.Reconciler)
	profileHandler := profile.New(svc.Profiles)
	wsHandler := ws.New(svc.Conversations, svc.Reconciler, cfg.AllowedOrigins, logger)

	r.Route("/api", func(api chi.Router) {
		// Endpoints that reach the model, the database or the mailer.
		api.Group(func(limited chi.Router) {
			limited.Use(limiter.Middleware)
			streamHandler.RegisterRoutes(limited)
			contactHandler.RegisterRoutes(limited)
		})

		chatHandler.RegisterRoutes(api)
		profileHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}
