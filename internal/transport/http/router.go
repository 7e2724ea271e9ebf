package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/market-realtime/internal/application/attachment"
	"github.com/market-realtime/internal/application/chat"
	"github.com/market-realtime/internal/application/notification"
	"github.com/market-realtime/internal/config"
	"github.com/market-realtime/internal/domain"
	"github.com/market-realtime/internal/realtime"
	"github.com/market-realtime/internal/transport/http/handler"
	appmiddleware "github.com/market-realtime/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds the services and infrastructure the router wires into handlers.
type Deps struct {
	Chat          chat.Service
	Notifications notification.Service
	Attachments   attachment.Service
	Registry      *realtime.Registry
	Verifier      appmiddleware.TokenVerifier
	// Live serves GET /v1/ws. It authenticates from the token query
	// parameter itself, so it sits outside the bearer middleware.
	Live http.Handler
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Verifier)

	// 5 requests/second, burst of 20, applied to endpoints that write.
	writeRL := appmiddleware.NewRateLimiter(rate.Limit(5), 20)

	healthH := handler.NewHealthHandler(deps.Registry)
	msgH := handler.NewMessageHandler(deps.Chat, deps.Attachments, cfg.Attachments.MaxBytes)
	notifH := handler.NewNotificationHandler(deps.Notifications)
	internalH := handler.NewInternalHandler(deps.Notifications)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no bearer) ────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		if deps.Live != nil {
			r.Handle("/ws", deps.Live)
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/messages", msgH.List)
			r.Get("/messages/conversations", msgH.Conversations)
			r.Get("/messages/{user_id}", msgH.History)
			r.Put("/messages/read/{sender_id}", msgH.MarkRead)
			r.With(writeRL.Limit).Post("/messages", msgH.Send)
			r.With(writeRL.Limit).Post("/messages/upload", msgH.Upload)
			r.Get("/attachments/{id}", msgH.Attachment)

			r.Get("/notifications", notifH.List)
			r.Put("/notifications/read-all", notifH.MarkAllAsRead)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)

			// Workflow callbacks from other marketplace services.
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleService, domain.RoleAdmin))

				r.Post("/internal/notifications", internalH.Publish)
				r.Post("/internal/events/order-received", internalH.OrderReceived)
				r.Post("/internal/events/appointment-booked", internalH.AppointmentBooked)
				r.Post("/internal/events/appointment-cancelled", internalH.AppointmentCancelled)
			})
		})
	})

	return r
}
