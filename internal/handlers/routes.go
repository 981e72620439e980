package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/huddle/client/internal/metrics"
	"github.com/huddle/client/internal/middleware"
	"github.com/huddle/client/internal/telemetry"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Logger        *slog.Logger
	Users         UserStore
	Friends       FriendStore
	Conversations ConversationStore
	Sessions      SessionManager
	// AuthLimiter throttles login and registration per client address.
	// Nil disables throttling.
	AuthLimiter middleware.RateLimiter
	ResetTTL    time.Duration
}

// NewRouter builds the development backend. The API lives under /api with
// health and metrics endpoints at the root.
func NewRouter(deps Dependencies) http.Handler {
	metrics.Register()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	health := HealthHandler{Started: time.Now()}
	authHandler := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, ResetTTL: deps.ResetTTL}
	users := UserHandler{Users: deps.Users}
	friends := FriendHandler{Friends: deps.Friends}
	conversations := ConversationHandler{Conversations: deps.Conversations}

	authenticate := middleware.Authenticate(deps.Sessions, func(w http.ResponseWriter, r *http.Request, message string) {
		respondError(r.Context(), w, http.StatusUnauthorized, CodeUnauthorized, message)
	})
	throttle := func(scope string) func(http.Handler) http.Handler {
		if deps.AuthLimiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RateLimit(deps.AuthLimiter, scope, func(w http.ResponseWriter, r *http.Request) {
			respondError(r.Context(), w, http.StatusTooManyRequests, CodeRateLimit, "too many requests")
		})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	r.Use(telemetry.Middleware("huddle-dev-server"))

	r.HandleFunc("/healthz", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(throttle("register")).Post("/register", authHandler.Register)
			r.With(throttle("login")).Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Post("/logout", authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", users.Me)
				r.Put("/me", users.UpdateMe)
				r.Get("/search", users.Search)
				r.Get("/username/{username}", users.ByUsername)
				r.Get("/{id}", users.ByID)
			})

			r.Route("/friends", func(r chi.Router) {
				r.Get("/", friends.List)
				r.Post("/requests", friends.SendRequest)
				r.Get("/requests", friends.Incoming)
				r.Get("/requests/sent", friends.Sent)
				r.Post("/requests/respond", friends.Respond)
				r.Delete("/requests/{id}", friends.Cancel)
				r.Get("/check/{id}", friends.Check)
				r.Post("/block", friends.Block)
				r.Delete("/block/{id}", friends.Unblock)
				r.Get("/blocked", friends.Blocked)
				r.Get("/blocked/check/{id}", friends.CheckBlocked)
				r.Delete("/{id}", friends.Remove)
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", conversations.List)
				r.Post("/", conversations.Create)
				r.Get("/{id}", conversations.Get)
				r.Get("/{id}/messages/", conversations.Messages)
				r.Post("/{id}/messages/", conversations.Send)
			})
		})
	})

	return r
}
