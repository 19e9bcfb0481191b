// Package server wires the HTTP API of the CMS.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zenga/cms/internal/server/handlers"
	"github.com/zenga/cms/internal/server/metrics"
	"github.com/zenga/cms/internal/server/middleware"
	"github.com/zenga/cms/internal/server/storage"
)

// RouterDeps holds all dependencies needed by the router
type RouterDeps struct {
	Logger      *slog.Logger
	Resolver    middleware.UserResolver
	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer // nil отключает /metrics
	LoginLimit  *middleware.RateLimiter
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	OAuth       *handlers.OAuthHandler // nil, если OAuth не настроен
	Collections *handlers.CollectionHandler
	Content     *handlers.ContentHandler
}

// NewRouter creates the chi router with all middleware and routes
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	var recorder middleware.HTTPRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.LoggingMiddleware(deps.Logger, recorder))
	r.Use(middleware.RecoveryMiddleware(deps.Logger))
	r.Use(middleware.SecurityHeaders)

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// логин по паролю и OAuth: до резолвера, с ограничением частоты
	r.Group(func(r chi.Router) {
		if deps.LoginLimit != nil {
			r.Use(deps.LoginLimit.Middleware)
		}
		r.Post("/api/auth/login", deps.Auth.Login)

		if deps.OAuth != nil {
			r.Get("/api/oauth/login", deps.OAuth.Login)
			r.Get("/api/oauth/callback", deps.OAuth.Callback)
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", deps.Health.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.Resolver))

			r.Post("/auth/logout", deps.Auth.Logout)
			r.Get("/auth/me", deps.Auth.Me)
			r.With(middleware.RequireUser).Post("/auth/password", deps.Auth.ChangePassword)

			// публичные чтения
			r.Get("/about", deps.Content.About)
			r.Get("/contact-info", deps.Content.ContactInfo)
			r.Get("/settings", deps.Content.Settings)
			r.Get("/settings/{key}", deps.Content.Setting)
			r.Get("/projects/featured", deps.Collections.Featured)
			r.Get("/projects/slug/{slug}", deps.Collections.ProjectBySlug)
			r.Get("/{collection}", deps.Collections.List)

			// публичные формы
			r.Post("/contact-messages", deps.Collections.CreatePublic(storage.ContactMessages, "status"))
			r.Post("/subscribers", deps.Collections.Subscribe)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(deps.Logger))

				r.Get("/users", deps.Auth.ListUsers)
				r.Post("/users", deps.Auth.CreateUser)
				r.Put("/about/{section}", deps.Content.UpsertAbout)
				r.Put("/contact-info", deps.Content.PutContactInfo)
				r.Put("/settings/{key}", deps.Content.PutSetting)

				r.Get("/{collection}", deps.Collections.AdminList)
				r.Post("/{collection}", deps.Collections.AdminCreate)
				r.Get("/{collection}/{id}", deps.Collections.AdminGet)
				r.Patch("/{collection}/{id}", deps.Collections.AdminUpdate)
				r.Delete("/{collection}/{id}", deps.Collections.AdminDelete)
			})
		})
	})

	return r
}

// NewHTTPServer creates the http.Server with the timeouts used in production
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
