package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog"

	"github.com/itchan-dev/echobox/frontend/internal/handler"
	fmw "github.com/itchan-dev/echobox/frontend/internal/middleware"
	"github.com/itchan-dev/echobox/frontend/internal/setup"
	"github.com/itchan-dev/echobox/frontend/templates"
	mw "github.com/itchan-dev/echobox/shared/middleware"
	"github.com/itchan-dev/echobox/shared/middleware/metrics"
)

func SetupRouter(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()
	h := deps.Handler

	r.Use(chimw.Recoverer)
	r.Use(mw.RequestID)
	r.Use(httplog.RequestLogger(deps.AccessLog))
	r.Use(metrics.Middleware)
	r.Use(mw.SecurityHeadersWithCSP(deps.Public.SecureCookies, mw.DefaultCSP))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(templates.Static()))))

	// JSON feed for scripts: bearer token, plain 401 instead of redirects
	r.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization"},
			MaxAge:         300,
		}))
		api.Use(deps.Auth.AdminOnly())
		api.Get("/messages", h.MessagesAPIHandler)
	})

	r.Group(func(web chi.Router) {
		web.Use(fmw.GenerateCSRFToken(fmw.CSRFConfig{SecureCookies: deps.Public.SecureCookies}))
		web.Use(fmw.ValidateCSRFToken(handler.MaxSubmitSize()))

		// Public pages; the session is read only to adapt the navigation
		web.Group(func(public chi.Router) {
			public.Use(deps.FrontendAuth.OptionalAuth())
			public.Get("/", h.IndexGetHandler)
			public.Get("/submit", h.SubmitGetHandler)
			public.With(mw.RateLimit(deps.SubmitLimiter, mw.GetIP)).Post("/submit", h.SubmitPostHandler)
			public.Get("/admin-login", h.LoginGetHandler)
			public.With(mw.RateLimit(deps.LoginLimiter, mw.GetIP)).Post("/admin-login", h.LoginPostHandler)
		})

		web.Group(func(admin chi.Router) {
			admin.Use(deps.FrontendAuth.AdminOnly())
			admin.Post("/admin/logout", h.LogoutHandler)
			admin.Get("/admin-messages", h.MessagesGetHandler)
			admin.Post("/admin-messages/refresh", h.RefreshPostHandler)
			admin.Get("/admin-messages/{id}", h.MessageGetHandler)
			admin.Post("/admin-messages/{id}/read", h.ReadPostHandler)
			admin.Post("/admin-messages/{id}/hide", h.HidePostHandler)
			admin.Get("/admin-messages/{id}/media", h.MediaGetHandler)
			admin.Get("/admin-messages/{id}/thumb", h.ThumbnailGetHandler)
		})
	})

	return r
}
