// Package router assembles the HTTP surface of the service.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/sessions"
	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/handlers"
	"github.com/petermazzocco/project-journal/internal/metrics"
	"github.com/petermazzocco/project-journal/internal/respond"
	"github.com/petermazzocco/project-journal/internal/store"
)

type Deps struct {
	Handler  *handlers.Handler
	Store    store.Store
	Sessions sessions.Store
	Metrics  *metrics.Metrics
	Log      *slog.Logger
	// Requests per minute per client and endpoint on /api. Zero disables it.
	RateLimit int
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := d.Handler
	r.Route("/auth", func(r chi.Router) {
		r.Post("/email", h.EmailLogin)
		r.Get("/email/callback", h.EmailCallback)
		r.Post("/logout", h.Logout)
		r.Get("/{provider}", h.BeginAuth)
		r.Get("/{provider}/callback", h.AuthCallback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Gate(d.Store, d.Sessions))
		if d.RateLimit > 0 {
			r.Use(httprate.Limit(
				d.RateLimit,
				1*time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
			))
		}
		r.HandleFunc("/me", h.Me)
		r.HandleFunc("/users", h.Users)
		r.HandleFunc("/admins", h.Admins)
		r.HandleFunc("/clients", h.Clients)
		r.HandleFunc("/client", h.Client)
		r.HandleFunc("/projects", h.Projects)
		r.HandleFunc("/project", h.Project)
		r.HandleFunc("/project/image", h.UploadImage)
		r.HandleFunc("/updates", h.Updates)
		r.HandleFunc("/update", h.Update)
		r.HandleFunc("/summary", h.Summary)
		r.HandleFunc("/generate-upload-blob-token", h.UploadToken)
	})

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
