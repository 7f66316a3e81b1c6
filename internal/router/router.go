package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/recipes/internal/config"
	"github.com/ovaphlow/pitchfork/recipes/internal/metrics"
	"github.com/ovaphlow/pitchfork/recipes/internal/recipe"
	"github.com/ovaphlow/pitchfork/recipes/internal/session"
	"github.com/ovaphlow/pitchfork/recipes/internal/user"
	"github.com/ovaphlow/pitchfork/recipes/internal/web"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"request_id", chimiddleware.GetReqID(r.Context()),
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "same-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// pages are server rendered with no inline scripts
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' https: data:; object-src 'none'; base-uri 'self'; form-action 'self';")
			}

			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the collaborators the routes need.
type Deps struct {
	DB       *sqlx.DB
	Config   config.Config
	Sessions *session.Manager
	Renderer web.Renderer
	// Hasher overrides the default bcrypt hasher when set.
	Hasher user.PasswordHasher
	Logger *zap.SugaredLogger
}

// RegisterRoutes mounts every page on a chi router.
func RegisterRoutes(d Deps) http.Handler {
	users := user.NewHandler(d.DB, d.Hasher, d.Sessions, d.Renderer, d.Logger)
	recipes := recipe.NewHandler(d.DB, d.Config.PerPage, d.Config.PaginationRange, d.Renderer, d.Logger)
	pages := web.Pages{Renderer: d.Renderer, Logger: d.Logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(LoggingMiddleware(d.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(SecurityHeadersMiddleware())
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	withSession := func(h http.Handler) http.Handler {
		return d.Sessions.Load(users.LoadUser(h))
	}
	r.NotFound(withSession(http.HandlerFunc(pages.NotFound)).ServeHTTP)

	loginLimit := httprate.Limit(d.Config.LoginRateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.LoginAttempts.WithLabelValues(metrics.LoginLimited).Inc()
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Group(func(r chi.Router) {
		r.Use(d.Sessions.Load)
		r.Use(users.LoadUser)

		r.Get("/", recipes.Home)
		r.Get("/category/{id}", recipes.Category)
		r.Get("/recipe/{id}", recipes.Detail)
		r.Get("/search", recipes.Search)

		r.Get("/register", users.RegisterView)
		r.Post("/register", users.RegisterCreate)
		r.Get("/login", users.LoginView)
		r.With(loginLimit).Post("/login", users.LoginCreate)

		r.Group(func(r chi.Router) {
			r.Use(users.RequireAuth)

			r.Get("/logout", users.Logout)
			r.Post("/logout", users.Logout)

			r.Get("/dashboard", recipes.Dashboard)
			r.Get("/dashboard/recipe", recipes.Edit)
			r.Post("/dashboard/recipe", recipes.Save)
			r.Post("/dashboard/recipe/delete", recipes.Delete)
			r.Get("/dashboard/recipe/{id}", recipes.Edit)
			r.Post("/dashboard/recipe/{id}", recipes.Save)
		})
	})

	return r
}
