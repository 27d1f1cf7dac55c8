// Package handler exposes the services over a chi REST router.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/debtwiser/internal/auth"
	"github.com/mmynk/debtwiser/internal/metrics"
	"github.com/mmynk/debtwiser/internal/middleware"
	"github.com/mmynk/debtwiser/internal/service"
)

// Pinger is a dependency whose reachability /healthz reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	Debts   *service.DebtService
	Auth    *service.AuthService
	JWT     *auth.JWTManager
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// Store and Cache are checked by /healthz. Either may be nil.
	Store Pinger
	Cache Pinger

	CookieName   string
	CookieSecure bool
	FrontendURL  string
}

type handler struct {
	debts  *service.DebtService
	auth   *service.AuthService
	store  Pinger
	cache  Pinger
	cookie cookieConfig
	logger *slog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	h := &handler{
		debts:  opts.Debts,
		auth:   opts.Auth,
		store:  opts.Store,
		cache:  opts.Cache,
		logger: logger,
		cookie: cookieConfig{
			name:   cookieName,
			secure: opts.CookieSecure,
			maxAge: opts.JWT.Duration(),
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger, opts.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(opts.FrontendURL))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "not_found", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: "method_not_allowed", Message: "method not allowed"})
	})

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	requireAuth := middleware.RequireAuth(opts.JWT, cookieName)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.With(requireAuth).Post("/logout", h.logout)
		r.With(requireAuth).Get("/me", h.me)
	})

	r.Route("/debts", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.listDebts)
		r.Post("/", h.createDebt)
		r.Get("/summary", h.summary)
		r.Get("/export", h.exportDebts)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getDebt)
			r.Patch("/", h.updateDebt)
			r.Delete("/", h.deleteDebt)
			r.Post("/pay", h.payDebt)
		})
	})

	return r
}
