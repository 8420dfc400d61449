// Package httpapi exposes the kitty engine as a JSON API.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"kittycore/internal/core"
)

// CallerHeader carries the address on whose behalf a request acts.
const CallerHeader = "X-Kitty-Caller"

// Options configures the router built by NewRouter.
type Options struct {
	Service *core.Service
	Logger  *zap.Logger

	// Metrics is mounted at MetricsPath when non-nil.
	Metrics     http.Handler
	MetricsPath string
}

// NewRouter wires every route onto a chi router.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &handlers{svc: opts.Service, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, opts.Metrics)
	}

	RegisterKittyRoutes(r, api)
	RegisterAuctionRoutes(r, api)
	RegisterAdminRoutes(r, api)
	return r
}

type handlers struct {
	svc    *core.Service
	logger *zap.Logger
}
