package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Genoux/website/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	apiPrefix   string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	metrics     http.Handler
	notFound    http.HandlerFunc

	pages    RouteRegistrar
	calendar RouteRegistrar
	api      RouteRegistrar
	webhooks RouteRegistrar

	webhookMiddlewares []func(http.Handler) http.Handler
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	defaultTimeout    = 30 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the site's
// route groups. Groups without a registrar are left unmounted.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		apiPrefix: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	jsonNotFound := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	}
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if cfg.notFound != nil && !machineRoute(req.URL.Path, cfg.apiPrefix) {
			cfg.notFound(w, req)
			return
		}
		jsonNotFound(w, req)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}

	if cfg.api != nil {
		r.Route(cfg.apiPrefix, func(api chi.Router) {
			cfg.api(api)
		})
	}
	if cfg.webhooks != nil {
		r.Route("/webhooks", func(group chi.Router) {
			for _, mw := range cfg.webhookMiddlewares {
				if mw != nil {
					group.Use(mw)
				}
			}
			cfg.webhooks(group)
		})
	}
	if cfg.calendar != nil {
		cfg.calendar(r)
	}
	if cfg.pages != nil {
		cfg.pages(r)
	}

	return r
}

func machineRoute(path, apiPrefix string) bool {
	return strings.HasPrefix(path, apiPrefix+"/") || path == apiPrefix || strings.HasPrefix(path, "/webhooks/")
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithMetricsHandler exposes the Prometheus registry on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.metrics = h
	}
}

// WithNotFoundPage renders unmatched page routes as HTML. API and webhook
// paths keep the JSON error envelope.
func WithNotFoundPage(h http.HandlerFunc) Option {
	return func(cfg *routerConfig) {
		cfg.notFound = h
	}
}

// WithPageRoutes configures the registrar responsible for server-rendered pages.
func WithPageRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.pages = reg
	}
}

// WithCalendarRoutes configures the registrar responsible for calendar downloads.
func WithCalendarRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.calendar = reg
	}
}

// WithAPIRoutes configures the registrar responsible for the JSON API.
func WithAPIRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.api = reg
	}
}

// WithWebhookRoutes configures the registrar responsible for webhook endpoints.
func WithWebhookRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.webhooks = reg
	}
}

// WithWebhookMiddlewares configures middlewares applied to the /webhooks group.
func WithWebhookMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.webhookMiddlewares = append(cfg.webhookMiddlewares, mw...)
	}
}
