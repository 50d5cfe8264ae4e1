package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the handlers to their routes.
type Router struct {
	handler    *Handler
	middleware *Middleware
	maxBody    int64
}

// NewRouter creates a router. maxBody caps request bodies; 0 leaves them
// unbounded.
func NewRouter(handler *Handler, middleware *Middleware, maxBody int64) *Router {
	if middleware == nil {
		middleware = NewMiddleware(DefaultMiddlewareConfig())
	}
	return &Router{handler: handler, middleware: middleware, maxBody: maxBody}
}

// Setup builds the chi handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.Get("/healthz", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(SecurityHeaders)
		r.Use(PrometheusMetrics)
		r.Use(MaxBodySize(router.maxBody))

		r.Get("/presets", router.handler.Presets)

		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", router.handler.ListDatasets)
			r.Route("/{name}", func(r chi.Router) {
				r.Post("/", router.handler.UploadDataset)
				r.Get("/", router.handler.GetDataset)
				r.Delete("/", router.handler.DeleteDataset)
				r.Post("/taxonomy", router.handler.Taxonomy)
				r.Get("/info", router.handler.Info)
				r.Get("/products", router.handler.Products)
				r.Get("/reports/{report}", router.handler.Report)
				r.Post("/rules", router.handler.Mine)
				r.Get("/snapshots", router.handler.ListSnapshots)
				r.Post("/recommendations", router.handler.Recommend)
			})
		})

		r.Route("/rules/{id}", func(r chi.Router) {
			r.Get("/", router.handler.GetSnapshot)
			r.Delete("/", router.handler.DeleteSnapshot)
			r.Post("/filter/metrics", router.handler.FilterMetrics)
			r.Post("/filter/products", router.handler.FilterProducts)
			r.Post("/filter/length", router.handler.FilterLength)
			r.Post("/filter/presets/{preset}", router.handler.FilterPreset)
			r.Get("/describe", router.handler.Describe)
			r.Get("/relationship", router.handler.Relationship)
			r.Post("/recommendations", router.handler.RecommendFromRules)
			r.Get("/export", router.handler.Export)
		})
	})

	return r
}
