// Package httpserver exposes the storefront over HTML pages and a JSON API.
package httpserver

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"storefront/mirror/internal/config"
	"storefront/mirror/internal/metrics"
	"storefront/mirror/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	catalog  *service.CatalogService
	cart     *service.CartService
	sync     *service.Synchronizer
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	serverConfig  config.ServerConfig
	sessionConfig config.SessionConfig
	pages         map[string]*template.Template
}

func New(
	serverConfig config.ServerConfig,
	sessionConfig config.SessionConfig,
	catalog *service.CatalogService,
	cart *service.CartService,
	sync *service.Synchronizer,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Server{
		catalog:       catalog,
		cart:          cart,
		sync:          sync,
		metrics:       m,
		gatherer:      gatherer,
		serverConfig:  serverConfig,
		sessionConfig: sessionConfig,
		pages:         pages,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(s.metrics.Middleware(routePattern))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.sessions)

		r.Get("/", s.handleIndex)
		r.Get("/categories/{categoryID}", s.handleCategory)
		r.Get("/products/{productID}", s.handleProduct)
		r.Get("/search", s.handleSearch)
		r.Get("/sync", s.handleSyncPage)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.handleCartPage)
			r.Post("/add", s.handleCartAdd)
			r.Post("/update", s.handleCartUpdate)
			r.Post("/remove", s.handleCartRemove)
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.serverConfig.CORSOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: true,
			}))

			r.Get("/categories", s.apiCategories)
			r.Get("/categories/{categoryID}", s.apiCategory)
			r.Get("/products/{productID}", s.apiProduct)
			r.Get("/search", s.apiSearch)

			r.Get("/cart", s.apiCart)
			r.Post("/cart/items", s.apiCartAdd)
			r.Put("/cart/items/{productID}", s.apiCartUpdate)
			r.Delete("/cart/items/{productID}", s.apiCartRemove)

			r.Get("/sync", s.apiSyncStatus)
			r.Post("/sync", s.apiSyncTrigger)
		})
	})

	return r
}

// Run serves handler on addr until ctx is cancelled, then shuts down gracefully
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("🌐 HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	}

	log.Info("🛑 Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Ping(r.Context()); err != nil {
		log.Warnf("⚠️ Readiness check failed: %v", err)
		writeError(w, r, http.StatusServiceUnavailable, "catalog store unavailable")
		return
	}

	stored, err := s.catalog.Stored(r.Context())
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "catalog store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "products": stored})
}

// routePattern labels metrics by chi route so ids do not explode cardinality
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
