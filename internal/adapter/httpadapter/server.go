// Package httpadapter serves the feasibility API together with the health,
// readiness, and metrics endpoints.
package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/grid-feasibility-service/internal/catalog"
	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/observability"
)

// Catalog is the read side of the station catalog.
type Catalog interface {
	sharedobs.ReadinessChecker
	Snapshot() *domain.GridSnapshot
	Zones(ctx context.Context) (*catalog.ZoneResult, error)
}

// Services are the collaborators behind the API routes. Geocoder may be nil,
// in which case /check-address answers 503.
type Services struct {
	Catalog  Catalog
	Engine   *domain.Engine
	Geocoder domain.Geocoder
	Metrics  *observability.Metrics

	// CORSAllowedOrigins defaults to all origins when empty.
	CORSAllowedOrigins []string
}

// Server exposes the feasibility API plus health, readiness, and metrics
// HTTP endpoints.
type Server struct {
	httpServer *http.Server
	api        *api
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API, /healthz, /readyz, and
// /metrics routes.
func NewServer(addr string, svc Services, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	a := newAPI(svc, logger)
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      corsHandler(svc.CORSAllowedOrigins)(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    a,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc.Catalog))
	mux.Handle("GET /metrics", promhttp.Handler())

	a.route(mux, "GET /{$}", a.handleRoot)
	a.route(mux, "GET /stations", a.handleStations)
	a.route(mux, "GET /zones", a.handleZones)
	a.route(mux, "POST /check-feasibility", a.handleCheckFeasibility)
	a.route(mux, "POST /check-address", a.handleCheckAddress)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	})
}
