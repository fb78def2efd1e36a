package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/student-map/internal/adapter/xlsx"
	"github.com/couchcryptid/student-map/internal/config"
	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/couchcryptid/student-map/internal/locator"
	"github.com/couchcryptid/student-map/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Locator runs an extracted roster. It doubles as the readiness check.
type Locator interface {
	Locate(ctx context.Context, records []domain.RawRecord, opts locator.Options, onProgress pipeline.ProgressFunc) (locator.Report, error)
	CheckReadiness(ctx context.Context) error
}

// RosterExtractor reads an uploaded workbook.
type RosterExtractor interface {
	Extract(data []byte) (xlsx.Roster, error)
}

// Server exposes the upload API alongside health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer     *http.Server
	locator        Locator
	extractor      RosterExtractor
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// POST /api/locate routes.
func NewServer(cfg *config.Config, loc Locator, extractor RosterExtractor, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: cors.Handler(cors.Options{
				AllowedOrigins: cfg.CORSOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			})(mux),
			ReadTimeout: 30 * time.Second,
			// A paced run over a large roster takes minutes.
			WriteTimeout: 15 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		locator:        loc,
		extractor:      extractor,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(loc))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/locate", s.handleLocate)

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
