// Package server wires the router and runs the HTTP listener
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/alchemorsel/studio/internal/infrastructure/config"
	"github.com/alchemorsel/studio/internal/infrastructure/gateway"
	"github.com/alchemorsel/studio/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/studio/internal/infrastructure/http/middleware"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// StudioPrefix is where the studio API is mounted
const StudioPrefix = "/api/v1/studio"

var compressibleTypes = []string{
	"application/json",
	"text/plain",
	"text/html",
	"text/css",
	"application/javascript",
}

// Handlers groups everything the router serves. Nil members are not
// mounted.
type Handlers struct {
	Gateway *handlers.GatewayHandlers
	Studio  *handlers.StudioHandlers
	Events  http.Handler
	Media   http.Handler
	Health  http.Handler
	Metrics http.Handler
}

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *zap.Logger
	router *chi.Mux
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, mw *middleware.Middleware, h Handlers, logger *zap.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: logger.Named("server"),
	}
	s.router = s.setupRouter(mw, h)

	var handler http.Handler = s.router
	handler = otelhttp.NewHandler(handler, "studio",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != cfg.Monitoring.HealthCheckPath
		}),
	)
	if cfg.Server.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	s.server = &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	return s
}

// setupRouter configures the chi router with all middleware and routes
func (s *Server) setupRouter(mw *middleware.Middleware, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(middleware.Security)
	if s.config.Server.EnableCORS {
		r.Use(mw.CORS)
	}
	if s.config.Server.EnableCompression {
		compressor := chimiddleware.NewCompressor(5, compressibleTypes...)
		compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
			return brotli.NewWriterLevel(w, level)
		})
		r.Use(compressor.Handler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, apperrors.NewNotFoundError("route"))
	})

	if h.Health != nil {
		r.Method(http.MethodGet, s.config.Monitoring.HealthCheckPath, h.Health)
	}
	if h.Metrics != nil && s.config.Monitoring.EnableMetrics {
		r.Method(http.MethodGet, s.config.Monitoring.MetricsPath, h.Metrics)
	}
	if h.Media != nil {
		public := "/" + strings.Trim(s.config.Media.PublicPath, "/")
		r.Method(http.MethodGet, public+"/*", h.Media)
	}

	if h.Gateway != nil && s.config.Gateway.Expose {
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit)
			r.Use(middleware.MaxBodyBytes(s.config.Server.MaxBodyBytes))
			r.Use(middleware.NoCache)
			h.Gateway.Routes(func(pattern string, handler http.HandlerFunc) {
				r.HandleFunc(pattern, handler)
			})
		})
		s.logger.Info("Gateway contract exposed", zap.String("example", gateway.PathGenerateRecipe))
	}

	if h.Studio != nil {
		r.Route(StudioPrefix, func(r chi.Router) {
			r.Use(middleware.NoCache)
			if h.Events != nil {
				r.Handle("/events", h.Events)
			}
			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodyBytes(s.config.Server.MaxBodyBytes))
				r.Use(middleware.JSONOnly)
				if s.config.Server.RequestTimeout > 0 {
					r.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))
				}
				h.Studio.Routes(r)
			})
		})
	}

	return r
}

// Handler exposes the fully wrapped handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves in the background. Bind errors are
// returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("Starting HTTP server",
		zap.String("address", ln.Addr().String()),
		zap.String("environment", s.config.App.Environment),
		zap.Bool("h2c", s.config.Server.EnableH2C),
	)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
