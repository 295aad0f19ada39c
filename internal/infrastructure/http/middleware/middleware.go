// Package middleware provides chi-compatible HTTP middleware
package middleware

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alchemorsel/studio/internal/infrastructure/config"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// HTTPRecorder receives per request measurements
type HTTPRecorder interface {
	RequestStarted()
	RequestFinished(method, route string, status int, elapsed time.Duration)
}

// Middleware provides all middleware functions
type Middleware struct {
	config   *config.Config
	logger   *zap.Logger
	limiter  *rate.Limiter
	recorder HTTPRecorder
}

// New creates a new middleware instance. A nil recorder disables metrics.
func New(cfg *config.Config, recorder HTTPRecorder, logger *zap.Logger) *Middleware {
	limiter := rate.NewLimiter(
		rate.Limit(float64(cfg.RateLimit.RequestsPerMin)/60),
		cfg.RateLimit.BurstSize,
	)

	return &Middleware{
		config:   cfg,
		logger:   logger.Named("http"),
		limiter:  limiter,
		recorder: recorder,
	}
}

// RequestID adds a unique request ID to the context and response
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID)))
	})
}

// Logger provides structured logging and metrics for requests
func (m *Middleware) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if m.recorder != nil {
			m.recorder.RequestStarted()
		}

		ww := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(ww, r)

		latency := time.Since(start)
		status := ww.Status()
		route := routePattern(r)
		if m.recorder != nil {
			m.recorder.RequestFinished(r.Method, route, status, latency)
		}

		// Skip logging for health checks
		if r.URL.Path == m.config.Monitoring.HealthCheckPath {
			return
		}

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.String("ip", r.RemoteAddr),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("user_agent", r.UserAgent()),
		}

		switch {
		case status >= 500:
			m.logger.Error("Server error", fields...)
		case status >= 400:
			m.logger.Warn("Client error", fields...)
		default:
			m.logger.Info("Request completed", fields...)
		}
	})
}

// Recovery recovers from panics and returns 500 error
func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				m.logger.Error("Panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Any("error", rec),
					zap.String("stack", string(debug.Stack())),
				)
				WriteError(w, r, apperrors.NewInternalError("Internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// CORS handles Cross-Origin Resource Sharing
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.Server.EnableCORS {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if origin != "" && m.isOriginAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")
		}

		// Handle preflight request
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects requests above the configured rate with 429. The
// gateway error body contract is kept: {"error": "..."}.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.RateLimit.Enable {
			next.ServeHTTP(w, r)
			return
		}

		if !m.limiter.Allow() {
			m.logger.Warn("Rate limit exceeded",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", strconv.Itoa(m.retryAfterSeconds()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isOriginAllowed checks if origin is in allowed list
func (m *Middleware) isOriginAllowed(origin string) bool {
	// Allow all origins in development
	if m.config.IsDevelopment() {
		return true
	}

	for _, allowed := range m.config.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (m *Middleware) retryAfterSeconds() int {
	if m.config.RateLimit.RequestsPerMin <= 0 {
		return 60
	}
	return max(1, 60/m.config.RateLimit.RequestsPerMin)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WriteError writes err in the structured error envelope
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.Wrap(err, "An unexpected error occurred")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	_ = json.NewEncoder(w).Encode(apperrors.ToErrorResponse(appErr, GetRequestID(r.Context())))
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

// Status returns the written status, 200 when nothing was written
func (rw *responseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush forwards to the underlying writer when supported
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack supports websocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
