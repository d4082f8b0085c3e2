// internal/observability/observability.go
package observability

import (
	"net/http"
	"time"

	"authgate/internal/config"
	"authgate/internal/httputils"
	"authgate/internal/observability/logging"
	"authgate/internal/observability/metrics"
)

// Provider provides observability capabilities
type Provider struct {
	Logger  *logging.Logger
	Metrics *metrics.Collector
}

// NewProvider creates a new observability provider
func NewProvider(cfg *config.Config) (*Provider, error) {
	logger, err := logging.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		return nil, err
	}

	return &Provider{
		Logger:  logger,
		Metrics: metrics.NewCollector(),
	}, nil
}

// Middleware creates an HTTP middleware for request observation
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ctx := r.Context()
		traceID := logging.GetTraceIDFromContext(ctx)
		if traceID == "" {
			traceID = logging.NewTraceID()
			ctx = logging.ContextWithTraceID(ctx, traceID)
		}

		spanID := logging.NewSpanID()
		ctx = logging.ContextWithSpanID(ctx, spanID)

		logger := p.Logger.With(logging.TraceIDKey, traceID, logging.SpanIDKey, spanID)
		ctx = logging.ContextWithLogger(ctx, logger)

		wrapper := httputils.NewResponseWriter(w)
		wrapper.Header().Set("X-Trace-ID", traceID)

		logger.Info("Request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(wrapper, r.WithContext(ctx))

		duration := time.Since(startTime)
		p.Metrics.RecordRequest(r.Method, r.URL.Path, wrapper.StatusCode, duration)

		logger.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.StatusCode,
			"duration_ms", duration.Milliseconds(),
			"bytes_written", wrapper.BytesWritten,
		)
	})
}

// MetricsHandler returns an HTTP handler for exposing metrics
func (p *Provider) MetricsHandler() http.Handler {
	return metrics.Handler()
}
