// internal/auth/registry/registry.go

// Package registry routes each request to exactly one verification strategy.
// Cookie-marked schemes are consulted in registration order; the first marker
// cookie present on the request wins, and requests carrying no marker fall
// back to a designated default strategy. The registry is built once at
// startup and is read-only afterwards, so per-request use needs no locking.
package registry

import (
	"fmt"
	"net/http"

	"authgate/internal/auth"
	"authgate/internal/observability/logging"
	"authgate/internal/observability/metrics"
)

// Registration binds a marker cookie name to the strategy it selects
type Registration struct {
	// Marker is the cookie name whose presence selects the strategy. The
	// cookie's content is verified by the strategy, not here.
	Marker string

	// Strategy is the verification strategy the marker selects
	Strategy auth.Strategy
}

// Registry is the ordered scheme dispatch table
type Registry struct {
	logger   *logging.Logger
	metrics  *metrics.Collector
	ordered  []Registration
	fallback auth.Strategy
}

// New creates a registry. Registration order is the priority order: when a
// browser holds marker cookies for two schemes at once, the earlier
// registration wins and the later scheme's cookie goes stale.
func New(registrations []Registration, fallback auth.Strategy, logger *logging.Logger, metrics *metrics.Collector) (*Registry, error) {
	if fallback == nil {
		return nil, fmt.Errorf("scheme registry requires a default strategy")
	}

	seen := make(map[string]bool, len(registrations))
	for _, reg := range registrations {
		if reg.Marker == "" {
			return nil, fmt.Errorf("scheme %q registered without a marker cookie", reg.Strategy.Name())
		}
		if reg.Strategy == nil {
			return nil, fmt.Errorf("marker %q registered without a strategy", reg.Marker)
		}
		if seen[reg.Marker] {
			return nil, fmt.Errorf("marker cookie %q registered twice", reg.Marker)
		}
		seen[reg.Marker] = true
	}

	r := &Registry{
		logger:   logger.WithModule("auth.registry"),
		metrics:  metrics,
		ordered:  registrations,
		fallback: fallback,
	}

	for _, reg := range registrations {
		r.logger.Info("Registered session scheme", "scheme", reg.Strategy.Name(), "marker", reg.Marker)
	}
	r.logger.Info("Registered default scheme", "scheme", fallback.Name())

	return r, nil
}

// Select picks the strategy for a request. Deterministic: a fixed cookie set
// always selects the same strategy.
func (r *Registry) Select(req *http.Request) auth.Strategy {
	for _, reg := range r.ordered {
		if _, err := req.Cookie(reg.Marker); err == nil {
			return reg.Strategy
		}
	}
	return r.fallback
}

// Strategies returns the registered strategies in priority order, default last
func (r *Registry) Strategies() []auth.Strategy {
	out := make([]auth.Strategy, 0, len(r.ordered)+1)
	for _, reg := range r.ordered {
		out = append(out, reg.Strategy)
	}
	return append(out, r.fallback)
}

// Middleware selects a strategy, verifies the request, and stashes the
// outcome in the context. It never short-circuits: the authorization gate
// owns the 401/403 boundary, so routes that allow anonymous access still work.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		logger := logging.LoggerFromContext(ctx)
		if logger == nil {
			logger = r.logger
		}

		strategy := r.Select(req)
		r.metrics.RecordSchemeSelection(strategy.Name())

		outcome := strategy.Authenticate(req)
		if outcome.OK() {
			logger.Debug("Authentication succeeded",
				"scheme", strategy.Name(),
				"subject", outcome.Identity.Subject,
			)
		} else {
			logger.Debug("Authentication failed",
				"scheme", strategy.Name(),
				"kind", string(outcome.Kind),
			)
		}

		ctx = auth.ContextWithOutcome(ctx, outcome)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}
