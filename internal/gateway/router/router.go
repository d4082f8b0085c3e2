// internal/gateway/router/router.go

// Package router builds the gateway's route table: per-rule allow/deny/auth
// handlers in front of a reverse proxy to the upstream application, plus the
// interactive login routes for the registered session schemes.
package router

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"authgate/internal/auth"
	authoidc "authgate/internal/auth/oidc"
	"authgate/internal/authz"
	"authgate/internal/httputils"
	"authgate/internal/observability/logging"
	"authgate/internal/observability/metrics"

	"github.com/gorilla/mux"
)

// Rule actions
const (
	ActionAllow = "allow"
	ActionDeny  = "deny"
	ActionAuth  = "auth"
)

// Rule defines a routing rule
type Rule struct {
	// Name is a unique identifier for the rule
	Name string

	// Action determines what happens to matched requests:
	// "allow" proxies anonymously, "deny" always refuses, "auth" requires a
	// verified identity (and optionally a role) before proxying
	Action string

	// Paths is a list of URL paths this rule applies to
	Paths []string

	// MatchPrefix indicates whether to match the path prefix instead of exact match
	MatchPrefix bool

	// Methods is a list of HTTP methods this rule applies to (empty = all methods)
	Methods []string

	// Role is the role required for "auth" rules; empty accepts any
	// authenticated identity
	Role string
}

// Router dispatches requests according to rules and the authentication outcome
type Router struct {
	*mux.Router
	target      *httputil.ReverseProxy
	authorizer  authz.Authorizer
	rules       []Rule
	logger      *logging.Logger
	metrics     *metrics.Collector
	upstreamURL *url.URL
}

// Config holds router configuration
type Config struct {
	// UpstreamURL is the URL of the upstream service
	UpstreamURL *url.URL

	// UpstreamTimeout is the timeout for upstream responses
	UpstreamTimeout time.Duration

	// Rules is the list of routing rules
	Rules []Rule

	// Sessions are the cookie-marked schemes whose login routes get mounted
	Sessions []*authoidc.Strategy
}

// New creates a new router
func New(config Config, authorizer authz.Authorizer, logger *logging.Logger, metricsCollector *metrics.Collector) *Router {
	target := httputil.NewSingleHostReverseProxy(config.UpstreamURL)
	target.Transport = &http.Transport{
		ResponseHeaderTimeout: config.UpstreamTimeout,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	r := &Router{
		Router:      mux.NewRouter(),
		target:      target,
		authorizer:  authorizer,
		rules:       config.Rules,
		logger:      logger.WithModule("gateway.router"),
		metrics:     metricsCollector,
		upstreamURL: config.UpstreamURL,
	}

	r.setupSessionRoutes(config.Sessions)
	r.setupRules()

	return r
}

// setupSessionRoutes mounts the login and callback handlers for each scheme
func (r *Router) setupSessionRoutes(sessions []*authoidc.Strategy) {
	for _, s := range sessions {
		r.logger.Debug("Mounting session routes",
			"scheme", s.Name(),
			"login", s.LoginPath(),
			"callback", s.CallbackPath(),
		)
		r.Path(s.LoginPath()).Methods(http.MethodGet).HandlerFunc(s.HandleLogin)
		r.Path(s.CallbackPath()).Methods(http.MethodGet).HandlerFunc(s.HandleCallback)
	}
}

// setupRules configures routes based on rules
func (r *Router) setupRules() {
	allowHandler := r.createAllowHandler()
	denyHandler := r.createDenyHandler()

	for _, rule := range r.rules {
		r.logger.Debug("Setting up route",
			"name", rule.Name,
			"action", rule.Action,
			"paths", rule.Paths,
			"methods", rule.Methods,
		)

		for _, path := range rule.Paths {
			var route *mux.Route
			if rule.MatchPrefix {
				route = r.PathPrefix(path)
			} else {
				route = r.Path(path)
			}

			if len(rule.Methods) > 0 {
				route = route.Methods(rule.Methods...)
			}

			route = route.Name(rule.Name)

			switch rule.Action {
			case ActionAllow:
				route.Handler(allowHandler)
			case ActionDeny:
				route.Handler(denyHandler)
			case ActionAuth:
				route.Handler(r.createAuthHandler(rule))
			default:
				r.logger.Warn("Unknown action in rule, defaulting to deny",
					"rule", rule.Name, "action", rule.Action)
				route.Handler(denyHandler)
			}
		}
	}

	// Request counting belongs to the observability middleware; recording
	// again here would double-count 404s.
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.logger.Warn("Request received for undefined route", "path", req.URL.Path)
		httputils.WriteError(w, http.StatusNotFound, "not found")
	})
}

// createAllowHandler creates a reusable handler for "allow" rules
func (r *Router) createAllowHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ruleName := mux.CurrentRoute(req).GetName()

		ctx := req.Context()
		logger := logging.LoggerFromContext(ctx)
		if logger == nil {
			logger = r.logger
		}

		logger.Debug("Allow handler called",
			"rule", ruleName,
			"path", req.URL.Path,
			"method", req.Method,
		)
		r.metrics.RecordRuleMatch(ruleName, ActionAllow)

		r.proxy(w, req)
	})
}

// createDenyHandler creates a reusable handler for "deny" rules
func (r *Router) createDenyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ruleName := mux.CurrentRoute(req).GetName()

		ctx := req.Context()
		logger := logging.LoggerFromContext(ctx)
		if logger == nil {
			logger = r.logger
		}

		logger.Debug("Deny handler called",
			"rule", ruleName,
			"path", req.URL.Path,
			"method", req.Method,
		)
		r.metrics.RecordRuleMatch(ruleName, ActionDeny)

		httputils.WriteForbidden(w)
	})
}

// createAuthHandler creates a handler for a specific "auth" rule. This is the
// boundary where the internal failure taxonomy collapses: every verification
// failure becomes the same generic 401, role denial becomes 403, and the
// submitted credential is never echoed back.
func (r *Router) createAuthHandler(rule Rule) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		logger := logging.LoggerFromContext(ctx)
		if logger == nil {
			logger = r.logger
		}

		r.metrics.RecordRuleMatch(rule.Name, ActionAuth)

		outcome, verified := auth.OutcomeFromContext(ctx)
		if !verified || !outcome.OK() {
			logger.Info("Authentication failed",
				"rule", rule.Name,
				"kind", string(outcome.Kind),
				"reason", outcome.Reason,
			)
			r.metrics.RecordAuthorization(rule.Role, false)
			httputils.WriteUnauthorized(w)
			return
		}

		resp := r.authorizer.Authorize(&authz.Request{
			Identity: outcome.Identity,
			Role:     rule.Role,
			Context:  ctx,
		})

		switch resp.Decision {
		case authz.Allow:
			logger.Debug("Authorization successful",
				"subject", outcome.Identity.Subject,
				"role", rule.Role,
				"rule", rule.Name,
			)
			r.metrics.RecordAuthorization(rule.Role, true)
			r.proxy(w, req)

		case authz.Deny:
			logger.Info("Authorization failed: required role not held",
				"subject", outcome.Identity.Subject,
				"role", rule.Role,
				"rule", rule.Name,
			)
			r.metrics.RecordAuthorization(rule.Role, false)
			httputils.WriteForbidden(w)

		case authz.Unauthorized:
			logger.Info("Authorization failed: unauthorized", "rule", rule.Name)
			r.metrics.RecordAuthorization(rule.Role, false)
			httputils.WriteUnauthorized(w)

		case authz.Error:
			logger.Error("Authorization failed: error",
				logging.Err(resp.Error),
				"rule", rule.Name,
			)
			r.metrics.RecordAuthorization(rule.Role, false)
			httputils.WriteError(w, http.StatusServiceUnavailable, "service unavailable")
		}
	})
}

// proxy forwards the request upstream and records upstream metrics
func (r *Router) proxy(w http.ResponseWriter, req *http.Request) {
	startTime := time.Now()
	wrapper := httputils.NewResponseWriter(w)

	r.target.ServeHTTP(wrapper, req)

	r.metrics.RecordUpstreamRequest(
		req.Method,
		r.upstreamURL.String(),
		wrapper.StatusCode,
		time.Since(startTime),
	)
}
