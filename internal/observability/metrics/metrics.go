package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Common label names for consistent metrics
const (
	LabelScheme  = "scheme"
	LabelKind    = "kind"
	LabelRole    = "role"
	LabelRule    = "rule"
	LabelAction  = "action"
	LabelStatus  = "status"
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelSuccess = "success"
)

var (
	// RequestsTotal counts all HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	// RequestDuration tracks the duration of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authgate_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	// SchemeSelectedTotal counts which scheme the registry routed each request to
	SchemeSelectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_scheme_selected_total",
			Help: "Total number of requests routed to each authentication scheme",
		},
		[]string{LabelScheme},
	)

	// AuthenticationTotal counts verification attempts by scheme and outcome.
	// The kind label is empty on success.
	AuthenticationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_authentication_total",
			Help: "Total number of credential verification attempts",
		},
		[]string{LabelScheme, LabelSuccess, LabelKind},
	)

	// AuthorizationTotal counts gate decisions by required role and outcome
	AuthorizationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_authorization_total",
			Help: "Total number of authorization checks",
		},
		[]string{LabelRole, LabelSuccess},
	)

	// RuleMatchTotal counts rule matches by rule name and action
	RuleMatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_rule_match_total",
			Help: "Total number of rule matches",
		},
		[]string{LabelRule, LabelAction},
	)

	// UpstreamRequestTotal counts requests forwarded to the upstream service
	UpstreamRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_upstream_requests_total",
			Help: "Total number of requests forwarded to the upstream service",
		},
		[]string{LabelMethod, "upstream", LabelStatus},
	)

	// UpstreamRequestDuration tracks the duration of upstream requests
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authgate_upstream_request_duration_seconds",
			Help:    "Duration of requests to the upstream service in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, "upstream"},
	)
)

// Collector provides methods for recording metrics
type Collector struct{}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordRequest records metrics for an HTTP request
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, path, http.StatusText(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSchemeSelection records which scheme the registry chose for a request
func (c *Collector) RecordSchemeSelection(scheme string) {
	SchemeSelectedTotal.WithLabelValues(scheme).Inc()
}

// RecordAuthentication records a credential verification attempt. kind is the
// failure classification and must be empty on success.
func (c *Collector) RecordAuthentication(scheme string, success bool, kind string) {
	AuthenticationTotal.WithLabelValues(scheme, boolToString(success), kind).Inc()
}

// RecordAuthorization records a gate decision
func (c *Collector) RecordAuthorization(role string, success bool) {
	AuthorizationTotal.WithLabelValues(role, boolToString(success)).Inc()
}

// RecordRuleMatch records a rule match
func (c *Collector) RecordRuleMatch(ruleName, action string) {
	RuleMatchTotal.WithLabelValues(ruleName, action).Inc()
}

// RecordUpstreamRequest records a request forwarded to the upstream service
func (c *Collector) RecordUpstreamRequest(method, upstream string, status int, duration time.Duration) {
	UpstreamRequestTotal.WithLabelValues(method, upstream, http.StatusText(status)).Inc()
	UpstreamRequestDuration.WithLabelValues(method, upstream).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for exposing metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// boolToString converts a boolean to a string representation
func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
