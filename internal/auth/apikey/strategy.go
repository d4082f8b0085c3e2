// internal/auth/apikey/strategy.go

// Package apikey implements the pre-shared-key verification strategy. The
// credential is delivered in a configurable request header and checked
// against an injected credential store.
package apikey

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"authgate/internal/auth"
	"authgate/internal/auth/store"
	"authgate/internal/observability/logging"
	"authgate/internal/observability/metrics"
)

// DefaultHeader is the header the key is read from when none is configured
const DefaultHeader = "X-API-Key"

// Strategy verifies a pre-shared API key presented in a request header
type Strategy struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	header  string
	store   store.Store
}

// Config holds API-key strategy configuration
type Config struct {
	// Header is the name of the header carrying the key
	Header string

	// Store resolves presented keys to credentials
	Store store.Store
}

// New creates the API-key strategy. A missing store is an operational
// misconfiguration and fails fast, before any request is served.
func New(config Config, logger *logging.Logger, metrics *metrics.Collector) (*Strategy, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("API key authentication requires a credential store")
	}

	header := config.Header
	if header == "" {
		header = DefaultHeader
	}

	return &Strategy{
		logger:  logger.WithModule("auth.apikey"),
		metrics: metrics,
		header:  header,
		store:   config.Store,
	}, nil
}

// Name returns the name of this strategy
func (s *Strategy) Name() string {
	return "apikey"
}

// Authenticate extracts the key from the configured header and verifies it
// against the store. Pure with respect to the request; repeat calls yield the
// same outcome.
func (s *Strategy) Authenticate(r *http.Request) auth.Outcome {
	logger := logging.LoggerFromContext(r.Context())
	if logger == nil {
		logger = s.logger
	}

	values, present := r.Header[http.CanonicalHeaderKey(s.header)]
	if !present {
		logger.Warn("API key header missing", "header", s.header)
		s.metrics.RecordAuthentication(s.Name(), false, string(auth.ErrMissingCredential))
		return auth.Failure(auth.ErrMissingCredential, "no API key header presented")
	}

	var key string
	if len(values) > 0 {
		key = values[0]
	}
	if strings.TrimSpace(key) == "" {
		logger.Warn("API key header empty", "header", s.header)
		s.metrics.RecordAuthentication(s.Name(), false, string(auth.ErrEmptyCredential))
		return auth.Failure(auth.ErrEmptyCredential, "API key header present but blank")
	}

	cred, err := s.store.LookupKey(r.Context(), key)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			// Store errors (e.g. database outage) are still a verification
			// failure for this request; the distinction lives in the logs.
			logger.Error("API key store lookup failed", logging.Err(err))
		} else {
			logger.Warn("API key did not match")
		}
		s.metrics.RecordAuthentication(s.Name(), false, string(auth.ErrInvalidCredential))
		return auth.Failure(auth.ErrInvalidCredential, "API key did not verify")
	}

	logger.Info("API key verified", "subject", cred.Subject)
	s.metrics.RecordAuthentication(s.Name(), true, "")

	return auth.Success(&auth.Identity{
		Subject: cred.Subject,
		Scheme:  s.Name(),
		Roles:   cred.Roles,
	})
}
