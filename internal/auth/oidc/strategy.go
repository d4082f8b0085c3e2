// internal/auth/oidc/strategy.go

// Package oidc implements the cookie-marked session schemes. Each scheme
// owns a named cookie holding a sealed session minted after a federated
// OIDC login. Verification of the login itself is delegated to the external
// identity provider; Authenticate only opens and validates the session.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"authgate/internal/auth"
	"authgate/internal/auth/session"
	"authgate/internal/observability/logging"
	"authgate/internal/observability/metrics"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// DefaultSessionTTL bounds a session when the provider reports no expiry
const DefaultSessionTTL = 30 * time.Minute

// Strategy verifies a sealed session cookie for one registered scheme
type Strategy struct {
	logger     *logging.Logger
	metrics    *metrics.Collector
	name       string
	cookieName string
	codec      *session.Codec
	verifier   *oidc.IDTokenVerifier
	config     oauth2.Config
	sessionTTL time.Duration
	rolesClaim string
}

// Config holds configuration for one cookie-marked scheme
type Config struct {
	// Name identifies the scheme (e.g. "employees", "partners")
	Name string

	// Issuer is the OIDC issuer URL
	Issuer string

	// ClientID is the OIDC client ID
	ClientID string

	// ClientSecret is the OIDC client secret
	ClientSecret string

	// RedirectURL is the redirect URL registered with the provider
	RedirectURL string

	// Scopes is a list of OIDC scopes to request
	Scopes []string

	// CookieName is the name of the session cookie; its presence is the
	// scheme marker the registry routes on
	CookieName string

	// CookieSecret is the secret key for session cookie encryption
	CookieSecret string

	// SessionTTL bounds how long a minted session stays valid
	SessionTTL time.Duration

	// RolesClaim is the ID-token claim holding role strings, if any
	RolesClaim string
}

// New creates a cookie-marked OIDC scheme. Misconfiguration fails here,
// before the process serves any request.
func New(config Config, logger *logging.Logger, metrics *metrics.Collector) (*Strategy, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("session scheme requires a name")
	}

	logger = logger.WithModule("auth.oidc." + config.Name)

	if config.Issuer == "" {
		return nil, fmt.Errorf("session scheme %q enabled but no issuer provided", config.Name)
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("session scheme %q enabled but clientID or clientSecret not provided", config.Name)
	}
	if config.RedirectURL == "" {
		return nil, fmt.Errorf("session scheme %q enabled but no redirect URL provided", config.Name)
	}

	cookieName := config.CookieName
	if cookieName == "" {
		cookieName = "authgate_" + config.Name
	}

	codec, err := session.NewCodec(config.CookieSecret)
	if err != nil {
		return nil, fmt.Errorf("session scheme %q: %w", config.Name, err)
	}

	sessionTTL := config.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	ctx := context.Background()

	logger.Debug("Initializing OIDC provider", "issuer", config.Issuer)
	provider, err := oidc.NewProvider(ctx, config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OIDC provider for %q: %w", config.Name, err)
	}

	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	return &Strategy{
		logger:     logger,
		metrics:    metrics,
		name:       config.Name,
		cookieName: cookieName,
		codec:      codec,
		verifier:   provider.Verifier(&oidc.Config{ClientID: config.ClientID}),
		config: oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  config.RedirectURL,
			Scopes:       scopes,
		},
		sessionTTL: sessionTTL,
		rolesClaim: config.RolesClaim,
	}, nil
}

// Name returns the name of this scheme
func (s *Strategy) Name() string {
	return s.name
}

// CookieName returns the marker cookie the registry routes on
func (s *Strategy) CookieName() string {
	return s.cookieName
}

// Authenticate opens the sealed session cookie and produces an outcome. It
// never writes to the response; an invalid or expired session is terminal
// for the request and the caller re-enters the login flow explicitly.
func (s *Strategy) Authenticate(r *http.Request) auth.Outcome {
	logger := logging.LoggerFromContext(r.Context())
	if logger == nil {
		logger = s.logger
	}

	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		logger.Warn("Session cookie missing", "scheme", s.name)
		s.metrics.RecordAuthentication(s.name, false, string(auth.ErrMissingCredential))
		return auth.Failure(auth.ErrMissingCredential, "no session cookie presented")
	}

	if strings.TrimSpace(cookie.Value) == "" {
		logger.Warn("Session cookie empty", "scheme", s.name)
		s.metrics.RecordAuthentication(s.name, false, string(auth.ErrEmptyCredential))
		return auth.Failure(auth.ErrEmptyCredential, "session cookie present but blank")
	}

	sess, err := s.codec.Open(cookie.Value)
	if err != nil {
		logger.Warn("Session cookie did not verify", "scheme", s.name, logging.Err(err))
		s.metrics.RecordAuthentication(s.name, false, string(auth.ErrInvalidCredential))
		return auth.Failure(auth.ErrInvalidCredential, "session cookie did not verify")
	}

	logger.Info("Session verified", "scheme", s.name, "subject", sess.Subject)
	s.metrics.RecordAuthentication(s.name, true, "")

	identity := &auth.Identity{
		Subject: sess.Subject,
		Scheme:  s.name,
		Roles:   sess.Roles,
	}
	if sess.Email != "" {
		identity.Attributes = map[string]interface{}{"email": sess.Email}
	}
	return auth.Success(identity)
}

// LoginPath is the path that starts the interactive login flow for this scheme
func (s *Strategy) LoginPath() string {
	return "/auth/" + s.name + "/login"
}

// CallbackPath is the provider redirect target, taken from the redirect URL
func (s *Strategy) CallbackPath() string {
	parsed, err := url.Parse(s.config.RedirectURL)
	if err != nil || parsed.Path == "" {
		return "/auth/" + s.name + "/callback"
	}
	return parsed.Path
}

// HandleLogin starts the authorization-code flow with PKCE
func (s *Strategy) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomString(16)
	if err != nil {
		s.logger.Error("Failed to generate state parameter", logging.Err(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	codeVerifier := oauth2.GenerateVerifier()

	origin := r.URL.Query().Get("return_to")
	if origin == "" || !strings.HasPrefix(origin, "/") {
		origin = "/"
	}

	s.setTempCookie(w, r, s.tempCookie("state"), state)
	s.setTempCookie(w, r, s.tempCookie("code_verifier"), codeVerifier)
	s.setTempCookie(w, r, s.tempCookie("origin_url"), origin)

	authURL := s.config.AuthCodeURL(
		state,
		oauth2.S256ChallengeOption(codeVerifier),
	)

	s.logger.Info("Redirecting to OIDC provider for authentication", "scheme", s.name)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback completes the flow: exchanges the code, verifies the ID
// token, and mints the sealed session cookie
func (s *Strategy) HandleCallback(w http.ResponseWriter, r *http.Request) {
	logger := logging.LoggerFromContext(r.Context())
	if logger == nil {
		logger = s.logger
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		logger.Error("No state parameter in callback")
		http.Error(w, "Invalid callback", http.StatusBadRequest)
		return
	}

	stateCookie, err := r.Cookie(s.tempCookie("state"))
	if err != nil || stateCookie.Value != state {
		logger.Error("State mismatch or cookie missing", "cookie_exists", err == nil)
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	codeVerifierCookie, err := r.Cookie(s.tempCookie("code_verifier"))
	if err != nil {
		logger.Error("No code verifier cookie", logging.Err(err))
		http.Error(w, "Code verifier not found", http.StatusBadRequest)
		return
	}

	origin := "/"
	if originCookie, err := r.Cookie(s.tempCookie("origin_url")); err == nil {
		origin = originCookie.Value
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		logger.Error("No code parameter in callback")
		http.Error(w, "No code received", http.StatusBadRequest)
		return
	}

	oauth2Token, err := s.config.Exchange(r.Context(), code, oauth2.VerifierOption(codeVerifierCookie.Value))
	if err != nil {
		logger.Error("Failed to exchange token", logging.Err(err))
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		logger.Error("No ID token in OAuth2 token")
		http.Error(w, "No ID token in OAuth2 token", http.StatusInternalServerError)
		return
	}

	idToken, err := s.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		logger.Error("Failed to verify ID token", logging.Err(err))
		http.Error(w, "Failed to verify ID token", http.StatusInternalServerError)
		return
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		logger.Error("Failed to parse claims from ID token", logging.Err(err))
		http.Error(w, "Failed to parse claims", http.StatusInternalServerError)
		return
	}

	subject := stringClaim(claims, "sub")
	if subject == "" {
		logger.Error("ID token has no subject")
		http.Error(w, "Invalid ID token", http.StatusInternalServerError)
		return
	}

	expiry := time.Now().Add(s.sessionTTL)
	if !idToken.Expiry.IsZero() && idToken.Expiry.Before(expiry) {
		expiry = idToken.Expiry
	}

	sess := session.Session{
		Subject: subject,
		Email:   stringClaim(claims, "email"),
		Roles:   s.rolesFromClaims(claims),
		Expiry:  expiry,
	}

	sealed, err := s.codec.Seal(sess)
	if err != nil {
		logger.Error("Failed to seal session", logging.Err(err))
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(expiry).Seconds()),
	})

	s.clearTempCookies(w)

	logger.Info("Session cookie saved", "scheme", s.name, "subject", subject)
	s.metrics.RecordAuthentication(s.name, true, "")

	http.Redirect(w, r, origin, http.StatusSeeOther)
}

// ClearSession expires the session cookie
func (s *Strategy) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
	s.logger.Debug("Session cookie cleared", "scheme", s.name)
}

func (s *Strategy) tempCookie(suffix string) string {
	return "oidc_" + s.name + "_" + suffix
}

func (s *Strategy) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(10 * time.Minute.Seconds()),
	})
}

func (s *Strategy) clearTempCookies(w http.ResponseWriter) {
	for _, suffix := range []string{"state", "code_verifier", "origin_url"} {
		http.SetCookie(w, &http.Cookie{
			Name:     s.tempCookie(suffix),
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			MaxAge:   -1,
		})
	}
}

// rolesFromClaims pulls role strings out of the configured claim. The claim
// may be a single string or an array of strings depending on the provider.
func (s *Strategy) rolesFromClaims(claims map[string]interface{}) []string {
	if s.rolesClaim == "" {
		return nil
	}
	switch v := claims[s.rolesClaim].(type) {
	case string:
		return []string{v}
	case []interface{}:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				roles = append(roles, str)
			}
		}
		return roles
	default:
		return nil
	}
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// randomString generates a URL-safe random string of the specified length
func randomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}
