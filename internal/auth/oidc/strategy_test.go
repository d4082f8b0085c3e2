package oidc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth"
	"authgate/internal/auth/session"
	"authgate/internal/observability/logging"
	"authgate/internal/observability/metrics"
)

// newTestStrategy builds a scheme around a known codec, skipping provider
// discovery: Authenticate only touches the cookie and the codec.
func newTestStrategy(t *testing.T) (*Strategy, *session.Codec) {
	t.Helper()

	logger, err := logging.NewLogger("error")
	require.NoError(t, err)

	codec, err := session.NewCodec(strings.Repeat("k", session.MinSecretLen))
	require.NoError(t, err)

	return &Strategy{
		logger:     logger,
		metrics:    metrics.NewCollector(),
		name:       "customer",
		cookieName: "customer_session",
		codec:      codec,
		sessionTTL: DefaultSessionTTL,
	}, codec
}

func TestAuthenticate(t *testing.T) {
	strategy, codec := newTestStrategy(t)

	valid, err := codec.Seal(session.Session{
		Subject: "alice@example.com",
		Email:   "alice@example.com",
		Roles:   []string{"Administrator"},
		Expiry:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	expired, err := codec.Seal(session.Session{
		Subject: "alice@example.com",
		Expiry:  time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	otherCodec, err := session.NewCodec(strings.Repeat("z", session.MinSecretLen))
	require.NoError(t, err)
	foreign, err := otherCodec.Seal(session.Session{
		Subject: "mallory",
		Expiry:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		setCookie bool
		value     string
		wantOK    bool
		wantKind  auth.ErrorKind
	}{
		{
			name:     "missing cookie",
			wantKind: auth.ErrMissingCredential,
		},
		{
			name:      "blank cookie",
			setCookie: true,
			value:     "",
			wantKind:  auth.ErrEmptyCredential,
		},
		{
			name:      "garbage cookie",
			setCookie: true,
			value:     "not-a-sealed-session",
			wantKind:  auth.ErrInvalidCredential,
		},
		{
			name:      "sealed under a different key",
			setCookie: true,
			value:     foreign,
			wantKind:  auth.ErrInvalidCredential,
		},
		{
			name:      "expired session",
			setCookie: true,
			value:     expired,
			wantKind:  auth.ErrInvalidCredential,
		},
		{
			name:      "valid session",
			setCookie: true,
			value:     valid,
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/orders", nil)
			if tt.setCookie {
				req.AddCookie(&http.Cookie{Name: strategy.CookieName(), Value: tt.value})
			}

			outcome := strategy.Authenticate(req)

			if tt.wantOK {
				require.True(t, outcome.OK())
				assert.Equal(t, "alice@example.com", outcome.Identity.Subject)
				assert.Equal(t, "customer", outcome.Identity.Scheme)
				assert.Equal(t, []string{"Administrator"}, outcome.Identity.Roles)
				assert.Equal(t, "alice@example.com", outcome.Identity.Attributes["email"])
			} else {
				require.False(t, outcome.OK())
				assert.Equal(t, tt.wantKind, outcome.Kind)
			}
		})
	}
}

func TestAuthenticateIgnoresOtherCookies(t *testing.T) {
	strategy, codec := newTestStrategy(t)

	valid, err := codec.Seal(session.Session{
		Subject: "alice@example.com",
		Expiry:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	// A valid session under a different cookie name is not this scheme's
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "other_session", Value: valid})

	outcome := strategy.Authenticate(req)
	require.False(t, outcome.OK())
	assert.Equal(t, auth.ErrMissingCredential, outcome.Kind)
}

func TestRolesFromClaims(t *testing.T) {
	strategy, _ := newTestStrategy(t)
	strategy.rolesClaim = "roles"

	assert.Equal(t, []string{"Administrator"},
		strategy.rolesFromClaims(map[string]interface{}{"roles": "Administrator"}))
	assert.Equal(t, []string{"Administrator", "Reader"},
		strategy.rolesFromClaims(map[string]interface{}{"roles": []interface{}{"Administrator", "Reader"}}))
	assert.Nil(t, strategy.rolesFromClaims(map[string]interface{}{"roles": 42}))
	assert.Nil(t, strategy.rolesFromClaims(map[string]interface{}{}))

	strategy.rolesClaim = ""
	assert.Nil(t, strategy.rolesFromClaims(map[string]interface{}{"roles": "Administrator"}))
}
