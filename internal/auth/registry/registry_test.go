package registry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth"
	"authgate/internal/observability/logging"
	"authgate/internal/observability/metrics"
)

// fakeStrategy returns a canned outcome and records nothing
type fakeStrategy struct {
	name    string
	outcome auth.Outcome
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Authenticate(*http.Request) auth.Outcome { return f.outcome }

func successFor(subject, scheme string) auth.Outcome {
	return auth.Success(&auth.Identity{Subject: subject, Scheme: scheme})
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	logger, err := logging.NewLogger("error")
	require.NoError(t, err)

	schemeA := &fakeStrategy{name: "scheme-a", outcome: successFor("alice", "scheme-a")}
	schemeB := &fakeStrategy{name: "scheme-b", outcome: successFor("bob", "scheme-b")}
	fallback := &fakeStrategy{name: "apikey", outcome: auth.Failure(auth.ErrMissingCredential, "no key")}

	r, err := New([]Registration{
		{Marker: "SessionA", Strategy: schemeA},
		{Marker: "SessionB", Strategy: schemeB},
	}, fallback, logger, metrics.NewCollector())
	require.NoError(t, err)
	return r
}

func TestSelect(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name    string
		cookies []string
		want    string
	}{
		{
			name: "no marker falls back to default",
			want: "apikey",
		},
		{
			name:    "single marker selects its scheme",
			cookies: []string{"SessionB"},
			want:    "scheme-b",
		},
		{
			name:    "unrelated cookie falls back to default",
			cookies: []string{"Preferences"},
			want:    "apikey",
		},
		{
			name:    "two markers honor registration order",
			cookies: []string{"SessionB", "SessionA"},
			want:    "scheme-a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for _, c := range tt.cookies {
				req.AddCookie(&http.Cookie{Name: c, Value: "x"})
			}
			assert.Equal(t, tt.want, r.Select(req).Name())
		})
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	r := newTestRegistry(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "SessionB", Value: "x"})
	req.AddCookie(&http.Cookie{Name: "SessionA", Value: "x"})

	first := r.Select(req)
	for i := 0; i < 100; i++ {
		assert.Same(t, first, r.Select(req))
	}
}

func TestMiddlewareStoresOutcome(t *testing.T) {
	r := newTestRegistry(t)

	var got auth.Outcome
	var verified bool
	var identity *auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got, verified = auth.OutcomeFromContext(req.Context())
		identity = auth.IdentityFromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	})

	// Marker present: identity from the cookie scheme
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "SessionA", Value: "x"})
	rec := httptest.NewRecorder()
	r.Middleware(next).ServeHTTP(rec, req)

	require.True(t, verified)
	require.True(t, got.OK())
	assert.Equal(t, "alice", got.Identity.Subject)
	require.NotNil(t, identity)
	assert.Equal(t, "alice", identity.Subject)

	// No marker: fallback failure is recorded, request still reaches next
	req = httptest.NewRequest("GET", "/", nil)
	rec = httptest.NewRecorder()
	r.Middleware(next).ServeHTTP(rec, req)

	require.True(t, verified)
	assert.False(t, got.OK())
	assert.Equal(t, auth.ErrMissingCredential, got.Kind)
	assert.Equal(t, http.StatusOK, rec.Code, "registry middleware must not short-circuit")
}

func TestNewValidation(t *testing.T) {
	logger, err := logging.NewLogger("error")
	require.NoError(t, err)
	collector := metrics.NewCollector()
	fallback := &fakeStrategy{name: "apikey"}

	_, err = New(nil, nil, logger, collector)
	assert.Error(t, err, "default strategy is required")

	_, err = New([]Registration{
		{Marker: "", Strategy: &fakeStrategy{name: "a"}},
	}, fallback, logger, collector)
	assert.Error(t, err, "empty marker must be rejected")

	_, err = New([]Registration{
		{Marker: "Session", Strategy: &fakeStrategy{name: "a"}},
		{Marker: "Session", Strategy: &fakeStrategy{name: "b"}},
	}, fallback, logger, collector)
	assert.Error(t, err, "duplicate markers must be rejected")
}
