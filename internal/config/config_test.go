package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
upstream_url: http://localhost:9000
auth_apikey_key: secret123
auth_apikey_roles:
  - Reader
sessions:
  - name: customer
    issuer: https://login.example.com
    client_id: storefront
    client_secret: hunter2-hunter2
    redirect_url: http://localhost:8000/auth/customer/callback
    cookie_secret: 0123456789abcdef0123456789abcdef
    session_ttl: 45m
    roles_claim: roles
rules:
  - name: products
    action: auth
    paths:
      - /api/products
    match_prefix: true
  - name: admin
    action: auth
    paths:
      - /api/admin
    match_prefix: true
    role: Administrator
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Upstream.URL.String())
	assert.Equal(t, "secret123", cfg.Auth.APIKey.Key)
	assert.Equal(t, []string{"Reader"}, cfg.Auth.APIKey.Roles)

	// Defaults fill in everything the file omits
	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "X-API-Key", cfg.Auth.APIKey.Header)
	assert.Equal(t, StoreStatic, cfg.Auth.APIKey.Store)
	assert.Equal(t, AuthzRoles, cfg.Authz.Type)

	require.Len(t, cfg.Auth.Sessions, 1)
	s := cfg.Auth.Sessions[0]
	assert.Equal(t, "customer", s.Name)
	assert.Equal(t, "https://login.example.com", s.Issuer)
	assert.Equal(t, 45*time.Minute, s.SessionTTL)

	require.Len(t, cfg.Rules, 2)
	assert.Equal(t, "products", cfg.Rules[0].Name)
	assert.True(t, cfg.Rules[0].MatchPrefix)
	assert.Equal(t, "Administrator", cfg.Rules[1].Role)
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Setenv("AUTHGATE_UPSTREAM_URL", "http://localhost:9000")
	t.Setenv("AUTHGATE_AUTH_APIKEY_KEY", "secret123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.Upstream.URL.String())
	assert.Equal(t, "secret123", cfg.Auth.APIKey.Key)
	assert.Empty(t, cfg.Auth.Sessions)
	assert.Empty(t, cfg.Rules)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing upstream URL",
			yaml:    "auth_apikey_key: secret123\n",
			wantErr: "upstream URL is required",
		},
		{
			name:    "empty static key",
			yaml:    "upstream_url: http://localhost:9000\n",
			wantErr: "API key is required",
		},
		{
			name: "unknown store type",
			yaml: `
upstream_url: http://localhost:9000
auth_apikey_store: vault
`,
			wantErr: "unknown API key store type",
		},
		{
			name: "postgres store without DSN",
			yaml: `
upstream_url: http://localhost:9000
auth_apikey_store: postgres
`,
			wantErr: "postgres DSN is required",
		},
		{
			name: "unknown authorizer type",
			yaml: `
upstream_url: http://localhost:9000
auth_apikey_key: secret123
authz_type: opa
`,
			wantErr: "unknown authorizer type",
		},
		{
			name: "spicedb without token",
			yaml: `
upstream_url: http://localhost:9000
auth_apikey_key: secret123
authz_type: spicedb
`,
			wantErr: "SpiceDB token is required",
		},
		{
			name: "session without name",
			yaml: `
upstream_url: http://localhost:9000
auth_apikey_key: secret123
sessions:
  - issuer: https://login.example.com
`,
			wantErr: "session scheme requires a name",
		},
		{
			name: "session with short cookie secret",
			yaml: `
upstream_url: http://localhost:9000
auth_apikey_key: secret123
sessions:
  - name: customer
    issuer: https://login.example.com
    client_id: storefront
    client_secret: hunter2-hunter2
    redirect_url: http://localhost:8000/auth/customer/callback
    cookie_secret: short
`,
			wantErr: "cookie secret must be at least",
		},
		{
			name: "duplicate session names",
			yaml: `
upstream_url: http://localhost:9000
auth_apikey_key: secret123
sessions:
  - name: customer
    issuer: https://login.example.com
    client_id: storefront
    client_secret: hunter2-hunter2
    redirect_url: http://localhost:8000/auth/customer/callback
    cookie_secret: 0123456789abcdef0123456789abcdef
  - name: customer
    issuer: https://login.example.com
    client_id: storefront
    client_secret: hunter2-hunter2
    redirect_url: http://localhost:8000/auth/customer/cb2
    cookie_secret: abcdef0123456789abcdef0123456789
`,
			wantErr: "configured twice",
		},
		{
			name: "two schemes sharing a cookie",
			yaml: `
upstream_url: http://localhost:9000
auth_apikey_key: secret123
sessions:
  - name: customer
    issuer: https://login.example.com
    client_id: storefront
    client_secret: hunter2-hunter2
    redirect_url: http://localhost:8000/auth/customer/callback
    cookie_name: session
    cookie_secret: 0123456789abcdef0123456789abcdef
  - name: backoffice
    issuer: https://login.example.com
    client_id: admin
    client_secret: hunter2-hunter2
    redirect_url: http://localhost:8000/auth/backoffice/callback
    cookie_name: session
    cookie_secret: abcdef0123456789abcdef0123456789
`,
			wantErr: "used by two schemes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
