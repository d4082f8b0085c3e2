// internal/config/types.go
package config

import (
	"net/url"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	// Server holds HTTP server configuration
	Server struct {
		// Address is the address to listen on
		Address string
		// ShutdownTimeout is the maximum time to wait for a graceful shutdown
		ShutdownTimeout time.Duration
	}

	// Metrics holds metrics server configuration
	Metrics struct {
		// Address is the address to listen on for the metrics server
		Address string
	}

	// TLS holds TLS configuration
	TLS struct {
		// Enabled indicates whether TLS is enabled
		Enabled bool
		// CertPath is the path to the TLS certificate
		CertPath string
		// KeyPath is the path to the TLS key
		KeyPath string
	}

	// Upstream holds configuration for the upstream service
	Upstream struct {
		// URL is the URL of the upstream service
		URL *url.URL
		// Timeout is the maximum time to wait for upstream responses
		Timeout time.Duration
	}

	// Auth holds authentication configuration
	Auth struct {
		// APIKey holds the default (header) scheme configuration
		APIKey struct {
			// Header is the name of the header carrying the key
			Header string
			// Key is the expected pre-shared key for the static store
			Key string
			// Subject is the identity name granted to valid keys
			Subject string
			// Roles are role claims granted with the static key
			Roles []string
			// Store selects the credential store ("static" or "postgres")
			Store string
			// PostgresDSN is the connection string for the postgres store
			PostgresDSN string
		}

		// Sessions are the cookie-marked schemes, in priority order
		Sessions []SessionScheme
	}

	// Authz holds authorization configuration
	Authz struct {
		// Type is the type of authorizer to use (roles, spicedb)
		Type string

		// SpiceDB holds SpiceDB configuration
		SpiceDB struct {
			// Endpoint is the SpiceDB endpoint
			Endpoint string
			// Insecure indicates whether to use an insecure connection
			Insecure bool
			// Token is the SpiceDB authentication token
			Token string
			// ResourceType is the SpiceDB resource type
			ResourceType string
			// ResourceID is the SpiceDB resource ID
			ResourceID string
			// SubjectType is the SpiceDB subject type
			SubjectType string
		}
	}

	// Observability holds observability configuration
	Observability struct {
		// LogLevel is the minimum log level to emit
		LogLevel string
	}

	// Rules holds route rules configuration
	Rules []Rule
}

// SessionScheme configures one cookie-marked session scheme. List order in
// the config file is the registry priority order.
type SessionScheme struct {
	// Name identifies the scheme
	Name string `mapstructure:"name" yaml:"name"`

	// Issuer is the OIDC issuer URL
	Issuer string `mapstructure:"issuer" yaml:"issuer"`

	// ClientID is the OIDC client ID
	ClientID string `mapstructure:"client_id" yaml:"client_id"`

	// ClientSecret is the OIDC client secret
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`

	// RedirectURL is the redirect URL registered with the provider
	RedirectURL string `mapstructure:"redirect_url" yaml:"redirect_url"`

	// Scopes is a list of OIDC scopes to request
	Scopes []string `mapstructure:"scopes" yaml:"scopes"`

	// CookieName is the marker/session cookie name
	CookieName string `mapstructure:"cookie_name" yaml:"cookie_name"`

	// CookieSecret is the secret key for cookie encryption (min 32 bytes)
	CookieSecret string `mapstructure:"cookie_secret" yaml:"cookie_secret"`

	// SessionTTL bounds how long a minted session stays valid
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`

	// RolesClaim is the ID-token claim holding role strings
	RolesClaim string `mapstructure:"roles_claim" yaml:"roles_claim"`
}

// Rule defines a routing rule for the gateway
type Rule struct {
	// Name is a unique identifier for the rule
	Name string `mapstructure:"name" yaml:"name"`

	// Action determines what action to take for matched requests.
	// Can be "allow", "deny", or "auth"
	Action string `mapstructure:"action" yaml:"action"`

	// Paths is a list of URL paths this rule applies to
	Paths []string `mapstructure:"paths" yaml:"paths"`

	// MatchPrefix indicates whether to match the path prefix instead of exact match
	MatchPrefix bool `mapstructure:"match_prefix" yaml:"match_prefix"`

	// Methods is a list of HTTP methods this rule applies to (empty = all methods)
	Methods []string `mapstructure:"methods" yaml:"methods"`

	// Role is the role required for "auth" rules; empty accepts any
	// authenticated identity
	Role string `mapstructure:"role" yaml:"role"`
}
