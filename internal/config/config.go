// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"authgate/internal/auth/session"
)

// Store kinds for API key lookups
const (
	StoreStatic   = "static"
	StorePostgres = "postgres"
)

// Authorizer kinds
const (
	AuthzRoles   = "roles"
	AuthzSpiceDB = "spicedb"
)

// Load loads the configuration from all sources and returns the merged result
func Load(configPath string) (*Config, error) {
	v := viper.New()

	Settings.PopulateViperDefaults(v)

	v.SetEnvPrefix("AUTHGATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	config := &Config{}

	// Server
	config.Server.Address = v.GetString("SERVER_ADDR")
	shutdownTimeout, err := time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	config.Server.ShutdownTimeout = shutdownTimeout

	// Metrics
	config.Metrics.Address = v.GetString("METRICS_ADDR")

	// TLS
	config.TLS.Enabled = v.GetBool("TLS_ENABLED")
	config.TLS.CertPath = v.GetString("TLS_CERT_PATH")
	config.TLS.KeyPath = v.GetString("TLS_KEY_PATH")

	// Upstream
	upstreamURL, err := url.Parse(v.GetString("UPSTREAM_URL"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	config.Upstream.URL = upstreamURL

	upstreamTimeout, err := time.ParseDuration(v.GetString("UPSTREAM_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream timeout: %w", err)
	}
	config.Upstream.Timeout = upstreamTimeout

	// Authentication: API key scheme
	config.Auth.APIKey.Header = v.GetString("AUTH_APIKEY_HEADER")
	config.Auth.APIKey.Key = v.GetString("AUTH_APIKEY_KEY")
	config.Auth.APIKey.Subject = v.GetString("AUTH_APIKEY_SUBJECT")
	config.Auth.APIKey.Roles = v.GetStringSlice("AUTH_APIKEY_ROLES")
	config.Auth.APIKey.Store = v.GetString("AUTH_APIKEY_STORE")
	config.Auth.APIKey.PostgresDSN = v.GetString("AUTH_APIKEY_POSTGRES_DSN")

	// Authentication: session schemes (config file only; list order is the
	// registry priority order)
	if err := v.UnmarshalKey("sessions", &config.Auth.Sessions); err != nil {
		return nil, fmt.Errorf("invalid sessions configuration: %w", err)
	}

	// Authorization
	config.Authz.Type = v.GetString("AUTHZ_TYPE")
	config.Authz.SpiceDB.Endpoint = v.GetString("AUTHZ_SPICEDB_ENDPOINT")
	config.Authz.SpiceDB.Insecure = v.GetBool("AUTHZ_SPICEDB_INSECURE")
	config.Authz.SpiceDB.Token = v.GetString("AUTHZ_SPICEDB_TOKEN")
	config.Authz.SpiceDB.ResourceType = v.GetString("AUTHZ_SPICEDB_RESOURCE_TYPE")
	config.Authz.SpiceDB.ResourceID = v.GetString("AUTHZ_SPICEDB_RESOURCE_ID")
	config.Authz.SpiceDB.SubjectType = v.GetString("AUTHZ_SPICEDB_SUBJECT_TYPE")

	// Observability
	config.Observability.LogLevel = v.GetString("LOG_LEVEL")

	// Routing rules (config file only)
	if err := v.UnmarshalKey("rules", &config.Rules); err != nil {
		return nil, fmt.Errorf("invalid rules configuration: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig performs validation on the loaded configuration. Any
// misconfiguration is fatal here, before the process serves a request.
func validateConfig(cfg *Config) error {
	if cfg.Upstream.URL == nil || cfg.Upstream.URL.String() == "" {
		return fmt.Errorf("upstream URL is required")
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return fmt.Errorf("TLS certificate path is required when TLS is enabled")
		}
		if cfg.TLS.KeyPath == "" {
			return fmt.Errorf("TLS key path is required when TLS is enabled")
		}
		if _, err := os.Stat(cfg.TLS.CertPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", cfg.TLS.CertPath)
		}
		if _, err := os.Stat(cfg.TLS.KeyPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", cfg.TLS.KeyPath)
		}
	}

	if err := validateAuthConfig(cfg); err != nil {
		return err
	}

	return validateAuthzConfig(cfg)
}

// validateAuthConfig validates authentication configuration
func validateAuthConfig(cfg *Config) error {
	switch cfg.Auth.APIKey.Store {
	case StoreStatic:
		// An unset key would silently accept nothing or, worse, an empty
		// comparison could accept everything. Refuse to start.
		if cfg.Auth.APIKey.Key == "" {
			return fmt.Errorf("API key is required when using the static credential store")
		}
	case StorePostgres:
		if cfg.Auth.APIKey.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN is required when using the postgres credential store")
		}
	default:
		return fmt.Errorf("unknown API key store type: %q", cfg.Auth.APIKey.Store)
	}

	seenNames := make(map[string]bool, len(cfg.Auth.Sessions))
	seenCookies := make(map[string]bool, len(cfg.Auth.Sessions))
	for _, s := range cfg.Auth.Sessions {
		if s.Name == "" {
			return fmt.Errorf("session scheme requires a name")
		}
		if seenNames[s.Name] {
			return fmt.Errorf("session scheme %q configured twice", s.Name)
		}
		seenNames[s.Name] = true

		if s.Issuer == "" {
			return fmt.Errorf("session scheme %q: issuer is required", s.Name)
		}
		if s.ClientID == "" || s.ClientSecret == "" {
			return fmt.Errorf("session scheme %q: client ID and secret are required", s.Name)
		}
		if s.RedirectURL == "" {
			return fmt.Errorf("session scheme %q: redirect URL is required", s.Name)
		}
		if len(s.CookieSecret) < session.MinSecretLen {
			return fmt.Errorf("session scheme %q: cookie secret must be at least %d bytes", s.Name, session.MinSecretLen)
		}

		cookie := s.CookieName
		if cookie == "" {
			cookie = "authgate_" + s.Name
		}
		if seenCookies[cookie] {
			return fmt.Errorf("session cookie %q used by two schemes", cookie)
		}
		seenCookies[cookie] = true
	}

	return nil
}

// validateAuthzConfig validates authorization configuration
func validateAuthzConfig(cfg *Config) error {
	switch cfg.Authz.Type {
	case AuthzRoles:
		return nil
	case AuthzSpiceDB:
		if cfg.Authz.SpiceDB.Token == "" {
			return fmt.Errorf("SpiceDB token is required when using SpiceDB authorization")
		}
		if cfg.Authz.SpiceDB.ResourceID == "" {
			return fmt.Errorf("SpiceDB resource ID is required when using SpiceDB authorization")
		}
		return nil
	default:
		return fmt.Errorf("unknown authorizer type: %q", cfg.Authz.Type)
	}
}
