// internal/server/factory.go
package server

import (
	"context"
	"fmt"

	"authgate/internal/auth/apikey"
	authoidc "authgate/internal/auth/oidc"
	"authgate/internal/auth/registry"
	"authgate/internal/auth/store"
	"authgate/internal/auth/store/postgres"
	"authgate/internal/authz"
	"authgate/internal/authz/roles"
	"authgate/internal/authz/spicedb"
	"authgate/internal/config"
	"authgate/internal/gateway/router"
	"authgate/internal/observability"
	"authgate/internal/observability/logging"
)

// NewFromConfig creates a fully wired server from configuration. Every
// misconfiguration surfaces here as an error, before any request is served.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	obs, err := observability.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	// Credential store for the API key scheme
	credentialStore, err := newCredentialStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	// Default scheme: pre-shared API key in a header
	apikeyStrategy, err := apikey.New(apikey.Config{
		Header: cfg.Auth.APIKey.Header,
		Store:  credentialStore,
	}, logger, obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API key strategy: %w", err)
	}

	// Cookie-marked session schemes, registered in config order. That order
	// is the fixed conflict-resolution priority when a browser holds marker
	// cookies for more than one scheme.
	var registrations []registry.Registration
	var sessions []*authoidc.Strategy
	for _, sc := range cfg.Auth.Sessions {
		strategy, err := authoidc.New(authoidc.Config{
			Name:         sc.Name,
			Issuer:       sc.Issuer,
			ClientID:     sc.ClientID,
			ClientSecret: sc.ClientSecret,
			RedirectURL:  sc.RedirectURL,
			Scopes:       sc.Scopes,
			CookieName:   sc.CookieName,
			CookieSecret: sc.CookieSecret,
			SessionTTL:   sc.SessionTTL,
			RolesClaim:   sc.RolesClaim,
		}, logger, obs.Metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session scheme %q: %w", sc.Name, err)
		}
		registrations = append(registrations, registry.Registration{
			Marker:   strategy.CookieName(),
			Strategy: strategy,
		})
		sessions = append(sessions, strategy)
	}

	schemeRegistry, err := registry.New(registrations, apikeyStrategy, logger, obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scheme registry: %w", err)
	}

	authorizer, err := newAuthorizer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authorizer: %w", err)
	}

	logger.Info("Proxying to upstream", "upstream", logging.RedactURL(cfg.Upstream.URL))
	gatewayRouter := router.New(router.Config{
		UpstreamURL:     cfg.Upstream.URL,
		UpstreamTimeout: cfg.Upstream.Timeout,
		Rules:           convertRules(cfg.Rules),
		Sessions:        sessions,
	}, authorizer, logger, obs.Metrics)

	serverConfig := Config{
		Address:         cfg.Server.Address,
		MetricsAddress:  cfg.Metrics.Address,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	serverConfig.TLS.Enabled = cfg.TLS.Enabled
	serverConfig.TLS.CertPath = cfg.TLS.CertPath
	serverConfig.TLS.KeyPath = cfg.TLS.KeyPath

	// Complete middleware chain: observability -> scheme registry -> router
	handler := obs.Middleware(schemeRegistry.Middleware(gatewayRouter))

	return New(serverConfig, handler, obs.MetricsHandler(), logger), nil
}

// newCredentialStore builds the store backing API key lookups
func newCredentialStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (store.Store, error) {
	switch cfg.Auth.APIKey.Store {
	case config.StoreStatic:
		logger.Info("Using static credential store", "subject", cfg.Auth.APIKey.Subject)
		return store.NewStaticStore(cfg.Auth.APIKey.Key, cfg.Auth.APIKey.Subject, cfg.Auth.APIKey.Roles)
	case config.StorePostgres:
		logger.Info("Using postgres credential store", "dsn", logging.RedactStringURL(cfg.Auth.APIKey.PostgresDSN))
		return postgres.New(ctx, postgres.Config{DSN: cfg.Auth.APIKey.PostgresDSN})
	default:
		return nil, fmt.Errorf("unknown credential store type: %q", cfg.Auth.APIKey.Store)
	}
}

// newAuthorizer builds the authorization gate backend
func newAuthorizer(cfg *config.Config, logger *logging.Logger) (authz.Authorizer, error) {
	switch cfg.Authz.Type {
	case config.AuthzRoles:
		return roles.New(logger), nil
	case config.AuthzSpiceDB:
		return spicedb.New(spicedb.Config{
			Endpoint:     cfg.Authz.SpiceDB.Endpoint,
			Insecure:     cfg.Authz.SpiceDB.Insecure,
			Token:        cfg.Authz.SpiceDB.Token,
			ResourceType: cfg.Authz.SpiceDB.ResourceType,
			ResourceID:   cfg.Authz.SpiceDB.ResourceID,
			SubjectType:  cfg.Authz.SpiceDB.SubjectType,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown authorizer type: %q", cfg.Authz.Type)
	}
}

// convertRules converts config.Rule to router.Rule
func convertRules(configRules []config.Rule) []router.Rule {
	routerRules := make([]router.Rule, len(configRules))
	for i, rule := range configRules {
		routerRules[i] = router.Rule{
			Name:        rule.Name,
			Action:      rule.Action,
			Paths:       rule.Paths,
			MatchPrefix: rule.MatchPrefix,
			Methods:     rule.Methods,
			Role:        rule.Role,
		}
	}
	return routerRules
}
