// internal/config/settings.go
package config

import "github.com/spf13/viper"

// SettingType represents the type of a setting
type SettingType string

const (
	// String type for string settings
	String SettingType = "string"
	// Bool type for boolean settings
	Bool SettingType = "bool"
	// StringSlice type for string slice settings
	StringSlice SettingType = "stringSlice"
)

// Setting defines a configuration setting
type Setting struct {
	// Name is the name of the setting
	Name string
	// Short is a short description of the setting
	Short string
	// Type is the type of the setting
	Type SettingType
	// Default is the default value of the setting
	Default interface{}
	// Required indicates whether the setting is required
	Required bool
}

// SettingList is a list of settings
type SettingList []Setting

// PopulateViperDefaults sets default values for all settings in Viper
func (sl SettingList) PopulateViperDefaults(v *viper.Viper) {
	for _, s := range sl {
		v.SetDefault(s.Name, s.Default)
	}
}

// Settings defines all flat application settings. Structured sections
// (session schemes, routing rules) live in the config file only.
var Settings = SettingList{
	// Server settings
	{
		Name:    "SERVER_ADDR",
		Short:   "Address on which the server listens",
		Type:    String,
		Default: ":8000",
	},
	{
		Name:    "METRICS_ADDR",
		Short:   "Address on which the metrics server listens",
		Type:    String,
		Default: ":9090",
	},
	{
		Name:    "SHUTDOWN_TIMEOUT",
		Short:   "Maximum time to wait for graceful shutdown",
		Type:    String,
		Default: "30s",
	},

	// TLS settings
	{
		Name:    "TLS_ENABLED",
		Short:   "Enable TLS for the server",
		Type:    Bool,
		Default: false,
	},
	{
		Name:    "TLS_CERT_PATH",
		Short:   "Path to TLS certificate file",
		Type:    String,
		Default: "",
	},
	{
		Name:    "TLS_KEY_PATH",
		Short:   "Path to TLS key file",
		Type:    String,
		Default: "",
	},

	// Upstream settings
	{
		Name:     "UPSTREAM_URL",
		Short:    "URL of the upstream service",
		Type:     String,
		Default:  "",
		Required: true,
	},
	{
		Name:    "UPSTREAM_TIMEOUT",
		Short:   "Timeout for upstream requests",
		Type:    String,
		Default: "30s",
	},

	// Authentication: API key (default scheme)
	{
		Name:    "AUTH_APIKEY_HEADER",
		Short:   "Header carrying the API key",
		Type:    String,
		Default: "X-API-Key",
	},
	{
		Name:    "AUTH_APIKEY_KEY",
		Short:   "Expected API key for the static credential store",
		Type:    String,
		Default: "",
	},
	{
		Name:    "AUTH_APIKEY_SUBJECT",
		Short:   "Subject granted to callers presenting a valid static key",
		Type:    String,
		Default: "API User",
	},
	{
		Name:    "AUTH_APIKEY_ROLES",
		Short:   "Roles granted with the static key",
		Type:    StringSlice,
		Default: []string{},
	},
	{
		Name:    "AUTH_APIKEY_STORE",
		Short:   "Credential store backing API key lookups (static, postgres)",
		Type:    String,
		Default: "static",
	},
	{
		Name:    "AUTH_APIKEY_POSTGRES_DSN",
		Short:   "Connection string for the postgres credential store",
		Type:    String,
		Default: "",
	},

	// Authorization
	{
		Name:    "AUTHZ_TYPE",
		Short:   "Type of authorizer to use (roles, spicedb)",
		Type:    String,
		Default: "roles",
	},
	{
		Name:    "AUTHZ_SPICEDB_ENDPOINT",
		Short:   "SpiceDB endpoint",
		Type:    String,
		Default: "localhost:50051",
	},
	{
		Name:    "AUTHZ_SPICEDB_INSECURE",
		Short:   "Use insecure connection to SpiceDB",
		Type:    Bool,
		Default: false,
	},
	{
		Name:    "AUTHZ_SPICEDB_TOKEN",
		Short:   "SpiceDB authentication token",
		Type:    String,
		Default: "",
	},
	{
		Name:    "AUTHZ_SPICEDB_RESOURCE_TYPE",
		Short:   "SpiceDB resource type",
		Type:    String,
		Default: "gateway",
	},
	{
		Name:    "AUTHZ_SPICEDB_RESOURCE_ID",
		Short:   "SpiceDB resource ID",
		Type:    String,
		Default: "",
	},
	{
		Name:    "AUTHZ_SPICEDB_SUBJECT_TYPE",
		Short:   "SpiceDB subject type",
		Type:    String,
		Default: "user",
	},

	// Observability
	{
		Name:    "LOG_LEVEL",
		Short:   "Logging level",
		Type:    String,
		Default: "info",
	},
}
