// Package config provides unified configuration for the webgrant server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (WEBGRANT_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the webgrant server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Dispatch      DispatchConfig      `yaml:"dispatch"`
	Engine        EngineConfig        `yaml:"engine"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 30s
}

// DispatchConfig holds operation worker settings.
type DispatchConfig struct {
	MailboxSize   int           `yaml:"mailbox_size"`   // default: 64
	SubmitTimeout time.Duration `yaml:"submit_timeout"` // default: 10s
}

// EngineConfig holds the built-in authorization server settings.
type EngineConfig struct {
	Issuer          string         `yaml:"issuer"`           // default: "webgrant"
	SigningKey      string         `yaml:"signing_key"`      // required (or signing_key_file)
	SigningKeyFile  string         `yaml:"signing_key_file"` // _file variant for signing_key
	AccessTokenTTL  time.Duration  `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration  `yaml:"refresh_token_ttl"`
	CodeTTL         time.Duration  `yaml:"code_ttl"`
	Clients         []ClientConfig `yaml:"clients"`
}

// ClientConfig describes a single registered client. The json tags
// serve the WEBGRANT_CLIENTS env override.
type ClientConfig struct {
	ID          string   `yaml:"id" json:"id"`
	Secret      string   `yaml:"secret" json:"secret"`
	SecretFile  string   `yaml:"secret_file" json:"secret_file"` // _file variant for secret
	RedirectURI string   `yaml:"redirect_uri" json:"redirect_uri"`
	Scopes      []string `yaml:"scopes" json:"scopes"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Dispatch: DispatchConfig{
			MailboxSize:   64,
			SubmitTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			Issuer:          "webgrant",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
			CodeTTL:         10 * time.Minute,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
