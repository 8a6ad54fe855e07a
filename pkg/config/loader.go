package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, WEBGRANT_CONFIG env, ./config.yaml, /etc/webgrant/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. WEBGRANT_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/webgrant/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("WEBGRANT_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/webgrant/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps WEBGRANT_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WEBGRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WEBGRANT_ISSUER"); v != "" {
		cfg.Engine.Issuer = v
	}
	if v := os.Getenv("WEBGRANT_SIGNING_KEY"); v != "" {
		cfg.Engine.SigningKey = v
	}
	if v := os.Getenv("WEBGRANT_MAILBOX_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.MailboxSize = size
		}
	}
	if v := os.Getenv("WEBGRANT_SUBMIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dispatch.SubmitTimeout = d
		}
	}
	if v := os.Getenv("WEBGRANT_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Metrics.Enabled = enabled
		}
	}

	// WEBGRANT_CLIENTS: JSON array of client configs.
	if v := os.Getenv("WEBGRANT_CLIENTS"); v != "" {
		clients, err := parseClientsJSON(v)
		if err == nil && len(clients) > 0 {
			cfg.Engine.Clients = clients
		}
	}
}

// parseClientsJSON parses a JSON array of client configurations.
func parseClientsJSON(jsonStr string) ([]ClientConfig, error) {
	var clients []ClientConfig
	if err := json.Unmarshal([]byte(jsonStr), &clients); err != nil {
		return nil, fmt.Errorf("parsing clients JSON: %w", err)
	}
	return clients, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// engine.signing_key_file -> engine.signing_key
	if cfg.Engine.SigningKeyFile != "" && cfg.Engine.SigningKey == "" {
		val, err := readSecretFile(cfg.Engine.SigningKeyFile)
		if err != nil {
			return fmt.Errorf("engine.signing_key_file: %w", err)
		}
		cfg.Engine.SigningKey = val
	}

	// engine.clients[*].secret_file -> engine.clients[*].secret
	for i := range cfg.Engine.Clients {
		if cfg.Engine.Clients[i].SecretFile != "" && cfg.Engine.Clients[i].Secret == "" {
			val, err := readSecretFile(cfg.Engine.Clients[i].SecretFile)
			if err != nil {
				return fmt.Errorf("engine.clients[%d].secret_file: %w", i, err)
			}
			cfg.Engine.Clients[i].Secret = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
