package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Dispatch.MailboxSize <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.mailbox_size must be > 0, got %d", c.Dispatch.MailboxSize))
	}
	if c.Dispatch.SubmitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.submit_timeout must be > 0, got %v", c.Dispatch.SubmitTimeout))
	}

	// engine.signing_key (or _file, resolved by now) is required.
	if c.Engine.SigningKey == "" {
		errs = append(errs, fmt.Errorf("engine.signing_key or engine.signing_key_file is required"))
	}

	seen := make(map[string]bool, len(c.Engine.Clients))
	for i, client := range c.Engine.Clients {
		if client.ID == "" {
			errs = append(errs, fmt.Errorf("engine.clients[%d].id is required", i))
			continue
		}
		if seen[client.ID] {
			errs = append(errs, fmt.Errorf("engine.clients[%d]: duplicate client id %q", i, client.ID))
		}
		seen[client.ID] = true
		if client.Secret == "" && client.SecretFile == "" {
			errs = append(errs, fmt.Errorf("engine.clients[%d].secret or secret_file is required", i))
		}
		if u, err := url.Parse(client.RedirectURI); err != nil || client.RedirectURI == "" || !u.IsAbs() {
			errs = append(errs, fmt.Errorf("engine.clients[%d].redirect_uri must be an absolute URL, got %q", i, client.RedirectURI))
		}
	}

	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Path == "" {
		errs = append(errs, fmt.Errorf("observability.metrics.path is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}
