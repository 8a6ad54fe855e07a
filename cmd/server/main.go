// Command server runs the webgrant authorization server.
//
// Configuration is layered: built-in defaults, then a YAML config file
// (-config flag, WEBGRANT_CONFIG, ./config.yaml, or
// /etc/webgrant/config.yaml), then WEBGRANT_* environment overrides.
// See pkg/config for the full schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/bmertz/webgrant/pkg/config"
	"github.com/bmertz/webgrant/pkg/debug"
	"github.com/bmertz/webgrant/pkg/dispatch"
	"github.com/bmertz/webgrant/pkg/engine"
	"github.com/bmertz/webgrant/pkg/transport"
	"github.com/bmertz/webgrant/pkg/weberr"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init("", "")
	logger := slog.Default()

	clients := make([]engine.Client, 0, len(cfg.Engine.Clients))
	for _, c := range cfg.Engine.Clients {
		clients = append(clients, engine.Client{
			ID:          c.ID,
			Secret:      c.Secret,
			RedirectURI: c.RedirectURI,
			Scopes:      c.Scopes,
		})
	}

	eng, err := engine.New(engine.Options{
		Issuer:          cfg.Engine.Issuer,
		SigningKey:      []byte(cfg.Engine.SigningKey),
		AccessTokenTTL:  cfg.Engine.AccessTokenTTL,
		RefreshTokenTTL: cfg.Engine.RefreshTokenTTL,
		CodeTTL:         cfg.Engine.CodeTTL,
		Clients:         clients,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	worker := dispatch.NewWorker(eng, cfg.Dispatch.MailboxSize, logger)
	worker.Start(context.Background())
	defer worker.Close()

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	srv := transport.NewServer(worker,
		transport.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transport.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transport.WithSubmitTimeout(cfg.Dispatch.SubmitTimeout),
		transport.WithMetricsPath(metricsPath),
		transport.WithPolicy(productionPolicy()),
		transport.WithLogger(logger),
	)

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"clients", len(clients),
		"mailbox_size", cfg.Dispatch.MailboxSize,
		"metrics", cfg.Observability.Metrics.Enabled,
	)

	return srv.ListenAndServe()
}

// productionPolicy maps error kinds to statuses for the public surface:
// malformed client input answers 400, an abandoned wait 408, and an
// overloaded or stopped worker 503. Everything unmapped stays at the
// fail-closed 500.
func productionPolicy() weberr.StatusPolicy {
	policy := weberr.DefaultPolicy()
	policy[weberr.KindAuthorization] = http.StatusBadRequest
	policy[weberr.KindQuery] = http.StatusBadRequest
	policy[weberr.KindBody] = http.StatusBadRequest
	policy[weberr.KindForm] = http.StatusBadRequest
	policy[weberr.KindEncoding] = http.StatusBadRequest
	policy[weberr.KindEndpoint] = http.StatusBadRequest
	policy[weberr.KindCanceled] = http.StatusRequestTimeout
	policy[weberr.KindMailbox] = http.StatusServiceUnavailable
	return policy
}
