package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/bmertz/webgrant/pkg/debug"
	"github.com/bmertz/webgrant/pkg/dispatch"
	"github.com/bmertz/webgrant/pkg/operation"
	"github.com/bmertz/webgrant/pkg/web"
	"github.com/bmertz/webgrant/pkg/weberr"
)

// Adapter routes the authorization endpoints onto dispatch operations.
type Adapter struct {
	worker *dispatch.Worker
	policy weberr.StatusPolicy
	logger *slog.Logger
	mux    *http.ServeMux

	submitTimeout time.Duration
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// Policy maps unified error kinds to HTTP status codes. Nil uses
	// the fail-closed default where every kind answers 500.
	Policy weberr.StatusPolicy

	// SubmitTimeout bounds how long a request waits for the worker.
	SubmitTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewAdapter creates an adapter submitting to worker.
func NewAdapter(worker *dispatch.Worker, cfg Config) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = 10 * time.Second
	}

	a := &Adapter{
		worker:        worker,
		policy:        cfg.Policy,
		logger:        cfg.Logger,
		mux:           http.NewServeMux(),
		submitTimeout: cfg.SubmitTimeout,
	}

	a.mux.HandleFunc("GET /authorize", a.handleAuthorize)
	a.mux.HandleFunc("POST /authorize", a.handleAuthorize)
	a.mux.HandleFunc("POST /token", a.handleToken)
	a.mux.HandleFunc("POST /refresh", a.handleRefresh)
	a.mux.HandleFunc("GET /userinfo", a.handleUserinfo)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to
// integrate with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

func (a *Adapter) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	a.serveFlow(w, r, func(req *web.Request) operation.Operation {
		return operation.NewAuthorize(req)
	})
}

func (a *Adapter) handleToken(w http.ResponseWriter, r *http.Request) {
	a.serveFlow(w, r, func(req *web.Request) operation.Operation {
		return operation.NewToken(req)
	})
}

func (a *Adapter) handleRefresh(w http.ResponseWriter, r *http.Request) {
	a.serveFlow(w, r, func(req *web.Request) operation.Operation {
		return operation.NewRefresh(req)
	})
}

// serveFlow runs one protocol flow: normalize the request, submit a
// fresh operation, and render whatever the worker replies with. A
// malformed request fails here, before any operation is built.
func (a *Adapter) serveFlow(w http.ResponseWriter, r *http.Request, build func(*web.Request) operation.Operation) {
	req, err := web.NewRequest(r)
	if err != nil {
		weberr.WriteError(w, a.logger, a.policy, err)
		return
	}

	result, err := a.submit(r.Context(), build(req))
	if err != nil {
		debug.Log("transport", "flow failed", "path", r.URL.Path, "kind", weberr.KindOf(err))
		weberr.WriteError(w, a.logger, a.policy, err)
		return
	}

	if err := result.Response.WriteTo(w); err != nil {
		a.logger.Error("writing response", "path", r.URL.Path, "error", err)
	}
}

// userinfoPayload is the protected resource's response body.
type userinfoPayload struct {
	Subject  string   `json:"sub"`
	ClientID string   `json:"client_id"`
	Scope    []string `json:"scope,omitempty"`
}

// handleUserinfo guards a protected resource. Only headers are
// inspected; a denial renders the challenge response the engine built,
// and a valid token answers with the grant's identity.
func (a *Adapter) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	guard, err := web.NewResource(r)
	if err != nil {
		weberr.WriteError(w, a.logger, a.policy, err)
		return
	}

	result, err := a.submit(r.Context(), operation.NewResource(guard.IntoRequest()))
	if err != nil {
		// Denials carry the engine's challenge response alongside the
		// error; prefer it over the generic policy rendering.
		if result != nil && result.Response != nil {
			if werr := result.Response.WriteTo(w); werr != nil {
				a.logger.Error("writing challenge", "error", werr)
			}
			return
		}
		weberr.WriteError(w, a.logger, a.policy, err)
		return
	}

	payload, err := json.Marshal(userinfoPayload{
		Subject:  result.Grant.Subject,
		ClientID: result.Grant.ClientID,
		Scope:    result.Grant.Scope,
	})
	if err != nil {
		weberr.WriteError(w, a.logger, a.policy, weberr.Wrap(weberr.KindEncoding, "encoding userinfo", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// submit relays op to the worker under the adapter's timeout.
func (a *Adapter) submit(ctx context.Context, op operation.Operation) (*operation.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.submitTimeout)
	defer cancel()
	return a.worker.Submit(ctx, op)
}
