// Package operation models one protocol step as a single-use value that
// runs against any engine satisfying the endpoint contract. The same
// value can execute synchronously in a handler or be wrapped in an
// Envelope and relayed to a dispatch worker; the run contract is
// identical either way.
package operation

import (
	"context"
	"fmt"

	"github.com/bmertz/webgrant/pkg/endpoint"
	"github.com/bmertz/webgrant/pkg/web"
	"github.com/bmertz/webgrant/pkg/weberr"
)

// Result is the outcome of a successfully run operation. Response is
// the accumulated HTTP response to render; Grant is set only by
// resource checks.
type Result struct {
	Response *web.Response
	Grant    *endpoint.Grant
}

// Operation describes one protocol step to run against an engine.
//
// An Operation is single-use: it is created holding its parameters, run
// exactly once, and consumed by that run. Running a consumed Operation
// is caller misuse and panics rather than returning an error.
type Operation interface {
	// Run executes the step against e. Errors are returned unified.
	Run(ctx context.Context, e endpoint.Endpoint) (*Result, error)

	// Name identifies the step for logs and metrics.
	Name() string
}

// single tracks the consumed state shared by all operation kinds.
type single struct {
	done bool
}

func (s *single) consume(name string) {
	if s.done {
		panic(fmt.Sprintf("operation: %s already consumed", name))
	}
	s.done = true
}

// Authorize runs the authorization-code flow for one request.
type Authorize struct {
	Request *web.Request
	single
}

// NewAuthorize creates an authorize operation for req.
func NewAuthorize(req *web.Request) *Authorize {
	return &Authorize{Request: req}
}

// Name implements Operation.
func (o *Authorize) Name() string { return "authorize" }

// Run implements Operation.
func (o *Authorize) Run(ctx context.Context, e endpoint.Endpoint) (*Result, error) {
	o.consume(o.Name())
	resp := web.NewResponse()
	if err := e.Authorize(ctx, o.Request, resp); err != nil {
		return nil, weberr.Convert(err)
	}
	return &Result{Response: resp}, nil
}

// Token runs the access-token flow for one request.
type Token struct {
	Request *web.Request
	single
}

// NewToken creates a token operation for req.
func NewToken(req *web.Request) *Token {
	return &Token{Request: req}
}

// Name implements Operation.
func (o *Token) Name() string { return "token" }

// Run implements Operation.
func (o *Token) Run(ctx context.Context, e endpoint.Endpoint) (*Result, error) {
	o.consume(o.Name())
	resp := web.NewResponse()
	if err := e.Token(ctx, o.Request, resp); err != nil {
		return nil, weberr.Convert(err)
	}
	return &Result{Response: resp}, nil
}

// Refresh runs the refresh flow for one request.
type Refresh struct {
	Request *web.Request
	single
}

// NewRefresh creates a refresh operation for req.
func NewRefresh(req *web.Request) *Refresh {
	return &Refresh{Request: req}
}

// Name implements Operation.
func (o *Refresh) Name() string { return "refresh" }

// Run implements Operation.
func (o *Refresh) Run(ctx context.Context, e endpoint.Endpoint) (*Result, error) {
	o.consume(o.Name())
	resp := web.NewResponse()
	if err := e.Refresh(ctx, o.Request, resp); err != nil {
		return nil, weberr.Convert(err)
	}
	return &Result{Response: resp}, nil
}

// Resource runs a protected-resource check for one request.
type Resource struct {
	Request *web.Request
	single
}

// NewResource creates a resource-check operation for req.
func NewResource(req *web.Request) *Resource {
	return &Resource{Request: req}
}

// Name implements Operation.
func (o *Resource) Name() string { return "resource" }

// Run implements Operation. On denial the returned Result still carries
// the challenge response the engine wrote, alongside the unified error;
// callers should render that response when present.
func (o *Resource) Run(ctx context.Context, e endpoint.Endpoint) (*Result, error) {
	o.consume(o.Name())
	resp := web.NewResponse()
	grant, err := e.Resource(ctx, o.Request, resp)
	if err != nil {
		return &Result{Response: resp}, weberr.Convert(err)
	}
	return &Result{Response: resp, Grant: grant}, nil
}
