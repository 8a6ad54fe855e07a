package engine

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/bmertz/webgrant/pkg/endpoint"
)

// Client is one registered OAuth2 client.
type Client struct {
	ID          string
	Secret      string
	RedirectURI string
	Scopes      []string
}

// ConsentRequest describes the pending authorization a Solicitor must
// decide on.
type ConsentRequest struct {
	ClientID    string
	RedirectURI string
	Scope       []string
	State       string
}

// Consent is a Solicitor's decision. Subject identifies the resource
// owner granting access and is required when Allowed is true.
type Consent struct {
	Allowed bool
	Subject string
}

// Solicitor decides owner consent for an authorization request. Real
// deployments back this with a login and consent page; the demo server
// uses AllowAll.
type Solicitor func(ctx context.Context, req ConsentRequest) Consent

// AllowAll returns a Solicitor granting every request on behalf of the
// given subject.
func AllowAll(subject string) Solicitor {
	return func(ctx context.Context, req ConsentRequest) Consent {
		return Consent{Allowed: true, Subject: subject}
	}
}

// Options configures an Engine.
type Options struct {
	// Issuer is the iss claim of issued access tokens.
	Issuer string

	// SigningKey is the HS256 key for access tokens. Required.
	SigningKey []byte

	// AccessTokenTTL defaults to 1 hour.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL defaults to 24 hours.
	RefreshTokenTTL time.Duration

	// CodeTTL bounds authorization-code validity. Defaults to 10 minutes.
	CodeTTL time.Duration

	// Clients is the static client registry.
	Clients []Client

	// Solicitor decides owner consent. Defaults to AllowAll("owner").
	Solicitor Solicitor

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine is an in-memory authorization server implementing the
// endpoint contract.
type Engine struct {
	issuer     string
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	codeTTL    time.Duration
	clients    map[string]Client
	solicitor  Solicitor
	logger     *slog.Logger
	now        func() time.Time

	codes   *codeStore
	refresh *refreshStore
}

// New creates an Engine from opts.
func New(opts Options) (*Engine, error) {
	if len(opts.SigningKey) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}
	if opts.Issuer == "" {
		opts.Issuer = "webgrant"
	}
	if opts.AccessTokenTTL == 0 {
		opts.AccessTokenTTL = time.Hour
	}
	if opts.RefreshTokenTTL == 0 {
		opts.RefreshTokenTTL = 24 * time.Hour
	}
	if opts.CodeTTL == 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	if opts.Solicitor == nil {
		opts.Solicitor = AllowAll("owner")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	clients := make(map[string]Client, len(opts.Clients))
	for _, c := range opts.Clients {
		if c.ID == "" {
			return nil, fmt.Errorf("client with empty id")
		}
		if _, err := url.Parse(c.RedirectURI); err != nil || c.RedirectURI == "" {
			return nil, fmt.Errorf("client %s: invalid redirect URI %q", c.ID, c.RedirectURI)
		}
		clients[c.ID] = c
	}

	return &Engine{
		issuer:     opts.Issuer,
		signingKey: opts.SigningKey,
		accessTTL:  opts.AccessTokenTTL,
		refreshTTL: opts.RefreshTokenTTL,
		codeTTL:    opts.CodeTTL,
		clients:    clients,
		solicitor:  opts.Solicitor,
		logger:     opts.Logger,
		now:        opts.Now,
		codes:      newCodeStore(),
		refresh:    newRefreshStore(),
	}, nil
}

// Authorize implements endpoint.Endpoint.
func (e *Engine) Authorize(ctx context.Context, req endpoint.Request, resp endpoint.Response) error {
	q, err := req.Query()
	if err != nil {
		return err
	}

	clientID, ok := q.Unique("client_id")
	if !ok {
		return endpoint.NewInvalidRequest("client_id is required")
	}
	client, ok := e.clients[clientID]
	if !ok {
		return endpoint.NewInvalidRequest("unknown client")
	}

	// A redirect_uri that does not match the registration is treated as
	// an attack: no redirect happens, and no detail is disclosed.
	switch uris := q.Values("redirect_uri"); len(uris) {
	case 0:
	case 1:
		if uris[0] != client.RedirectURI {
			return endpoint.NewDenySilently()
		}
	default:
		return endpoint.NewDenySilently()
	}

	redirect, err := url.Parse(client.RedirectURI)
	if err != nil {
		return endpoint.NewPrimitiveError(err)
	}
	state := q.Get("state")

	if rt, ok := q.Unique("response_type"); !ok || rt != "code" {
		return e.errorRedirect(resp, redirect, "unsupported_response_type", state)
	}

	scope := strings.Fields(q.Get("scope"))
	for _, s := range scope {
		if !slices.Contains(client.Scopes, s) {
			return e.errorRedirect(resp, redirect, "invalid_scope", state)
		}
	}
	if len(scope) == 0 {
		scope = client.Scopes
	}

	consent := e.solicitor(ctx, ConsentRequest{
		ClientID:    client.ID,
		RedirectURI: client.RedirectURI,
		Scope:       scope,
		State:       state,
	})
	if !consent.Allowed {
		return e.errorRedirect(resp, redirect, "access_denied", state)
	}

	now := e.now()
	code := e.codes.put(codeGrant{
		clientID:    client.ID,
		subject:     consent.Subject,
		scope:       scope,
		redirectURI: client.RedirectURI,
		expiresAt:   now.Add(e.codeTTL),
	})

	e.logger.Info("authorization code issued", "client_id", client.ID, "subject", consent.Subject)

	target := *redirect
	tq := target.Query()
	tq.Set("code", code)
	if state != "" {
		tq.Set("state", state)
	}
	target.RawQuery = tq.Encode()
	return resp.Redirect(&target)
}

// Token implements endpoint.Endpoint.
func (e *Engine) Token(ctx context.Context, req endpoint.Request, resp endpoint.Response) error {
	body, err := req.URLBody()
	if err != nil {
		return err
	}

	client, ok, err := e.authenticateClient(req, body)
	if err != nil {
		return err
	}
	if !ok {
		return writeTokenError(resp, "invalid_client", true)
	}

	if gt := body.Get("grant_type"); gt != "authorization_code" {
		return writeTokenError(resp, "unsupported_grant_type", false)
	}

	code, ok := body.Unique("code")
	if !ok {
		return writeTokenError(resp, "invalid_request", false)
	}

	now := e.now()
	grant, ok := e.codes.take(code, now)
	if !ok || grant.clientID != client.ID {
		return writeTokenError(resp, "invalid_grant", false)
	}
	if uri := body.Get("redirect_uri"); uri != "" && uri != grant.redirectURI {
		return writeTokenError(resp, "invalid_grant", false)
	}

	return e.writeTokens(resp, grant.subject, client.ID, grant.scope, now)
}

// Refresh implements endpoint.Endpoint.
func (e *Engine) Refresh(ctx context.Context, req endpoint.Request, resp endpoint.Response) error {
	body, err := req.URLBody()
	if err != nil {
		return err
	}

	client, ok, err := e.authenticateClient(req, body)
	if err != nil {
		return err
	}
	if !ok {
		return writeTokenError(resp, "invalid_client", true)
	}

	if gt := body.Get("grant_type"); gt != "refresh_token" {
		return writeTokenError(resp, "unsupported_grant_type", false)
	}

	token, ok := body.Unique("refresh_token")
	if !ok {
		return writeTokenError(resp, "invalid_request", false)
	}

	now := e.now()
	grant, ok := e.refresh.take(token, now)
	if !ok || grant.clientID != client.ID {
		return writeTokenError(resp, "invalid_grant", false)
	}

	return e.writeTokens(resp, grant.subject, client.ID, grant.scope, now)
}

// Resource implements endpoint.Endpoint.
func (e *Engine) Resource(ctx context.Context, req endpoint.Request, resp endpoint.Response) (*endpoint.Grant, error) {
	auth, ok, err := req.AuthHeader()
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := resp.Unauthorized("Bearer"); err != nil {
			return nil, err
		}
		return nil, endpoint.NewInvalidRequest("bearer token required")
	}

	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		if err := resp.Unauthorized("Bearer"); err != nil {
			return nil, err
		}
		return nil, endpoint.NewInvalidRequest("authorization header is not a bearer token")
	}

	claims, err := e.verifyAccessToken(raw)
	if err != nil {
		if werr := resp.Unauthorized(`Bearer error="invalid_token"`); werr != nil {
			return nil, werr
		}
		return nil, &endpoint.Error{Kind: endpoint.KindInvalidRequest, Message: "invalid bearer token", Err: err}
	}

	return &endpoint.Grant{
		Subject:   claims.subject,
		ClientID:  claims.clientID,
		Scope:     claims.scope,
		ExpiresAt: claims.expiresAt,
	}, nil
}

// tokenResponse is the token endpoint's success payload (RFC 6749 §5.1).
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// writeTokens issues a fresh access/refresh token pair and renders the
// success payload.
func (e *Engine) writeTokens(resp endpoint.Response, subject, clientID string, scope []string, now time.Time) error {
	access, err := e.issueAccessToken(subject, clientID, scope, now)
	if err != nil {
		return endpoint.NewPrimitiveError(err)
	}
	refresh := e.refresh.put(refreshGrant{
		clientID:  clientID,
		subject:   subject,
		scope:     scope,
		expiresAt: now.Add(e.refreshTTL),
	})

	payload, err := json.Marshal(tokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(e.accessTTL.Seconds()),
		RefreshToken: refresh,
		Scope:        strings.Join(scope, " "),
	})
	if err != nil {
		return endpoint.NewPrimitiveError(err)
	}
	return resp.BodyJSON(string(payload))
}

// writeTokenError renders an RFC 6749 §5.2 token error. Failed client
// authentication answers 401 with a challenge; everything else is 400.
func writeTokenError(resp endpoint.Response, code string, unauthorized bool) error {
	if unauthorized {
		if err := resp.Unauthorized("Basic"); err != nil {
			return err
		}
	} else {
		if err := resp.ClientError(); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(map[string]string{"error": code})
	if err != nil {
		return endpoint.NewPrimitiveError(err)
	}
	return resp.BodyJSON(string(payload))
}

// authenticateClient resolves client credentials from HTTP Basic auth
// or, failing that, from client_id/client_secret form fields.
func (e *Engine) authenticateClient(req endpoint.Request, body *endpoint.Params) (Client, bool, error) {
	id, secret := "", ""

	auth, hasAuth, err := req.AuthHeader()
	if err != nil {
		return Client{}, false, err
	}
	if hasAuth {
		encoded, ok := strings.CutPrefix(auth, "Basic ")
		if !ok {
			return Client{}, false, nil
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return Client{}, false, nil
		}
		id, secret, ok = strings.Cut(string(decoded), ":")
		if !ok {
			return Client{}, false, nil
		}
	} else {
		id = body.Get("client_id")
		secret = body.Get("client_secret")
	}

	client, ok := e.clients[id]
	if !ok {
		return Client{}, false, nil
	}
	if subtle.ConstantTimeCompare([]byte(client.Secret), []byte(secret)) != 1 {
		return Client{}, false, nil
	}
	return client, true, nil
}

// errorRedirect sends the owner back to the client with an error code
// (RFC 6749 §4.1.2.1).
func (e *Engine) errorRedirect(resp endpoint.Response, redirect *url.URL, code, state string) error {
	target := *redirect
	q := target.Query()
	q.Set("error", code)
	if state != "" {
		q.Set("state", state)
	}
	target.RawQuery = q.Encode()
	return resp.Redirect(&target)
}

var _ endpoint.Endpoint = (*Engine)(nil)
