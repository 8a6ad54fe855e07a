package endpoint

import (
	"context"
	"net/url"
	"time"
)

// Request exposes the normalized fields of one incoming HTTP request.
//
// Query and URLBody fail lazily: a request whose body was not
// form-encoded still constructs, and the failure only surfaces when a
// flow actually asks for the body. AuthHeader reports absence as
// ok == false rather than an error; construction already rejected
// requests carrying more than one Authorization header.
type Request interface {
	// Query returns the parsed query parameters, or an error if the
	// query string was absent or unparseable.
	Query() (*Params, error)

	// URLBody returns the parsed form body, or an error if the body was
	// absent or not application/x-www-form-urlencoded.
	URLBody() (*Params, error)

	// AuthHeader returns the Authorization header value if present.
	AuthHeader() (value string, ok bool, err error)
}

// Response accumulates the protocol-dictated parts of the outgoing HTTP
// response. Each mutator fully determines the status code and the one
// header it owns; headers set by earlier calls are otherwise retained.
// Mutators that set a header value can fail on malformed text.
type Response interface {
	// Ok marks the response as 200 OK.
	Ok() error

	// Redirect marks the response as 302 Found with the given Location.
	Redirect(u *url.URL) error

	// ClientError marks the response as 400 Bad Request.
	ClientError() error

	// Unauthorized marks the response as 401 Unauthorized with the given
	// WWW-Authenticate challenge.
	Unauthorized(kind string) error

	// BodyText sets a text/plain body.
	BodyText(text string) error

	// BodyJSON sets an application/json body.
	BodyJSON(json string) error
}

// Grant describes an access grant proven by a resource check.
type Grant struct {
	// Subject is the resource owner the token was issued for.
	Subject string

	// ClientID is the client the token was issued to.
	ClientID string

	// Scope lists the granted scopes.
	Scope []string

	// ExpiresAt is the end of the token's validity.
	ExpiresAt time.Time
}

// Endpoint is the protocol engine driven by the adapter layer. One
// method per flow; each consumes the normalized request and, except for
// Resource, writes its outcome to the Response.
//
// Implementations own all shared state (client registry, token store)
// and decide policy; the adapter layer only carries data.
type Endpoint interface {
	// Authorize runs the authorization-code flow: client and redirect
	// validation, owner consent, code issuance.
	Authorize(ctx context.Context, req Request, resp Response) error

	// Token runs the access-token flow, exchanging an authorization
	// code for tokens.
	Token(ctx context.Context, req Request, resp Response) error

	// Refresh runs the refresh flow, rotating a refresh token.
	Refresh(ctx context.Context, req Request, resp Response) error

	// Resource checks a protected-resource request. On success it
	// returns the proven grant. On denial it writes the challenge to
	// resp and returns a protocol error.
	Resource(ctx context.Context, req Request, resp Response) (*Grant, error)
}
