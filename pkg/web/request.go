package web

import (
	"io"
	"mime"
	"net/http"

	"github.com/bmertz/webgrant/pkg/endpoint"
	"github.com/bmertz/webgrant/pkg/weberr"
)

// maxFormBody bounds how much of a form body the adapter will read.
const maxFormBody = 1 << 20 // 1 MB

// Request is the full request adapter. It implements endpoint.Request
// over a raw HTTP request, with query and body failing lazily on first
// access when they were absent or unparseable.
//
// NewRequest consumes the request body, so do not use Request on
// handlers that also expect an application payload; use Resource there.
type Request struct {
	auth    string
	hasAuth bool
	query   *endpoint.Params
	body    *endpoint.Params
}

// NewRequest normalizes r into a Request. The body is read at most
// once, and only when the request declares an
// application/x-www-form-urlencoded content type. More than one
// Authorization header fails immediately; every other extraction
// problem is deferred to first access of the affected field.
func NewRequest(r *http.Request) (*Request, error) {
	auth, hasAuth, err := singleAuthHeader(r.Header)
	if err != nil {
		return nil, err
	}

	req := &Request{auth: auth, hasAuth: hasAuth}

	if q, err := endpoint.ParseQuery(r.URL.RawQuery); err == nil {
		req.query = q
	}
	req.body = readFormBody(r)

	return req, nil
}

// Query returns the parsed query parameters. It fails with the query
// kind if the query string could not be parsed at construction.
func (r *Request) Query() (*endpoint.Params, error) {
	if r.query == nil {
		return nil, weberr.NewQuery()
	}
	return r.query, nil
}

// URLBody returns the parsed form body. It fails with the body kind if
// no form-encoded body was present at construction.
func (r *Request) URLBody() (*endpoint.Params, error) {
	if r.body == nil {
		return nil, weberr.NewBody()
	}
	return r.body, nil
}

// AuthHeader returns the Authorization header value if one was present.
func (r *Request) AuthHeader() (string, bool, error) {
	return r.auth, r.hasAuth, nil
}

// Resource is the header-only guard adapter. It extracts just the
// Authorization header, with the same one-or-none invariant as
// NewRequest, and leaves the request body untouched.
type Resource struct {
	auth    string
	hasAuth bool
}

// NewResource extracts the Authorization header from r. More than one
// Authorization header fails with the authorization kind.
func NewResource(r *http.Request) (*Resource, error) {
	auth, hasAuth, err := singleAuthHeader(r.Header)
	if err != nil {
		return nil, err
	}
	return &Resource{auth: auth, hasAuth: hasAuth}, nil
}

// Authorization returns the Authorization header value if present.
func (r *Resource) Authorization() (string, bool) {
	return r.auth, r.hasAuth
}

// IntoRequest converts the guard adapter into a full Request with query
// and body forced absent, so the same operation machinery can run
// resource-protection checks.
func (r *Resource) IntoRequest() *Request {
	return &Request{auth: r.auth, hasAuth: r.hasAuth}
}

var (
	_ endpoint.Request = (*Request)(nil)
)

// singleAuthHeader enforces the one-or-none Authorization invariant.
func singleAuthHeader(h http.Header) (string, bool, error) {
	values := h.Values("Authorization")
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
		return values[0], true, nil
	default:
		return "", false, weberr.NewAuthorization()
	}
}

// readFormBody reads and parses the request body when it is declared as
// a urlencoded form. Any failure (wrong content type, unreadable body,
// malformed encoding) yields nil: the body is recorded as absent rather
// than failing request construction.
func readFormBody(r *http.Request) *endpoint.Params {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/x-www-form-urlencoded" {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxFormBody))
	if err != nil {
		return nil
	}

	params, err := endpoint.ParseQuery(string(raw))
	if err != nil {
		return nil
	}
	return params
}
