package web

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpguts"

	"github.com/bmertz/webgrant/pkg/endpoint"
	"github.com/bmertz/webgrant/pkg/weberr"
)

// Response accumulates the engine's response actions into a concrete
// status code, header set, and optional body. NewResponse starts at
// 200 OK with no headers and no body.
//
// Each action fully determines the status and the one header it owns;
// headers set by earlier actions are retained unless overwritten. A
// malformed header value fails the action and leaves the response
// unchanged.
type Response struct {
	status  int
	header  http.Header
	body    string
	hasBody bool
}

// NewResponse creates an empty 200 OK response.
func NewResponse() *Response {
	return &Response{
		status: http.StatusOK,
		header: make(http.Header),
	}
}

// Ok marks the response as 200 OK.
func (r *Response) Ok() error {
	r.status = http.StatusOK
	return nil
}

// Redirect marks the response as 302 Found with u as the Location. A
// Location value that is not a valid header value fails and leaves the
// status unchanged.
func (r *Response) Redirect(u *url.URL) error {
	if err := r.setHeader("Location", u.String()); err != nil {
		return err
	}
	r.status = http.StatusFound
	return nil
}

// ClientError marks the response as 400 Bad Request.
func (r *Response) ClientError() error {
	r.status = http.StatusBadRequest
	return nil
}

// Unauthorized marks the response as 401 Unauthorized with kind as the
// WWW-Authenticate challenge. A malformed challenge fails and leaves
// the status unchanged.
func (r *Response) Unauthorized(kind string) error {
	if err := r.setHeader("WWW-Authenticate", kind); err != nil {
		return err
	}
	r.status = http.StatusUnauthorized
	return nil
}

// BodyText sets a text/plain body, replacing any previous body and
// Content-Type.
func (r *Response) BodyText(text string) error {
	if err := r.setHeader("Content-Type", "text/plain"); err != nil {
		return err
	}
	r.body = text
	r.hasBody = true
	return nil
}

// BodyJSON sets an application/json body, replacing any previous body
// and Content-Type.
func (r *Response) BodyJSON(json string) error {
	if err := r.setHeader("Content-Type", "application/json"); err != nil {
		return err
	}
	r.body = json
	r.hasBody = true
	return nil
}

// Status returns the accumulated status code.
func (r *Response) Status() int {
	return r.status
}

// Header returns the accumulated headers.
func (r *Response) Header() http.Header {
	return r.header
}

// Body returns the accumulated body and whether one was set.
func (r *Response) Body() (string, bool) {
	return r.body, r.hasBody
}

// WriteTo finalizes the response onto w: headers are copied verbatim,
// the status is written, and the body (if any) follows.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	for name, values := range r.header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(r.status)
	if r.hasBody {
		if _, err := w.Write([]byte(r.body)); err != nil {
			return err
		}
	}
	return nil
}

var _ endpoint.Response = (*Response)(nil)

// setHeader validates value before touching the response, so a failed
// action leaves all prior state intact.
func (r *Response) setHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldValue(value) {
		return weberr.NewHeader(name)
	}
	r.header.Set(name, value)
	return nil
}
