// Package weberr provides the unified error type for the adapter layer.
//
// Failures from every origin — request extraction, outgoing header
// construction, asynchronous dispatch, and the protocol engine itself —
// are absorbed into one Error carrying a closed Kind, so callers get a
// single error surface with a single HTTP-mapping policy. Conversions
// into the type are one-directional: once unified, an error keeps its
// distinguishing kind and its cause chain, but is never turned back
// into its origin type.
package weberr

import (
	"context"
	"errors"
	"fmt"

	"github.com/bmertz/webgrant/pkg/endpoint"
)

// Kind identifies the failure origin of an Error. The set is closed.
type Kind string

const (
	// KindEndpoint marks protocol errors raised by the engine.
	KindEndpoint Kind = "endpoint"

	// KindHeader marks failures constructing an outgoing header value.
	KindHeader Kind = "header"

	// KindEncoding marks failures decoding the request.
	KindEncoding Kind = "encoding"

	// KindForm marks a request body that is not a form.
	KindForm Kind = "form"

	// KindQuery marks an absent or unparseable request query.
	KindQuery Kind = "query"

	// KindBody marks an absent request body.
	KindBody Kind = "body"

	// KindAuthorization marks invalid Authorization headers.
	KindAuthorization Kind = "authorization"

	// KindCanceled marks a background operation that was canceled or
	// timed out before producing a reply.
	KindCanceled Kind = "canceled"

	// KindMailbox marks a dispatch worker whose mailbox was full or
	// closed.
	KindMailbox Kind = "mailbox"
)

// Error is the unified error type for the adapter layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error with the given kind and message, preserving err
// as the cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewHeader creates a header-construction Error for the named header.
func NewHeader(name string) *Error {
	return New(KindHeader, fmt.Sprintf("could not set %s header: malformed value", name))
}

// NewEncoding creates an Error for a request that could not be decoded.
func NewEncoding() *Error {
	return New(KindEncoding, "error decoding request")
}

// NewForm creates an Error for a request body that is not a form.
func NewForm() *Error {
	return New(KindForm, "request is not a form")
}

// NewQuery creates an Error for an absent or unparseable query.
func NewQuery() *Error {
	return New(KindQuery, "no query present")
}

// NewBody creates an Error for an absent request body.
func NewBody() *Error {
	return New(KindBody, "no body present")
}

// NewAuthorization creates an Error for invalid Authorization headers.
func NewAuthorization() *Error {
	return New(KindAuthorization, "request has invalid Authorization headers")
}

// NewCanceled creates an Error for a canceled background operation.
func NewCanceled() *Error {
	return New(KindCanceled, "operation canceled")
}

// NewMailbox creates an Error for a full or closed worker mailbox.
func NewMailbox() *Error {
	return New(KindMailbox, "worker mailbox unavailable")
}

// Convert unifies an arbitrary error into an *Error. Already-unified
// errors pass through unchanged, protocol errors become KindEndpoint,
// and context cancellation becomes KindCanceled. Any other error is
// treated as engine-origin, since the engine is the only collaborator
// allowed to raise foreign errors through this layer.
func Convert(err error) *Error {
	var we *Error
	if errors.As(err, &we) {
		return we
	}
	var pe *endpoint.Error
	if errors.As(err, &pe) {
		return Wrap(KindEndpoint, "endpoint error", pe)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindCanceled, "operation canceled", err)
	}
	return Wrap(KindEndpoint, "endpoint error", err)
}

// KindOf reports the unified kind of err, converting it if necessary.
func KindOf(err error) Kind {
	return Convert(err).Kind
}
