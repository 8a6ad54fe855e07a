package endpoint

import "fmt"

// ErrorKind categorizes protocol-level failures raised by an Endpoint.
type ErrorKind string

const (
	// KindDenySilently marks a request that looks like an attack and
	// should be rejected without detail.
	KindDenySilently ErrorKind = "deny_silently"

	// KindPrimitive marks a failure in a server-side component (store,
	// signer) during a flow.
	KindPrimitive ErrorKind = "primitive"

	// KindInvalidRequest marks a request the protocol could not accept.
	KindInvalidRequest ErrorKind = "invalid_request"
)

// Error is a protocol error raised by an Endpoint. The adapter layer
// passes it through unchanged rather than reinterpreting it.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewDenySilently creates a deny-silently protocol error.
func NewDenySilently() *Error {
	return &Error{Kind: KindDenySilently, Message: "suspicious request"}
}

// NewPrimitiveError creates a protocol error for a failed server-side
// component, wrapping its cause.
func NewPrimitiveError(err error) *Error {
	return &Error{Kind: KindPrimitive, Message: "server component failed", Err: err}
}

// NewInvalidRequest creates a protocol error for a request the protocol
// cannot accept.
func NewInvalidRequest(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}
