package weather

import (
	"errors"
	"fmt"
)

// Fetch failure kinds. Match with errors.Is.
var (
	// ErrNetworkUnreachable means no request was sent because no network
	// path was available.
	ErrNetworkUnreachable = errors.New("network unreachable")

	// ErrTransport means the HTTP exchange itself failed (DNS, timeout,
	// connection reset, open circuit).
	ErrTransport = errors.New("transport error")

	// ErrServer means a response arrived but it signalled failure or its
	// body was empty or unparseable.
	ErrServer = errors.New("server error")
)

// FetchError is returned by every failed fetch.
type FetchError struct {
	// Kind is one of ErrNetworkUnreachable, ErrTransport or ErrServer.
	Kind error

	// StatusCode is the HTTP status for ErrServer, zero otherwise.
	StatusCode int

	// Message is the provider's own error message, when it sent one.
	Message string

	// Err is the underlying cause.
	Err error
}

// NewTransportError wraps a failed HTTP exchange.
func NewTransportError(cause error) *FetchError {
	return &FetchError{Kind: ErrTransport, Err: cause}
}

// NewServerError describes a failed response.
func NewServerError(status int, message string, cause error) *FetchError {
	return &FetchError{Kind: ErrServer, StatusCode: status, Message: message, Err: cause}
}

func (e *FetchError) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
