package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind categorizes transport failures into a closed taxonomy. Every failure
// path in this package produces exactly one Kind.
type Kind string

const (
	// KindConnection covers unreachable hosts, DNS and TLS failures.
	KindConnection Kind = "connection"
	// KindTimeout covers deadlines exceeded before a response arrived.
	KindTimeout Kind = "timeout"
	// KindProtocol covers malformed envelopes, correlation mismatches and
	// unexpected HTTP statuses outside the auth class.
	KindProtocol Kind = "protocol"
	// KindAgent covers JSON-RPC error objects returned by the remote agent;
	// the remote code and message are carried verbatim.
	KindAgent Kind = "agent"
	// KindAuth covers HTTP 401/403 class responses.
	KindAuth Kind = "auth"
)

// Error provides rich context for transport failures.
type Error struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	// Code carries the remote JSON-RPC error code when Kind is KindAgent.
	Code    int
	wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.wrapped }

// NewError builds an Error explicitly.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func classify(kind Kind) func(error) bool {
	return func(err error) bool {
		var te *Error
		if err == nil {
			return false
		}
		if errors.As(err, &te) {
			return te.Kind == kind
		}
		return false
	}
}

// Helper predicates for common error handling patterns.
var (
	IsConnection = classify(KindConnection)
	IsTimeout    = classify(KindTimeout)
	IsProtocol   = classify(KindProtocol)
	IsAgent      = classify(KindAgent)
	IsAuth       = classify(KindAuth)
)

// AgentErrorCode extracts the remote JSON-RPC error code, or 0 when err is
// not an agent error.
func AgentErrorCode(err error) int {
	var te *Error
	if errors.As(err, &te) && te.Kind == KindAgent {
		return te.Code
	}
	return 0
}

// mapTransportError classifies an error raised before any HTTP response was
// received (dial, DNS, TLS, deadline).
func mapTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "deadline exceeded before response", wrapped: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Message: "request timed out", wrapped: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindConnection, Message: "request canceled", wrapped: err}
	}
	return &Error{Kind: KindConnection, Message: "agent unreachable", wrapped: err}
}

// mapStatusError classifies a non-2xx HTTP response. 401/403 map to the auth
// kind; everything else means the endpoint answered outside the JSON-RPC
// contract and maps to the protocol kind.
func mapStatusError(status int, body string) *Error {
	msg := fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	if body != "" {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &Error{Kind: KindAuth, Message: msg, HTTPStatus: status}
	}
	return &Error{Kind: KindProtocol, Message: msg, HTTPStatus: status}
}

// mapAgentError converts a JSON-RPC error object into an agent-kind Error,
// preserving the remote code and message verbatim.
func mapAgentError(obj *ErrorObject) *Error {
	return &Error{Kind: KindAgent, Message: obj.Message, Code: obj.Code}
}

func protocolError(format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, Message: fmt.Sprintf(format, args...)}
}
