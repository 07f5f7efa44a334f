package agentlink

import (
	"net/http"
	"time"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// Options configures the Client instance. All fields are fixed at
// construction time and immutable for the client's lifetime.
type Options struct {
	// AuthToken, when set, is sent as an Authorization: Bearer header on
	// every request.
	AuthToken string

	// Timeout is the default per-call deadline (default 30s). Individual
	// calls can tighten it through their context.
	Timeout time.Duration

	// Headers are additional static headers merged into every request.
	// Protocol-required headers (Content-Type, Accept) cannot be overridden.
	Headers map[string]string

	// SessionExpiry is the inactivity window after which sessions expire
	// (default 60 minutes). Ignored when a custom SessionStore is supplied.
	SessionExpiry time.Duration

	// SessionStore overrides the default in-memory store.
	SessionStore core.SessionStore

	// HTTPClient overrides the pooled HTTP client (tests, custom TLS).
	HTTPClient *http.Client

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// MessageOptions configures a single SendMessage call.
type MessageOptions struct {
	// SessionID selects the conversation context. Empty means a fresh
	// implicit session; an unknown id is created on demand.
	SessionID string

	// OutputMode is the requested output format (default "text").
	OutputMode string

	// ExtraParams are merged into the request params, letting callers pass
	// agent specific fields without a schema change here.
	ExtraParams map[string]any
}

// WithSessionID routes the message through an existing (or named) session.
func WithSessionID(id string) func(o *MessageOptions) {
	return func(o *MessageOptions) { o.SessionID = id }
}

// WithOutputMode overrides the requested output format.
func WithOutputMode(mode string) func(o *MessageOptions) {
	return func(o *MessageOptions) { o.OutputMode = mode }
}

// WithExtraParam adds one extra key/value pair to the request params.
func WithExtraParam(key string, value any) func(o *MessageOptions) {
	return func(o *MessageOptions) {
		if o.ExtraParams == nil {
			o.ExtraParams = map[string]any{}
		}
		o.ExtraParams[key] = value
	}
}
