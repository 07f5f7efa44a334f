// Package agentlink provides a synchronous Go client for A2A agents speaking
// JSON-RPC 2.0 over HTTP(S), preserving multi-turn conversational context
// across calls. Most applications interact with this package by:
//  1. Creating a Client via New() (optionally overriding stores, headers or
//     the logger)
//  2. Exchanging messages with SendMessage, letting the client create and
//     track sessions implicitly
//  3. Inspecting conversation state via GetConversationHistory / ListSessions
//
// The façade delegates transport concerns to the rpc package and session
// bookkeeping to the session package while keeping setup and usage
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply an auth token and a
// structured logger.
package agentlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
	"github.com/hupe1980/agentlink/rpc"
	"github.com/hupe1980/agentlink/session"
)

// Reserved method names on the agent endpoint.
const (
	methodMessageSend = "message/send"
	methodAgentCard   = "agent/card"
)

// Client is the high-level façade aggregating the transport connection and
// the session registry. It is safe for concurrent use; multiple messages may
// be in flight at once against the same agent.
type Client struct {
	agentURL  string
	conn      *rpc.Connection
	sessions  core.SessionStore
	logger    logging.Logger
	closeOnce sync.Once
}

// New creates a new Client for the given agent URL with optional overrides.
// Any unset service is initialized with an in-memory implementation.
func New(agentURL string, optFns ...func(o *Options)) (*Client, error) {
	if strings.TrimSpace(agentURL) == "" {
		return nil, fmt.Errorf("agent url must not be empty")
	}

	opts := Options{
		Timeout:       30 * time.Second,
		SessionExpiry: session.DefaultExpiryWindow,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	store := opts.SessionStore
	if store == nil {
		store = session.NewInMemoryStore(func(o *session.Options) {
			o.ExpiryWindow = opts.SessionExpiry
			o.Logger = opts.Logger
		})
	}

	conn := rpc.NewConnection(agentURL, func(o *rpc.Options) {
		o.Timeout = opts.Timeout
		o.AuthToken = opts.AuthToken
		o.Headers = opts.Headers
		o.HTTPClient = opts.HTTPClient
		o.Logger = opts.Logger
	})

	return &Client{
		agentURL: strings.TrimRight(agentURL, "/"),
		conn:     conn,
		sessions: store,
		logger:   opts.Logger,
	}, nil
}

// AgentURL returns the configured agent endpoint.
func (c *Client) AgentURL() string { return c.agentURL }

// SendMessage sends a message to the agent within a conversation session and
// returns the agent's response. Without a session id a fresh session is
// created implicitly; a not-yet-known id is created on demand while an
// expired one surfaces core.ErrSessionExpired. The exchange is recorded as
// one ConversationTurn, including the error marker when the call fails.
// Errors are never retried here; one call equals one network attempt.
func (c *Client) SendMessage(ctx context.Context, message string, optFns ...func(o *MessageOptions)) (*core.TaskResponse, error) {
	opts := MessageOptions{OutputMode: "text"}

	for _, fn := range optFns {
		fn(&opts)
	}

	sessionID, err := c.resolveSession(opts.SessionID)
	if err != nil {
		return nil, err
	}

	params, err := buildSendParams(message, opts)
	if err != nil {
		return nil, err
	}

	turn := core.ConversationTurn{
		TurnID:    uuid.NewString(),
		Input:     message,
		Timestamp: time.Now(),
	}

	result, callErr := c.conn.Call(ctx, methodMessageSend, params)
	if callErr != nil {
		turn.Error = callErr.Error()
		if appendErr := c.sessions.AppendTurn(sessionID, turn); appendErr != nil {
			c.logger.Warn("failed to record errored turn", "session_id", sessionID, "error", appendErr)
		}
		return nil, callErr
	}

	output := extractOutput(result)

	var metadata map[string]any
	_ = json.Unmarshal(result, &metadata) // non-object results leave metadata nil

	turn.Output = output
	turn.Metadata = metadata
	if err := c.sessions.AppendTurn(sessionID, turn); err != nil {
		return nil, err
	}

	return &core.TaskResponse{
		TaskID:    turn.TurnID,
		SessionID: sessionID,
		Status:    core.TaskStatusCompleted,
		Output:    output,
		Metadata:  metadata,
	}, nil
}

// resolveSession maps the caller supplied session id onto a live session,
// creating one for an empty or never-seen id. Expired sessions are not
// silently recreated.
func (c *Client) resolveSession(sessionID string) (string, error) {
	if sessionID == "" {
		sess, err := c.sessions.Create("", nil)
		if err != nil {
			return "", err
		}
		c.logger.Debug("implicit session created", "session_id", sess.ID)
		return sess.ID, nil
	}

	if _, err := c.sessions.Get(sessionID); err != nil {
		if !errors.Is(err, core.ErrSessionNotFound) {
			return "", err
		}
		if _, err := c.sessions.Create(sessionID, nil); err != nil {
			return "", err
		}
	}
	return sessionID, nil
}

// CreateSession registers a new conversation session. An empty id requests a
// generated one. Fails with core.ErrDuplicateSession when the id is taken.
func (c *Client) CreateSession(sessionID string, metadata map[string]string) (*core.Session, error) {
	return c.sessions.Create(sessionID, metadata)
}

// GetConversationHistory returns a snapshot of the most recent maxTurns
// turns (all turns when maxTurns <= 0) in dialogue order.
func (c *Client) GetConversationHistory(sessionID string, maxTurns int) ([]core.ConversationTurn, error) {
	return c.sessions.History(sessionID, maxTurns)
}

// CloseSession removes the session. Idempotent.
func (c *Client) CloseSession(sessionID string) {
	c.sessions.Close(sessionID)
}

// ListSessions returns the identifiers of all unexpired sessions.
func (c *Client) ListSessions() []string {
	return c.sessions.ListActive()
}

// SweepExpiredSessions physically removes expired sessions, returning their
// identifiers.
func (c *Client) SweepExpiredSessions() []string {
	return c.sessions.SweepExpired()
}

// HealthCheck reports whether the agent endpoint is reachable. Transport
// failures are swallowed into a false result rather than surfaced as errors.
func (c *Client) HealthCheck(ctx context.Context) bool {
	return c.conn.HealthCheck(ctx)
}

// GetAgentCard fetches the agent's capability card via the reserved
// agent/card method.
func (c *Client) GetAgentCard(ctx context.Context) (*core.AgentCard, error) {
	result, err := c.conn.Call(ctx, methodAgentCard, nil)
	if err != nil {
		return nil, err
	}

	var card core.AgentCard
	if err := json.Unmarshal(result, &card); err != nil {
		return nil, fmt.Errorf("decoding agent card: %w", err)
	}
	return &card, nil
}

// Close releases the pooled transport connections and clears all sessions.
// Safe to call multiple times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
		c.sessions.ClearAll()
	})
}

// buildSendParams assembles the message/send params: an A2A user message
// with a single text part, the requested output mode and any caller supplied
// extra params merged on top (never displacing the message itself).
func buildSendParams(text string, opts MessageOptions) (json.RawMessage, error) {
	type messagePart struct {
		Kind string `json:"kind"`
		Text string `json:"text,omitempty"`
	}
	type a2aMessage struct {
		Role      string        `json:"role"`
		Parts     []messagePart `json:"parts"`
		MessageID string        `json:"messageId"`
	}

	params, err := json.Marshal(struct {
		Message    a2aMessage `json:"message"`
		OutputMode string     `json:"outputMode,omitempty"`
	}{
		Message: a2aMessage{
			Role:      "user",
			Parts:     []messagePart{{Kind: "text", Text: text}},
			MessageID: uuid.NewString(),
		},
		OutputMode: opts.OutputMode,
	})
	if err != nil {
		return nil, err
	}

	for key, value := range opts.ExtraParams {
		if key == "message" {
			continue
		}
		params, err = sjson.SetBytes(params, key, value)
		if err != nil {
			return nil, fmt.Errorf("merging extra param %q: %w", key, err)
		}
	}
	return params, nil
}

// extractOutput concatenates the text parts of the result's artifacts,
// falling back to the raw result when no text part is present.
func extractOutput(result json.RawMessage) string {
	var b strings.Builder
	gjson.GetBytes(result, "artifacts").ForEach(func(_, artifact gjson.Result) bool {
		artifact.Get("parts").ForEach(func(_, part gjson.Result) bool {
			if part.Get("kind").String() == "text" {
				if text := part.Get("text"); text.Exists() {
					b.WriteString(text.String())
					b.WriteString("\n")
				}
			}
			return true
		})
		return true
	})

	out := strings.TrimSpace(b.String())
	if out == "" {
		out = string(result)
	}
	return out
}
