package rpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agentlink/logging"
)

const userAgent = "agentlink/0.1.0"

// defaultCallTimeout applies when no explicit per-call deadline is
// configured; every call must carry one.
const defaultCallTimeout = 30 * time.Second

// defaultHealthTimeout bounds the reserved health probe so it never hangs a
// caller that just wants a boolean.
const defaultHealthTimeout = 5 * time.Second

// Options configures a Connection (pool bounds, timeout, static headers,
// bearer auth). Extend via functional options to preserve stability.
type Options struct {
	// Timeout is the default per-call deadline applied when the caller's
	// context carries none. Non-positive values fall back to the default;
	// calls never run without a deadline.
	Timeout time.Duration
	// AuthToken, when set, is sent as an Authorization: Bearer header.
	AuthToken string
	// Headers are additional static headers merged into every request.
	// Protocol-required headers (Content-Type, Accept) always win.
	Headers map[string]string

	// Connection pool bounds.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration

	// HTTPClient overrides the pooled client entirely (tests, custom TLS).
	HTTPClient *http.Client

	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// Connection executes JSON-RPC 2.0 calls against a single agent endpoint
// over a bounded pool of reusable sockets. It is safe for concurrent use;
// multiple calls may be in flight at once, each with its own correlation id.
type Connection struct {
	baseURL string
	timeout time.Duration
	headers map[string]string
	client  *http.Client
	logger  logging.Logger
}

// NewConnection creates a connection to the given agent URL with optional
// overrides. Defaults are safe for local development and testing.
func NewConnection(baseURL string, optFns ...func(o *Options)) *Connection {
	opts := Options{
		Timeout:             defaultCallTimeout,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		MaxConnsPerHost:     32,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		Logger:              logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultCallTimeout
	}

	headers := make(map[string]string, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if opts.AuthToken != "" {
		headers["Authorization"] = "Bearer " + opts.AuthToken
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   15 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        opts.MaxIdleConns,
				MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
				MaxConnsPerHost:     opts.MaxConnsPerHost,
				IdleConnTimeout:     opts.IdleConnTimeout,
				TLSHandshakeTimeout: opts.TLSHandshakeTimeout,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		}
	}

	return &Connection{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: opts.Timeout,
		headers: headers,
		client:  client,
		logger:  opts.Logger,
	}
}

// BaseURL returns the configured agent endpoint.
func (c *Connection) BaseURL() string { return c.baseURL }

// Call executes one JSON-RPC 2.0 call and returns the raw result payload.
// A fresh correlation id is generated per call and the response id must
// round-trip unchanged; any mismatch fails with a protocol-kind error so a
// pooled response can never be mis-attributed. All failures are mapped into
// the closed taxonomy of this package.
func (c *Connection) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	start := time.Now()
	result, err := c.call(ctx, method, params)
	c.logger.Debug("RPC call finished", "method", method, "duration", time.Since(start), "success", err == nil)
	return result, err
}

func (c *Connection) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if method == "" {
		return nil, protocolError("method must not be empty")
	}

	var rawParams json.RawMessage
	switch p := params.(type) {
	case nil:
	case json.RawMessage:
		rawParams = p
	case []byte:
		rawParams = p
	default:
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, protocolError("params not serializable: %v", err)
		}
		rawParams = encoded
	}

	id := uuid.NewString()
	body, err := json.Marshal(Request{JSONRPC: Version, ID: id, Method: method, Params: rawParams})
	if err != nil {
		return nil, protocolError("envelope not serializable: %v", err)
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, protocolError("building request: %v", err)
	}
	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mapStatusError(resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, protocolError("empty response from agent")
	}

	var envelope Response
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, protocolError("invalid JSON response: %v", err)
	}
	if envelope.JSONRPC != Version {
		return nil, protocolError("unexpected protocol version %q", envelope.JSONRPC)
	}
	if got := envelope.IDString(); got != id {
		return nil, protocolError("correlation id mismatch: sent %q, received %q", id, got)
	}
	if envelope.Error != nil {
		return nil, mapAgentError(envelope.Error)
	}
	if envelope.Result == nil {
		return nil, protocolError("envelope carries neither result nor error")
	}

	return envelope.Result, nil
}

// applyHeaders sets caller headers first, then the protocol-required ones so
// a static header can never clobber Content-Type or Accept.
func (c *Connection) applyHeaders(req *http.Request) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
}

// HealthCheck probes the agent endpoint with a plain GET and a short
// deadline. It reports reachability as a boolean instead of propagating
// transport errors: 200, 404 and 405 all count as alive since many agents
// only accept POST on their RPC path.
func (c *Connection) HealthCheck(ctx context.Context) bool {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}
	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound, http.StatusMethodNotAllowed:
		return true
	default:
		return false
	}
}

// Close releases idle pooled sockets. The connection must not be used after
// Close; calling it multiple times is harmless.
func (c *Connection) Close() {
	c.client.CloseIdleConnections()
}
