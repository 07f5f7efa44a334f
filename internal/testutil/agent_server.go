package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/agentlink/rpc"
)

// AgentConfig controls how the fake agent responds. Zero value means a
// well-behaved agent echoing text messages back as artifacts.
type AgentConfig struct {
	// ReplyPrefix is prepended to the echoed message text (default "echo: ").
	ReplyPrefix string
	// ForceStatus, when non-zero, short-circuits every request with that
	// HTTP status and a plain text body.
	ForceStatus int
	// ForceRawBody, when set, is written verbatim as the response body.
	ForceRawBody []byte
	// Err, when set, is returned as the JSON-RPC error object.
	Err *rpc.ErrorObject
	// RewriteID mangles the correlation id before echoing it back,
	// simulating a misbehaving agent.
	RewriteID func(id string) any
	// Delay is applied before answering, for deadline tests.
	Delay time.Duration
}

// ReceivedRequest records one request seen by the fake agent.
type ReceivedRequest struct {
	Method string
	ID     string
	Params json.RawMessage
	Header http.Header
}

// AgentServer is an httptest-backed A2A agent speaking just enough JSON-RPC
// 2.0 for transport and façade tests.
type AgentServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []ReceivedRequest
	cfg      AgentConfig
}

// NewAgentServer starts a fake agent with optional behavior overrides.
// Callers own the server and must Close it.
func NewAgentServer(optFns ...func(cfg *AgentConfig)) *AgentServer {
	cfg := AgentConfig{ReplyPrefix: "echo: "}
	for _, fn := range optFns {
		fn(&cfg)
	}

	s := &AgentServer{cfg: cfg}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Requests returns a snapshot of all recorded requests.
func (s *AgentServer) Requests() []ReceivedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReceivedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent recorded request, or nil.
func (s *AgentServer) LastRequest() *ReceivedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	req := s.requests[len(s.requests)-1]
	return &req
}

func (s *AgentServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Delay > 0 {
		time.Sleep(s.cfg.Delay)
	}

	// health probes arrive as plain GETs
	if r.Method == http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, _ := io.ReadAll(r.Body)

	var req rpc.Request
	_ = json.Unmarshal(body, &req)

	s.mu.Lock()
	s.requests = append(s.requests, ReceivedRequest{Method: req.Method, ID: req.ID, Params: req.Params, Header: r.Header.Clone()})
	s.mu.Unlock()

	if s.cfg.ForceStatus != 0 {
		w.WriteHeader(s.cfg.ForceStatus)
		fmt.Fprint(w, http.StatusText(s.cfg.ForceStatus))
		return
	}
	if s.cfg.ForceRawBody != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.cfg.ForceRawBody) //nolint:errcheck
		return
	}

	var respID any = req.ID
	if s.cfg.RewriteID != nil {
		respID = s.cfg.RewriteID(req.ID)
	}

	resp := rpc.Response{JSONRPC: rpc.Version, ID: respID}
	if s.cfg.Err != nil {
		resp.Error = s.cfg.Err
	} else {
		resp.Result = s.resultFor(req.Method, req.Params)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *AgentServer) resultFor(method string, params json.RawMessage) json.RawMessage {
	switch method {
	case "message/send":
		text := gjson.GetBytes(params, "message.parts.0.text").String()
		result, _ := json.Marshal(map[string]any{
			"artifacts": []map[string]any{
				{"parts": []map[string]any{{"kind": "text", "text": s.cfg.ReplyPrefix + text}}},
			},
		})
		return result
	case "agent/card":
		result, _ := json.Marshal(map[string]any{
			"agentId":     "test-agent",
			"name":        "Test Agent",
			"description": "fake agent for tests",
			"version":     "0.0.1",
			"capabilities": []map[string]any{
				{"name": "echo", "description": "echoes input", "inputTypes": []string{"text"}, "outputTypes": []string{"text"}},
			},
			"endpointUrl":        s.URL,
			"supportedProtocols": []string{"jsonrpc-2.0"},
		})
		return result
	default:
		return json.RawMessage(`{"ok":true}`)
	}
}
