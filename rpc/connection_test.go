package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoAgent answers every POST with a valid envelope echoing the request id,
// unless mutate rewrites the response first.
func echoAgent(t *testing.T, mutate func(req *Request, resp *Response)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req Request
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, Version, req.JSONRPC)

		resp := Response{JSONRPC: Version, ID: req.ID, Result: json.RawMessage(`{"ok":true}`)}
		if mutate != nil {
			mutate(&req, &resp)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestConnection_CallSuccess(t *testing.T) {
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := Response{JSONRPC: Version, ID: req.ID, Result: json.RawMessage(`{"answer":42}`)}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	conn := NewConnection(srv.URL, func(o *Options) {
		o.AuthToken = "secret"
		o.Headers = map[string]string{
			"X-Custom":     "yes",
			"Content-Type": "text/plain", // must not win
		}
	})
	defer conn.Close()

	result, err := conn.Call(context.Background(), "message/send", map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":42}`, string(result))

	assert.Equal(t, "Bearer secret", gotHeader.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeader.Get("Accept"))
	assert.Equal(t, "yes", gotHeader.Get("X-Custom"))
	assert.Equal(t, userAgent, gotHeader.Get("User-Agent"))
}

func TestConnection_EmptyMethod(t *testing.T) {
	conn := NewConnection("http://127.0.0.1:0")
	defer conn.Close()

	_, err := conn.Call(context.Background(), "", nil)
	assert.True(t, IsProtocol(err), "expected protocol error, got %v", err)
}

func TestConnection_CorrelationMismatch(t *testing.T) {
	srv := echoAgent(t, func(req *Request, resp *Response) {
		resp.ID = "not-" + req.ID
	})
	defer srv.Close()

	conn := NewConnection(srv.URL)
	defer conn.Close()

	_, err := conn.Call(context.Background(), "message/send", nil)
	require.Error(t, err)
	assert.True(t, IsProtocol(err), "mismatched correlation id must be a protocol error, got %v", err)
	assert.Contains(t, err.Error(), "correlation id mismatch")
}

func TestConnection_AgentError(t *testing.T) {
	srv := echoAgent(t, func(req *Request, resp *Response) {
		resp.Result = nil
		resp.Error = &ErrorObject{Code: -32000, Message: "agent rejected input"}
	})
	defer srv.Close()

	conn := NewConnection(srv.URL)
	defer conn.Close()

	_, err := conn.Call(context.Background(), "message/send", nil)
	require.Error(t, err)
	assert.True(t, IsAgent(err))
	assert.Equal(t, -32000, AgentErrorCode(err))
	assert.Contains(t, err.Error(), "agent rejected input")
}

func TestConnection_AuthStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		conn := NewConnection(srv.URL)
		_, err := conn.Call(context.Background(), "message/send", nil)
		assert.True(t, IsAuth(err), "status %d should map to auth kind, got %v", status, err)

		var te *Error
		require.True(t, errors.As(err, &te))
		assert.Equal(t, status, te.HTTPStatus)

		conn.Close()
		srv.Close()
	}
}

func TestConnection_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	conn := NewConnection(srv.URL)
	defer conn.Close()

	_, err := conn.Call(context.Background(), "message/send", nil)
	assert.True(t, IsProtocol(err), "expected protocol error, got %v", err)
}

func TestConnection_MalformedEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body func(req Request) string
	}{
		{"invalid json", func(Request) string { return "{not json" }},
		{"empty body", func(Request) string { return "   " }},
		{"wrong version", func(req Request) string {
			return `{"jsonrpc":"1.0","id":"` + req.ID + `","result":{}}`
		}},
		{"neither result nor error", func(req Request) string {
			return `{"jsonrpc":"2.0","id":"` + req.ID + `"}`
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req Request
				_ = json.NewDecoder(r.Body).Decode(&req)
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.body(req)) //nolint:errcheck
			}))
			defer srv.Close()

			conn := NewConnection(srv.URL)
			defer conn.Close()

			_, err := conn.Call(context.Background(), "message/send", nil)
			assert.True(t, IsProtocol(err), "expected protocol error, got %v", err)
		})
	}
}

func TestConnection_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	conn := NewConnection(srv.URL, func(o *Options) {
		o.Timeout = 50 * time.Millisecond
	})
	defer conn.Close()

	_, err := conn.Call(context.Background(), "message/send", nil)
	assert.True(t, IsTimeout(err), "expected timeout error, got %v", err)
}

func TestConnection_TimeoutNeverDisabled(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		conn := NewConnection("http://127.0.0.1:0", func(o *Options) {
			o.Timeout = d
		})
		assert.Equal(t, defaultCallTimeout, conn.timeout, "timeout %v must clamp to the default", d)
		conn.Close()
	}
}

func TestConnection_CallerDeadlineWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	conn := NewConnection(srv.URL) // default 30s timeout
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := conn.Call(ctx, "message/send", nil)
	assert.True(t, IsTimeout(err), "expected timeout error, got %v", err)
}

func TestConnection_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	conn := NewConnection(srv.URL)
	defer conn.Close()

	_, err := conn.Call(context.Background(), "message/send", nil)
	assert.True(t, IsConnection(err), "expected connection error, got %v", err)
}

func TestConnection_HealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"not found", http.StatusNotFound, true},
		{"method not allowed", http.StatusMethodNotAllowed, true},
		{"server error", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			conn := NewConnection(srv.URL)
			defer conn.Close()

			assert.Equal(t, tt.want, conn.HealthCheck(context.Background()))
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		conn := NewConnection(srv.URL)
		defer conn.Close()

		assert.False(t, conn.HealthCheck(context.Background()))
	})
}
