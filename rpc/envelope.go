package rpc

import (
	"encoding/json"
	"strconv"
)

// Version is the protocol version tag carried by every envelope.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope. Result and Error are
// mutually exclusive. JSON-RPC allows ID to be a string, number or null, so
// it is decoded loosely and normalized via IDString for correlation.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// IDString normalizes the response id for comparison against the string ids
// this client generates.
func (r *Response) IDString() string {
	switch id := r.ID.(type) {
	case string:
		return id
	case float64:
		// json decodes numbers into float64
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return ""
	}
}

// ErrorObject is a JSON-RPC 2.0 error member.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}
