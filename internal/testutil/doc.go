// Package testutil contains helper servers and utilities used across tests
// to reduce boilerplate when simulating an A2A agent endpoint (JSON-RPC
// envelopes, failure injection, request recording). These helpers are
// intentionally minimal and built on net/http/httptest. They are not
// intended for production usage.
package testutil
