// Package rpc implements the JSON-RPC 2.0 over HTTP(S) transport used to
// reach A2A agents. The package focuses on three concerns:
//
//  1. Envelope framing (Request / Response / ErrorObject wire types)
//  2. Reliable call execution over a bounded, reusable connection pool
//     (Connection) with per-call deadlines and correlation-id verification
//  3. A closed, total error taxonomy (Error with Kind) mapping every
//     transport, HTTP and protocol level failure to exactly one category
//
// Design principles:
//   - One call equals one network attempt – retry policy belongs to callers
//   - Correlation ids must round-trip unchanged; a mismatch is a protocol
//     violation, never silently accepted
//   - No failure bypasses the taxonomy; classifier predicates (IsTimeout,
//     IsAgent, ...) let callers branch without string matching
//
// The package intentionally keeps session bookkeeping and payload semantics
// in their respective packages to avoid cyclic deps.
package rpc
