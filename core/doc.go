// Package core provides the foundational domain types and contracts used by
// AgentLink. It defines the core abstractions for:
//
//   - Sessions (stateful conversational containers with ordered turn history)
//   - ConversationTurns (immutable request/response records within a session)
//   - TaskResponses (the caller-facing result of a message exchange)
//   - AgentCards (capability metadata advertised by a remote agent)
//   - The pluggable SessionStore contract for session registries
//
// The package intentionally keeps implementation concerns (transport, store
// backends, the client façade) out of scope, exposing small interfaces to
// enable custom backends and extensions. All exported identifiers include
// concise documentation to aid discoverability and external consumption.
package core
