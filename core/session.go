package core

import (
	"sync"
	"time"
)

// ConversationTurn is a single request/response exchange within a session.
// Turns are immutable once appended; their slice order is the dialogue order.
type ConversationTurn struct {
	TurnID    string         `json:"turn_id"`
	Input     string         `json:"input"`
	Output    string         `json:"output,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// clone returns a copy whose Metadata map is independent of the receiver's,
// so neither side can mutate the other through a shared map.
func (t ConversationTurn) clone() ConversationTurn {
	if t.Metadata != nil {
		md := make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			md[k] = v
		}
		t.Metadata = md
	}
	return t
}

// Session is a conversational container tracking ordered turn history plus
// arbitrary metadata. It is safe for concurrent access; the store holds the
// canonical record while callers only ever see clones.
//
// Contract:
//   - AppendTurn updates LastActivity (monotonically non-decreasing)
//   - History returns a defensive copy to avoid external mutation
//   - Clone performs deep copies of maps/slices for safe divergence.
type Session struct {
	ID           string             `json:"id"`
	Created      time.Time          `json:"created"`
	LastActivity time.Time          `json:"last_activity"`
	Metadata     map[string]string  `json:"metadata"`
	Turns        []ConversationTurn `json:"turns"`
	mu           sync.RWMutex
}

// NewSession creates a new session with the given ID and optional metadata.
func NewSession(id string, metadata map[string]string, now time.Time) *Session {
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	return &Session{ID: id, Created: now, LastActivity: now, Metadata: md, Turns: []ConversationTurn{}}
}

// Expired reports whether the session is logically expired at the given
// instant. A non-positive window disables expiry.
func (s *Session) Expired(window time.Duration, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiredLocked(window, now)
}

func (s *Session) expiredLocked(window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}
	return now.Sub(s.LastActivity) > window
}

// AppendTurn appends a turn and advances LastActivity, failing with
// ErrSessionExpired when the session is already past the expiry window.
// Check and append happen under one lock so a concurrent sweep cannot
// observe a half-applied update.
func (s *Session) AppendTurn(turn ConversationTurn, window time.Duration, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked(window, now) {
		return ErrSessionExpired
	}
	s.Turns = append(s.Turns, turn.clone())
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
	return nil
}

// Touch advances LastActivity without recording a turn.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

// History returns a snapshot of the turn sequence in dialogue order. When
// maxTurns > 0 only the most recent maxTurns turns are returned, still in
// original order. Later mutation of the session never changes a returned
// slice.
func (s *Session) History(maxTurns int) []ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.Turns
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	out := make([]ConversationTurn, len(turns))
	for i, turn := range turns {
		out[i] = turn.clone()
	}
	return out
}

// Clone returns a deep copy of the session (maps & slices, not the mutex)
// safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:           s.ID,
		Created:      s.Created,
		LastActivity: s.LastActivity,
		Metadata:     make(map[string]string, len(s.Metadata)),
		Turns:        make([]ConversationTurn, len(s.Turns)),
	}
	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}
	for i, turn := range s.Turns {
		clone.Turns[i] = turn.clone()
	}
	return clone
}

// SessionStore is the registry contract for conversation sessions. All
// methods must be safe for concurrent use; operations on different sessions
// must not serialize against each other.
type SessionStore interface {
	// Create registers a new session. An empty id requests a generated,
	// collision-free identifier. Fails with ErrDuplicateSession when the id
	// already denotes a live session.
	Create(id string, metadata map[string]string) (*Session, error)
	// Get returns a clone of the session or ErrSessionNotFound /
	// ErrSessionExpired.
	Get(id string) (*Session, error)
	// AppendTurn appends a turn to an existing live session, updating its
	// last-activity timestamp.
	AppendTurn(sessionID string, turn ConversationTurn) error
	// History returns a snapshot of the most recent maxTurns turns
	// (all turns when maxTurns <= 0) in dialogue order.
	History(sessionID string, maxTurns int) ([]ConversationTurn, error)
	// Close removes the session. Closing an absent session is not an error.
	Close(sessionID string)
	// ListActive returns the identifiers of all unexpired sessions.
	ListActive() []string
	// SweepExpired physically removes expired sessions, returning their ids.
	SweepExpired() []string
	// ClearAll removes every session, returning how many were removed.
	ClearAll() int
}
