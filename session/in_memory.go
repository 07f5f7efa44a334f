package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// DefaultExpiryWindow is the inactivity window after which a session is
// considered logically gone.
const DefaultExpiryWindow = 60 * time.Minute

// Options configures an InMemoryStore.
type Options struct {
	// ExpiryWindow is the inactivity duration after which sessions expire.
	// Zero or negative disables expiry.
	ExpiryWindow time.Duration
	// Clock supplies the current time; override in tests to simulate aging.
	Clock func() time.Time
	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger
}

// InMemoryStore is a volatile core.SessionStore implementation keeping
// sessions in a process local map. It is safe for concurrent access: the
// registry map is guarded by an RWMutex while each session record carries
// its own lock, so operations on different sessions never serialize against
// each other. Returned sessions and histories are clones to prevent external
// mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	window   time.Duration
	now      func() time.Time
	logger   logging.Logger
}

// NewInMemoryStore constructs an empty in-memory session store with optional
// overrides.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{
		ExpiryWindow: DefaultExpiryWindow,
		Clock:        time.Now,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &InMemoryStore{
		sessions: make(map[string]*core.Session),
		window:   opts.ExpiryWindow,
		now:      opts.Clock,
		logger:   opts.Logger,
	}
}

// Create registers a new session. An empty id requests a generated
// identifier, retried until it collides with nothing live or unswept.
// Expired leftovers are swept first so a stale record never blocks reuse of
// its identifier.
func (s *InMemoryStore) Create(id string, metadata map[string]string) (*core.Session, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)

	if id == "" {
		for {
			id = uuid.NewString()
			if _, exists := s.sessions[id]; !exists {
				break
			}
		}
	} else if _, exists := s.sessions[id]; exists {
		return nil, fmt.Errorf("session %q: %w", id, core.ErrDuplicateSession)
	}

	sess := core.NewSession(id, metadata, now)
	s.sessions[id] = sess
	s.logger.Debug("session created", "session_id", id)
	return sess.Clone(), nil
}

// Get returns a clone of the session, failing distinctly for "never existed"
// (ErrSessionNotFound) vs "existed but expired" (ErrSessionExpired).
func (s *InMemoryStore) Get(id string) (*core.Session, error) {
	now := s.now()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, core.ErrSessionNotFound)
	}
	if sess.Expired(s.window, now) {
		return nil, fmt.Errorf("session %q: %w", id, core.ErrSessionExpired)
	}
	return sess.Clone(), nil
}

// AppendTurn appends a turn to a live session, advancing its last-activity
// timestamp. The expiry check and the append happen atomically on the
// session record.
func (s *InMemoryStore) AppendTurn(sessionID string, turn core.ConversationTurn) error {
	now := s.now()

	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %q: %w", sessionID, core.ErrSessionNotFound)
	}
	if err := sess.AppendTurn(turn, s.window, now); err != nil {
		return fmt.Errorf("session %q: %w", sessionID, err)
	}
	return nil
}

// History returns a snapshot of the most recent maxTurns turns (all turns
// when maxTurns <= 0) in dialogue order.
func (s *InMemoryStore) History(sessionID string, maxTurns int) ([]core.ConversationTurn, error) {
	now := s.now()

	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, core.ErrSessionNotFound)
	}
	if sess.Expired(s.window, now) {
		return nil, fmt.Errorf("session %q: %w", sessionID, core.ErrSessionExpired)
	}
	return sess.History(maxTurns), nil
}

// Close removes the session. Idempotent: closing an absent or already-closed
// session is not an error.
func (s *InMemoryStore) Close(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		s.logger.Debug("session closed", "session_id", sessionID)
	}
}

// ListActive returns the identifiers of all unexpired sessions.
func (s *InMemoryStore) ListActive() []string {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if !sess.Expired(s.window, now) {
			ids = append(ids, id)
		}
	}
	return ids
}

// SweepExpired physically removes every logically expired session and
// returns their identifiers.
func (s *InMemoryStore) SweepExpired() []string {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

// sweepLocked removes expired sessions; caller must hold the write lock.
func (s *InMemoryStore) sweepLocked(now time.Time) []string {
	var swept []string
	for id, sess := range s.sessions {
		if sess.Expired(s.window, now) {
			delete(s.sessions, id)
			swept = append(swept, id)
		}
	}
	if len(swept) > 0 {
		s.logger.Debug("expired sessions swept", "count", len(swept))
	}
	return swept
}

// ClearAll removes every session, returning how many were removed.
func (s *InMemoryStore) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.sessions)
	s.sessions = make(map[string]*core.Session)
	return count
}

// Count returns the number of unexpired sessions.
func (s *InMemoryStore) Count() int {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, sess := range s.sessions {
		if !sess.Expired(s.window, now) {
			count++
		}
	}
	return count
}
