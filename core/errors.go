package core

import "fmt"

var (
	// ErrSessionNotFound is returned when the given session identifier does
	// not denote any session in the store, live or expired-but-unswept.
	ErrSessionNotFound = fmt.Errorf("session not found")

	// ErrSessionExpired is returned when the session still physically exists
	// in the store but its last activity is older than the expiry window.
	// Callers that auto-recreate sessions should do so only on
	// ErrSessionNotFound, never on ErrSessionExpired.
	ErrSessionExpired = fmt.Errorf("session expired")

	// ErrDuplicateSession is returned by Create when the requested
	// identifier already denotes a live session.
	ErrDuplicateSession = fmt.Errorf("session already exists")
)
