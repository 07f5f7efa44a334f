// Package session houses concrete implementations of the core.SessionStore.
// The interface itself (and the Session struct) live in the core package to
// centralize domain contracts. Keeping only implementations here prevents
// higher level packages (client façade, transport) from depending on
// concrete storage.
//
// Expiry is two-phase: a session is logically expired the instant its last
// activity falls outside the configured window, and physically removed at
// the next sweep. Sweeping runs opportunistically before registry writes and
// on demand via SweepExpired, so no background scheduler is required.
//
// Add additional backends (Redis, Postgres, Firestore, etc.) in sub-packages
// without changing any calling code – only the wiring layer needs to decide
// which implementation to instantiate.
package session
