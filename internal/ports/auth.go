package ports

// Package ports defines interfaces (hexagonal ports) for the session
// bootstrap subsystem. Implementations live in internal/adapters and
// internal/data; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/agrilink/sessiongate/internal/domain/auth"
)

// Unsubscribe releases a push subscription. Safe to call more than once.
type Unsubscribe func()

// AuthProvider is the capability surface of the identity provider. The
// provider owns session issuance and refresh; this subsystem only reads.
type AuthProvider interface {
	// GetSession returns the current session, or nil when no principal is
	// signed in. Provider errors are returned as-is; the caller owns timeout
	// and retry policy.
	GetSession(ctx context.Context) (*domainauth.Session, error)

	// GetUser returns the live principal record behind the session.
	GetUser(ctx context.Context) (*domainauth.User, error)

	// OnAuthStateChange registers a push listener. The handler is invoked for
	// at least session-established, session-terminated, token-refreshed, and
	// user-updated events, each carrying the new session (or nil).
	OnAuthStateChange(handler func(domainauth.Event)) Unsubscribe

	// SignOut terminates the current session at the provider.
	SignOut(ctx context.Context) error

	// Reset discards the cached client handle and any client-side persisted
	// credentials, forcing the next call to rebuild the connection. Used to
	// recover after a session fetch failed with a severed-transport signature.
	Reset()
}
