package auth

// Package auth contains domain-level types for provider-issued sessions.
// It is pure and free of framework/adapter concerns.

import "time"

// Session is the opaque provider-managed token bundle for an authenticated
// principal. The controller holds a read-only cached copy and replaces it
// wholesale on every push notification or successful pull.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// User identifies the authenticated principal. Derived from Session, never
// independently stored.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// User projects the principal out of the session.
func (s Session) User() User {
	return User{ID: s.UserID, Email: s.Email}
}

// Expired reports whether the session's token bundle is past its expiry.
func (s Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// EventKind enumerates the provider's push notification kinds.
type EventKind string

const (
	EventSessionEstablished EventKind = "session-established"
	EventSessionTerminated  EventKind = "session-terminated"
	EventTokenRefreshed     EventKind = "token-refreshed"
	EventUserUpdated        EventKind = "user-updated"
)

// Valid reports whether the kind is one the provider is known to emit.
func (k EventKind) Valid() bool {
	switch k {
	case EventSessionEstablished, EventSessionTerminated, EventTokenRefreshed, EventUserUpdated:
		return true
	}
	return false
}

// Event is a push notification delivered on the auth-state channel.
// Session is nil for session-terminated.
type Event struct {
	Kind    EventKind
	Session *Session
}
