package authtest

// Package authtest contains a hand-written test double for the auth provider
// port. It is lightweight and suitable for unit tests without codegen, and
// keeps enough internal state (handlers, call counters) to exercise the
// push/pull event machinery.

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/agrilink/sessiongate/internal/domain/auth"
	"github.com/agrilink/sessiongate/internal/ports"
)

// Compile-time conformance to the port.
var _ ports.AuthProvider = (*MockAuthProvider)(nil)

// MockAuthProvider simulates the identity provider for tests. Behavior can be
// overridden per-method with the *Func fields; otherwise the double serves the
// configured Session deterministically.
type MockAuthProvider struct {
	GetSessionFunc func(ctx context.Context) (*domainauth.Session, error)
	GetUserFunc    func(ctx context.Context) (*domainauth.User, error)
	SignOutFunc    func(ctx context.Context) error

	mu       sync.Mutex
	session  *domainauth.Session
	handlers map[int]func(domainauth.Event)
	nextID   int

	getSessionCalls int
	getUserCalls    int
	resetCalls      int
}

// NewMockAuthProvider creates a provider double with no signed-in principal.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{handlers: make(map[int]func(domainauth.Event))}
}

// NewSignedInProvider creates a provider double already holding a session for
// the given identity.
func NewSignedInProvider(userID, email string) *MockAuthProvider {
	p := NewMockAuthProvider()
	p.SetSession(&domainauth.Session{
		UserID:       userID,
		Email:        email,
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	return p
}

// SetSession replaces the session served by GetSession.
func (m *MockAuthProvider) SetSession(s *domainauth.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
}

func (m *MockAuthProvider) GetSession(ctx context.Context) (*domainauth.Session, error) {
	m.mu.Lock()
	m.getSessionCalls++
	fn := m.GetSessionFunc
	s := m.session
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return s, nil
}

func (m *MockAuthProvider) GetUser(ctx context.Context) (*domainauth.User, error) {
	m.mu.Lock()
	m.getUserCalls++
	fn := m.GetUserFunc
	s := m.session
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	if s == nil {
		return nil, nil
	}
	u := s.User()
	return &u, nil
}

func (m *MockAuthProvider) OnAuthStateChange(handler func(domainauth.Event)) ports.Unsubscribe {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = handler
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.handlers, id)
			m.mu.Unlock()
		})
	}
}

func (m *MockAuthProvider) SignOut(ctx context.Context) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	m.SetSession(nil)
	m.Emit(domainauth.Event{Kind: domainauth.EventSessionTerminated})
	return nil
}

func (m *MockAuthProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCalls++
}

// Emit delivers an event to every registered handler, synchronously, in the
// caller's goroutine. Session-established events also update the served
// session so a subsequent pull agrees with the push.
func (m *MockAuthProvider) Emit(ev domainauth.Event) {
	m.mu.Lock()
	switch ev.Kind {
	case domainauth.EventSessionEstablished, domainauth.EventTokenRefreshed:
		m.session = ev.Session
	case domainauth.EventSessionTerminated:
		m.session = nil
	}
	hs := make([]func(domainauth.Event), 0, len(m.handlers))
	for _, h := range m.handlers {
		hs = append(hs, h)
	}
	m.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

// GetSessionCalls reports how many times GetSession was invoked.
func (m *MockAuthProvider) GetSessionCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSessionCalls
}

// GetUserCalls reports how many times GetUser was invoked.
func (m *MockAuthProvider) GetUserCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUserCalls
}

// ResetCalls reports how many times Reset was invoked.
func (m *MockAuthProvider) ResetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCalls
}

// HandlerCount reports how many push handlers are currently registered.
func (m *MockAuthProvider) HandlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}
