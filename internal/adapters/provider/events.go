package provider

import (
	"fmt"
	"sync"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/agrilink/sessiongate/internal/domain/auth"
	"github.com/agrilink/sessiongate/internal/ports"
)

// subscriptions is the push listener registry. Listeners are invoked
// sequentially outside the lock so a slow handler cannot deadlock emit.
type subscriptions struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(domainauth.Event)
}

func newSubscriptions() *subscriptions {
	return &subscriptions{handlers: make(map[int]func(domainauth.Event))}
}

func (s *subscriptions) add(handler func(domainauth.Event)) ports.Unsubscribe {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.handlers[id] = handler
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscriptions) emit(ev domainauth.Event) {
	s.mu.Lock()
	snapshot := make([]func(domainauth.Event), 0, len(s.handlers))
	for _, h := range s.handlers {
		snapshot = append(snapshot, h)
	}
	s.mu.Unlock()

	for _, h := range snapshot {
		h(ev)
	}
}

// PayloadMapping names the JMESPath expressions used to extract session
// fields from a raw push-event payload. Payload shapes differ per provider
// and per event kind, so the mapping is configuration, not code.
type PayloadMapping struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    string // epoch seconds
}

// DefaultPayloadMapping matches the provider's native webhook shape.
func DefaultPayloadMapping() PayloadMapping {
	return PayloadMapping{
		UserID:       "session.user.id",
		Email:        "session.user.email",
		AccessToken:  "session.access_token",
		RefreshToken: "session.refresh_token",
		ExpiresAt:    "session.expires_at",
	}
}

// PayloadMapper translates raw push-event payloads into domain events.
type PayloadMapper struct {
	mapping PayloadMapping
}

// NewPayloadMapper validates every expression up front so a bad mapping fails
// at construction rather than on the first event.
func NewPayloadMapper(mapping PayloadMapping) (*PayloadMapper, error) {
	for _, expr := range []string{
		mapping.UserID, mapping.Email, mapping.AccessToken, mapping.RefreshToken, mapping.ExpiresAt,
	} {
		if expr == "" {
			continue
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile payload expression %q: %w", expr, err)
		}
	}
	return &PayloadMapper{mapping: mapping}, nil
}

// Translate builds a domain event from a raw payload. For session-terminated
// the session is nil regardless of payload contents.
func (m *PayloadMapper) Translate(kind domainauth.EventKind, payload map[string]any) (domainauth.Event, error) {
	if !kind.Valid() {
		return domainauth.Event{}, fmt.Errorf("unknown event kind %q", kind)
	}
	if kind == domainauth.EventSessionTerminated {
		return domainauth.Event{Kind: kind}, nil
	}

	sess := &domainauth.Session{
		UserID:       m.extractString(m.mapping.UserID, payload),
		Email:        m.extractString(m.mapping.Email, payload),
		AccessToken:  m.extractString(m.mapping.AccessToken, payload),
		RefreshToken: m.extractString(m.mapping.RefreshToken, payload),
	}
	if epoch := m.extractNumber(m.mapping.ExpiresAt, payload); epoch > 0 {
		sess.ExpiresAt = time.Unix(int64(epoch), 0)
	}
	if sess.UserID == "" {
		return domainauth.Event{}, fmt.Errorf("payload for %q carries no user id", kind)
	}
	return domainauth.Event{Kind: kind, Session: sess}, nil
}

func (m *PayloadMapper) extractString(expr string, payload map[string]any) string {
	if expr == "" {
		return ""
	}
	v, err := jmespath.Search(expr, payload)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (m *PayloadMapper) extractNumber(expr string, payload map[string]any) float64 {
	if expr == "" {
		return 0
	}
	v, err := jmespath.Search(expr, payload)
	if err != nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
