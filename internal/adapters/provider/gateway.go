package provider

// Package provider implements the capability wrapper around the identity+data
// provider's REST surface. The gateway lazily constructs a single client
// handle, caches it process-wide, and exposes a Reset that discards the
// handle together with any client-side persisted credentials.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/agrilink/sessiongate/internal/errors"

	domainauth "github.com/agrilink/sessiongate/internal/domain/auth"
	"github.com/agrilink/sessiongate/internal/ports"
)

// TokenStore holds the client-side persisted token bundle. Reset clears it.
type TokenStore interface {
	Load() *domainauth.Session
	Save(sess *domainauth.Session)
	Clear()
}

// MemoryTokenStore is a process-local TokenStore.
type MemoryTokenStore struct {
	mu   sync.Mutex
	sess *domainauth.Session
}

func (s *MemoryTokenStore) Load() *domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	cp := *s.sess
	return &cp
}

func (s *MemoryTokenStore) Save(sess *domainauth.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess == nil {
		s.sess = nil
		return
	}
	cp := *sess
	s.sess = &cp
}

func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
}

// Config holds configuration for the provider gateway.
type Config struct {
	URL     string
	AnonKey string
	// Tokens is the persisted credential store. Defaults to an in-memory store.
	Tokens TokenStore
	// HTTPClient is optional; defaults to a client with a 30s overall timeout.
	HTTPClient *http.Client
	// Verifier is the optional access-token verifier (see verifier.go).
	Verifier *TokenVerifier
	Logger   *slog.Logger
}

// Gateway implements ports.AuthProvider over the provider's REST API.
type Gateway struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	handle *clientHandle // lazily built, discarded by Reset

	subs *subscriptions
}

var _ ports.AuthProvider = (*Gateway)(nil)

// clientHandle is the cached connection state. Only the gateway may replace
// it; in-flight calls holding an old handle simply fail and rely on the
// caller's retry policy.
type clientHandle struct {
	baseURL string
	anonKey string
	http    *http.Client
}

// NewGateway constructs a Gateway. Connection parameters are validated on
// first use, not here, so a misconfigured process can still surface a
// structured ConfigurationError to its callers.
func NewGateway(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tokens == nil {
		cfg.Tokens = &MemoryTokenStore{}
	}
	return &Gateway{
		cfg:    cfg,
		logger: logger,
		subs:   newSubscriptions(),
	}
}

// client returns the cached handle, building it on first demand.
func (g *Gateway) client() (*clientHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle != nil {
		return g.handle, nil
	}

	url := strings.TrimRight(strings.TrimSpace(g.cfg.URL), "/")
	key := strings.TrimSpace(g.cfg.AnonKey)
	if url == "" || key == "" {
		return nil, apperrors.Configuration("provider URL and anon key are required")
	}

	httpClient := g.cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	g.handle = &clientHandle{baseURL: url, anonKey: key, http: httpClient}
	return g.handle, nil
}

// Reset discards the cached handle and clears persisted credentials. The next
// call rebuilds the connection from scratch. Safe to call while other
// operations are in flight.
func (g *Gateway) Reset() {
	g.mu.Lock()
	g.handle = nil
	g.mu.Unlock()
	g.cfg.Tokens.Clear()
	g.logger.Info("provider client handle reset")
}

// GetSession returns the current session, refreshing an expired token bundle
// when a refresh token is available. Returns (nil, nil) when no principal is
// signed in.
func (g *Gateway) GetSession(ctx context.Context) (*domainauth.Session, error) {
	h, err := g.client()
	if err != nil {
		return nil, err
	}

	sess := g.cfg.Tokens.Load()
	if sess == nil {
		return nil, nil
	}

	if sess.Expired() {
		if sess.RefreshToken == "" {
			g.cfg.Tokens.Clear()
			return nil, nil
		}
		refreshed, rerr := h.refresh(ctx, sess.RefreshToken)
		if rerr != nil {
			return nil, fmt.Errorf("refresh session: %w", rerr)
		}
		sess = refreshed
		g.cfg.Tokens.Save(sess)
	}

	if g.cfg.Verifier != nil {
		claims, verr := g.cfg.Verifier.Verify(ctx, sess.AccessToken)
		if verr != nil {
			return nil, fmt.Errorf("verify access token: %w", verr)
		}
		sess.UserID = claims.Subject
		if claims.Email != "" {
			sess.Email = claims.Email
		}
	}

	return sess, nil
}

// GetUser returns the live principal record behind the current session.
func (g *Gateway) GetUser(ctx context.Context) (*domainauth.User, error) {
	h, err := g.client()
	if err != nil {
		return nil, err
	}
	sess := g.cfg.Tokens.Load()
	if sess == nil {
		return nil, apperrors.NotFound("no active session")
	}

	var body struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := h.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		bearer: sess.AccessToken,
	}, &body); err != nil {
		return nil, err
	}
	return &domainauth.User{ID: body.ID, Email: body.Email}, nil
}

// SignOut terminates the session at the provider and clears local tokens.
// A session-terminated event is fanned out to subscribers either way.
func (g *Gateway) SignOut(ctx context.Context) error {
	h, err := g.client()
	if err != nil {
		return err
	}
	sess := g.cfg.Tokens.Load()
	g.cfg.Tokens.Clear()
	defer g.Emit(domainauth.Event{Kind: domainauth.EventSessionTerminated})

	if sess == nil {
		return nil
	}
	err = h.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		bearer: sess.AccessToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// OnAuthStateChange registers a push listener and returns its unsubscribe handle.
func (g *Gateway) OnAuthStateChange(handler func(domainauth.Event)) ports.Unsubscribe {
	return g.subs.add(handler)
}

// Emit delivers a push event to every registered listener. Invoked by the
// webhook ingestion path and by tests.
func (g *Gateway) Emit(ev domainauth.Event) {
	if ev.Kind == domainauth.EventSessionEstablished && ev.Session != nil {
		g.cfg.Tokens.Save(ev.Session)
	}
	if ev.Kind == domainauth.EventSessionTerminated {
		g.cfg.Tokens.Clear()
	}
	g.subs.emit(ev)
}

// requestSpec groups parameters for a provider REST call.
type requestSpec struct {
	method string
	path   string
	bearer string
	body   any
}

// providerError is the provider's JSON error envelope.
type providerError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"msg"`
}

func (e *providerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("provider: %s (status %d)", e.Code, e.Status)
}

func (h *clientHandle) do(ctx context.Context, spec requestSpec, out any) error {
	var reqBody io.Reader
	if spec.body != nil {
		data, err := json.Marshal(spec.body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, h.baseURL+spec.path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", h.anonKey)
	if spec.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+spec.bearer)
	}
	if spec.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		perr := &providerError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(perr)
		return perr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// refresh exchanges a refresh token for a new token bundle.
func (h *clientHandle) refresh(ctx context.Context, refreshToken string) (*domainauth.Session, error) {
	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		User         struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	err := h.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/v1/token?grant_type=refresh_token",
		body:   map[string]string{"refresh_token": refreshToken},
	}, &body)
	if err != nil {
		return nil, err
	}
	return &domainauth.Session{
		UserID:       body.User.ID,
		Email:        body.User.Email,
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
