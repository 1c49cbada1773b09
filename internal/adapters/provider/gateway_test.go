package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/agrilink/sessiongate/internal/domain/auth"
	apperrors "github.com/agrilink/sessiongate/internal/errors"
)

func validSession() *domainauth.Session {
	return &domainauth.Session{
		UserID:       "user-1",
		Email:        "marie@example.com",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func TestGateway_GetSession_MissingConfig(t *testing.T) {
	g := NewGateway(Config{})

	_, err := g.GetSession(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestGateway_GetSession_NoPrincipal(t *testing.T) {
	g := NewGateway(Config{URL: "http://localhost:9", AnonKey: "anon"})

	sess, err := g.GetSession(context.Background())

	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestGateway_GetSession_ValidTokensPassThrough(t *testing.T) {
	tokens := &MemoryTokenStore{}
	tokens.Save(validSession())
	g := NewGateway(Config{URL: "http://localhost:9", AnonKey: "anon", Tokens: tokens})

	sess, err := g.GetSession(context.Background())

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "user-1", sess.UserID)
}

func TestGateway_GetSession_RefreshesExpiredTokens(t *testing.T) {
	var gotRefreshToken atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		require.Equal(t, "anon", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotRefreshToken.Store(body["refresh_token"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1", "email": "marie@example.com"},
		})
	}))
	defer srv.Close()

	tokens := &MemoryTokenStore{}
	expired := validSession()
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	tokens.Save(expired)

	g := NewGateway(Config{URL: srv.URL, AnonKey: "anon", Tokens: tokens})
	sess, err := g.GetSession(context.Background())

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "access-2", sess.AccessToken)
	assert.Equal(t, "refresh-1", gotRefreshToken.Load())
	// The rotated bundle is persisted for the next call.
	assert.Equal(t, "refresh-2", tokens.Load().RefreshToken)
}

func TestGateway_GetSession_ExpiredWithoutRefreshTokenSignsOut(t *testing.T) {
	tokens := &MemoryTokenStore{}
	expired := validSession()
	expired.RefreshToken = ""
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	tokens.Save(expired)

	g := NewGateway(Config{URL: "http://localhost:9", AnonKey: "anon", Tokens: tokens})
	sess, err := g.GetSession(context.Background())

	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, tokens.Load())
}

func TestGateway_GetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/user", r.URL.Path)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "marie@example.com"})
	}))
	defer srv.Close()

	tokens := &MemoryTokenStore{}
	tokens.Save(validSession())

	g := NewGateway(Config{URL: srv.URL, AnonKey: "anon", Tokens: tokens})
	user, err := g.GetUser(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "marie@example.com", user.Email)
}

func TestGateway_GetUser_NoSession(t *testing.T) {
	g := NewGateway(Config{URL: "http://localhost:9", AnonKey: "anon"})

	_, err := g.GetUser(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGateway_SignOut_ClearsTokensAndEmits(t *testing.T) {
	var logoutCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/logout", r.URL.Path)
		logoutCalls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tokens := &MemoryTokenStore{}
	tokens.Save(validSession())
	g := NewGateway(Config{URL: srv.URL, AnonKey: "anon", Tokens: tokens})

	var got []domainauth.Event
	g.OnAuthStateChange(func(ev domainauth.Event) { got = append(got, ev) })

	require.NoError(t, g.SignOut(context.Background()))

	assert.Equal(t, int32(1), logoutCalls.Load())
	assert.Nil(t, tokens.Load())
	require.Len(t, got, 1)
	assert.Equal(t, domainauth.EventSessionTerminated, got[0].Kind)
}

func TestGateway_Reset_DiscardsHandleAndTokens(t *testing.T) {
	tokens := &MemoryTokenStore{}
	tokens.Save(validSession())
	g := NewGateway(Config{URL: "http://localhost:9", AnonKey: "anon", Tokens: tokens})

	_, err := g.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, g.handle)

	g.Reset()

	assert.Nil(t, g.handle)
	assert.Nil(t, tokens.Load())
}

func TestGateway_Emit_PersistsSessionLifecycle(t *testing.T) {
	tokens := &MemoryTokenStore{}
	g := NewGateway(Config{URL: "http://localhost:9", AnonKey: "anon", Tokens: tokens})

	g.Emit(domainauth.Event{Kind: domainauth.EventSessionEstablished, Session: validSession()})
	require.NotNil(t, tokens.Load())

	g.Emit(domainauth.Event{Kind: domainauth.EventSessionTerminated})
	assert.Nil(t, tokens.Load())
}

func TestGateway_Do_ProviderErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_token", "msg": "JWT expired"})
	}))
	defer srv.Close()

	tokens := &MemoryTokenStore{}
	tokens.Save(validSession())
	g := NewGateway(Config{URL: srv.URL, AnonKey: "anon", Tokens: tokens})

	_, err := g.GetUser(context.Background())

	require.Error(t, err)
	var perr *providerError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Contains(t, perr.Error(), "JWT expired")
}

func TestSubscriptions_UnsubscribeIsIdempotent(t *testing.T) {
	subs := newSubscriptions()

	var calls int
	unsub := subs.add(func(domainauth.Event) { calls++ })

	subs.emit(domainauth.Event{Kind: domainauth.EventUserUpdated})
	unsub()
	unsub()
	subs.emit(domainauth.Event{Kind: domainauth.EventUserUpdated})

	assert.Equal(t, 1, calls)
}
