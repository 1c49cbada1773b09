package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenVerifier_RequiresURL(t *testing.T) {
	_, err := NewTokenVerifier(VerifierConfig{})
	assert.Error(t, err)

	_, err = NewTokenVerifier(VerifierConfig{ProviderURL: "   "})
	assert.Error(t, err)
}

func TestTokenVerifier_Verify_EmptyToken(t *testing.T) {
	v, err := NewTokenVerifier(VerifierConfig{ProviderURL: "http://localhost:9"})
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "")

	assert.Error(t, err)
}

func TestTokenVerifier_Verify_RejectsUnknownSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/.well-known/jwks.json", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []any{}})
	}))
	defer srv.Close()

	v, err := NewTokenVerifier(VerifierConfig{ProviderURL: srv.URL})
	require.NoError(t, err)

	// Structurally valid JWT (alg RS256) with no matching key in the set.
	token := "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJzdWIiOiJ1c2VyLTEiLCJpc3MiOiJodHRwOi8vbG9jYWxob3N0IiwiZXhwIjo0MTAyNDQ0ODAwfQ." +
		"c2lnbmF0dXJl"

	_, err = v.Verify(context.Background(), token)

	assert.Error(t, err)
}

func TestTokenVerifier_Verify_RejectsMalformedToken(t *testing.T) {
	v, err := NewTokenVerifier(VerifierConfig{ProviderURL: "http://localhost:9"})
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "not-a-jwt")

	assert.Error(t, err)
}
