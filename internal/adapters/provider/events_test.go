package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/agrilink/sessiongate/internal/domain/auth"
)

func TestNewPayloadMapper_RejectsBadExpression(t *testing.T) {
	mapping := DefaultPayloadMapping()
	mapping.UserID = "session.[unbalanced"

	_, err := NewPayloadMapper(mapping)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile payload expression")
}

func TestPayloadMapper_Translate_SessionEstablished(t *testing.T) {
	mapper, err := NewPayloadMapper(DefaultPayloadMapping())
	require.NoError(t, err)

	expires := time.Now().Add(time.Hour).Unix()
	ev, err := mapper.Translate(domainauth.EventSessionEstablished, map[string]any{
		"session": map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_at":    float64(expires),
			"user": map[string]any{
				"id":    "user-1",
				"email": "marie@example.com",
			},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, domainauth.EventSessionEstablished, ev.Kind)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "user-1", ev.Session.UserID)
	assert.Equal(t, "marie@example.com", ev.Session.Email)
	assert.Equal(t, "access-1", ev.Session.AccessToken)
	assert.Equal(t, expires, ev.Session.ExpiresAt.Unix())
}

func TestPayloadMapper_Translate_TerminatedIgnoresPayload(t *testing.T) {
	mapper, err := NewPayloadMapper(DefaultPayloadMapping())
	require.NoError(t, err)

	ev, err := mapper.Translate(domainauth.EventSessionTerminated, map[string]any{
		"session": map[string]any{"user": map[string]any{"id": "stale"}},
	})

	require.NoError(t, err)
	assert.Equal(t, domainauth.EventSessionTerminated, ev.Kind)
	assert.Nil(t, ev.Session)
}

func TestPayloadMapper_Translate_UnknownKind(t *testing.T) {
	mapper, err := NewPayloadMapper(DefaultPayloadMapping())
	require.NoError(t, err)

	_, err = mapper.Translate(domainauth.EventKind("password-recovery"), nil)

	assert.Error(t, err)
}

func TestPayloadMapper_Translate_MissingUserID(t *testing.T) {
	mapper, err := NewPayloadMapper(DefaultPayloadMapping())
	require.NoError(t, err)

	_, err = mapper.Translate(domainauth.EventSessionEstablished, map[string]any{
		"session": map[string]any{"access_token": "access-1"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no user id")
}

func TestPayloadMapper_Translate_CustomMapping(t *testing.T) {
	mapper, err := NewPayloadMapper(PayloadMapping{
		UserID:      "data.uid",
		Email:       "data.mail",
		AccessToken: "data.jwt",
	})
	require.NoError(t, err)

	ev, err := mapper.Translate(domainauth.EventTokenRefreshed, map[string]any{
		"data": map[string]any{"uid": "user-1", "mail": "marie@example.com", "jwt": "access-9"},
	})

	require.NoError(t, err)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "access-9", ev.Session.AccessToken)
	assert.True(t, ev.Session.ExpiresAt.IsZero())
}
