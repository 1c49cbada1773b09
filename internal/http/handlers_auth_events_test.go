package httpx

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrilink/sessiongate/config"
	"github.com/agrilink/sessiongate/internal/adapters/provider"
	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
	"github.com/agrilink/sessiongate/internal/mocks/profiletest"
	"github.com/agrilink/sessiongate/internal/service"
)

func profileFor(authID string) domainprofile.Profile {
	return domainprofile.Profile{
		ID:     "p-" + authID,
		AuthID: authID,
		Email:  authID + "@example.com",
		Nom:    "Dupont",
		Prenom: "Marie",
	}
}

type eventFixture struct {
	repo    *profiletest.MemoryProfileRepo
	gateway *provider.Gateway
	ctl     *service.SessionController
	router  http.Handler
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()

	repo := profiletest.NewMemoryProfileRepo()
	gateway := provider.NewGateway(provider.Config{URL: "http://localhost:9", AnonKey: "anon"})
	mapper, err := provider.NewPayloadMapper(provider.DefaultPayloadMapping())
	require.NoError(t, err)

	cfg := config.SessionConfig{
		SessionPullTimeout:   200 * time.Millisecond,
		ProfileLookupTimeout: 200 * time.Millisecond,
		RetryDelay:           2 * time.Millisecond,
		DedupWindow:          time.Millisecond,
	}
	provisioner := service.NewProvisionerService(service.ProvisionerServiceOptions{Profiles: repo})
	loader := service.NewProfileLoader(service.ProfileLoaderOptions{
		Profiles:    repo,
		Provisioner: provisioner,
		Provider:    gateway,
		Config:      cfg,
	})
	ctl := service.NewSessionController(service.SessionControllerOptions{
		Provider: gateway,
		Loader:   loader,
		Config:   cfg,
	})
	t.Cleanup(ctl.Close)

	router := NewRouter(RouterServices{
		Provisioner: provisioner,
		Profiles:    repo,
		Gateway:     gateway,
		Mapper:      mapper,
		Controller:  ctl,
	})
	return &eventFixture{repo: repo, gateway: gateway, ctl: ctl, router: router}
}

func (f *eventFixture) startUnauthenticated(t *testing.T) {
	t.Helper()
	f.ctl.Start(t.Context())
	require.Eventually(t, func() bool {
		return f.ctl.Snapshot().Phase == service.PhaseUnauthenticated
	}, 2*time.Second, 5*time.Millisecond)
}

func TestIngestEndpoint_SessionEstablished(t *testing.T) {
	f := newEventFixture(t)
	f.repo.Seed(profileFor("user-1"))
	f.startUnauthenticated(t)

	rec, body := doJSON(t, f.router, http.MethodPost, "/api/auth/events", `{
		"kind": "session-established",
		"payload": {
			"session": {
				"access_token": "access-1",
				"refresh_token": "refresh-1",
				"user": {"id": "user-1", "email": "marie@example.com"}
			}
		}
	}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["ok"])

	require.Eventually(t, func() bool {
		s := f.ctl.Snapshot()
		return s.Phase == service.PhaseAuthenticated && s.ProfilePhase == service.ProfileReady
	}, 2*time.Second, 5*time.Millisecond)
}

func TestIngestEndpoint_UnknownKind(t *testing.T) {
	f := newEventFixture(t)
	f.startUnauthenticated(t)

	rec, _ := doJSON(t, f.router, http.MethodPost, "/api/auth/events",
		`{"kind":"password-recovery","payload":{}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestEndpoint_SessionTerminated(t *testing.T) {
	f := newEventFixture(t)
	f.repo.Seed(profileFor("user-1"))
	f.startUnauthenticated(t)

	_, _ = doJSON(t, f.router, http.MethodPost, "/api/auth/events", `{
		"kind": "session-established",
		"payload": {"session": {"user": {"id": "user-1", "email": "marie@example.com"}}}
	}`)
	require.Eventually(t, func() bool {
		return f.ctl.Snapshot().Phase == service.PhaseAuthenticated
	}, 2*time.Second, 5*time.Millisecond)

	rec, _ := doJSON(t, f.router, http.MethodPost, "/api/auth/events",
		`{"kind":"session-terminated","payload":{}}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool {
		s := f.ctl.Snapshot()
		return s.Phase == service.PhaseUnauthenticated && s.Profile == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSessionStateEndpoint(t *testing.T) {
	f := newEventFixture(t)
	f.startUnauthenticated(t)

	rec, body := doJSON(t, f.router, http.MethodGet, "/api/session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unauthenticated", body["phase"])
	assert.Equal(t, false, body["loading"])
	assert.Nil(t, body["user"])
	assert.Nil(t, body["profile"])
	assert.NotContains(t, body, "error")
}

func TestSessionRefreshEndpoint_NoUser(t *testing.T) {
	f := newEventFixture(t)
	f.startUnauthenticated(t)

	rec, body := doJSON(t, f.router, http.MethodPost, "/api/session/refresh", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["ok"])
}

func TestSessionRefreshEndpoint_Authenticated(t *testing.T) {
	f := newEventFixture(t)
	f.repo.Seed(profileFor("user-1"))
	f.startUnauthenticated(t)

	_, _ = doJSON(t, f.router, http.MethodPost, "/api/auth/events", `{
		"kind": "session-established",
		"payload": {"session": {"user": {"id": "user-1", "email": "marie@example.com"}}}
	}`)
	require.Eventually(t, func() bool {
		return f.ctl.Snapshot().ProfilePhase == service.ProfileReady
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(5 * time.Millisecond) // let the load marker expire
	rec, body := doJSON(t, f.router, http.MethodPost, "/api/session/refresh", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
}
