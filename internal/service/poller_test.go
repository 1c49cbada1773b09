package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
	apperrors "github.com/agrilink/sessiongate/internal/errors"
	"github.com/agrilink/sessiongate/internal/mocks/profiletest"
)

func newTestPoller(repo *profiletest.MemoryProfileRepo) *ProfilePoller {
	cfg := testSessionConfig()
	cfg.MaxRetries = 0
	cfg.DedupWindow = time.Millisecond
	loader := NewProfileLoader(ProfileLoaderOptions{
		Profiles:    repo,
		Provisioner: &profiletest.StubProvisioner{},
		Config:      cfg,
	})
	return NewProfilePoller(ProfilePollerOptions{Loader: loader, Config: cfg})
}

func TestProfilePoller_Poll_EmptyAuthID(t *testing.T) {
	poller := newTestPoller(profiletest.NewMemoryProfileRepo())

	_, err := poller.Poll(context.Background(), "")

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestProfilePoller_Poll_ReturnsProfileWhenItAppears(t *testing.T) {
	repo := profiletest.NewMemoryProfileRepo()
	poller := newTestPoller(repo)

	// The profile shows up after the first tick, as if a concurrent
	// provisioning chain finished in the background.
	go func() {
		time.Sleep(8 * time.Millisecond)
		repo.Seed(domainprofile.Profile{ID: "p-1", AuthID: "user-1", Email: "marie@example.com"})
	}()

	prof, err := poller.Poll(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "p-1", prof.ID)
}

func TestProfilePoller_Poll_ExhaustsAttempts(t *testing.T) {
	repo := profiletest.NewMemoryProfileRepo()
	poller := newTestPoller(repo)

	_, err := poller.Poll(context.Background(), "user-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
}

func TestProfilePoller_Poll_StopsOnContextCancel(t *testing.T) {
	repo := profiletest.NewMemoryProfileRepo()
	poller := newTestPoller(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poller.Poll(ctx, "user-1")

	assert.ErrorIs(t, err, context.Canceled)
}
