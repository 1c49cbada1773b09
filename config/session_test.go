package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionConfig_SanitizeFillsZeroValues(t *testing.T) {
	var cfg SessionConfig
	cfg.Sanitize()

	assert.Equal(t, 5*time.Second, cfg.SessionPullTimeout)
	assert.Equal(t, 9*time.Second, cfg.ProfileLookupTimeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 5*time.Second, cfg.DedupWindow)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 5, cfg.PollMaxAttempts)
}

func TestSessionConfig_SanitizeClampsSafetyTimeout(t *testing.T) {
	cfg := SessionConfig{
		SessionPullTimeout:   5 * time.Second,
		ProfileLookupTimeout: 9 * time.Second,
		SafetyTimeout:        time.Second,
	}
	cfg.Sanitize()

	// The valve must outlast a full pull plus lookup cycle.
	assert.Equal(t, 14*time.Second, cfg.SafetyTimeout)
}

func TestSessionConfig_SanitizeKeepsValidValues(t *testing.T) {
	cfg := SessionConfig{
		SessionPullTimeout:   2 * time.Second,
		ProfileLookupTimeout: 3 * time.Second,
		MaxRetries:           4,
		RetryDelay:           500 * time.Millisecond,
		DedupWindow:          time.Second,
		SafetyTimeout:        10 * time.Second,
		PollInterval:         time.Second,
		PollMaxAttempts:      2,
	}
	want := cfg
	cfg.Sanitize()

	assert.Equal(t, want, cfg)
}

func TestSessionConfig_SanitizeClampsNegativeRetries(t *testing.T) {
	cfg := SessionConfig{MaxRetries: -3}
	cfg.Sanitize()

	assert.Zero(t, cfg.MaxRetries)
}
