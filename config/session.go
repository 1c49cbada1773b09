package config

import "time"

// SessionConfig contains timing and retry policy for the session bootstrap
// state machine. Defaults mirror the slowest observed provider round trips
// plus margin.
type SessionConfig struct {
	// SessionPullTimeout bounds the initial session pull.
	SessionPullTimeout time.Duration `env:"PULL_TIMEOUT" envDefault:"5s"`

	// ProfileLookupTimeout bounds a single profile lookup round trip.
	ProfileLookupTimeout time.Duration `env:"PROFILE_LOOKUP_TIMEOUT" envDefault:"9s"`

	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"2"`

	// RetryDelay is the fixed delay between retries.
	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"1200ms"`

	// DedupWindow is how long an in-flight load suppresses duplicates for the
	// same (identity, attempt) pair.
	DedupWindow time.Duration `env:"DEDUP_WINDOW" envDefault:"5s"`

	// SafetyTimeout independently forces the loading state to clear when
	// initialization has not completed by the deadline.
	SafetyTimeout time.Duration `env:"SAFETY_TIMEOUT" envDefault:"12s"`

	// PollInterval is the interval of the degraded-mode polling fallback.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`

	// PollMaxAttempts bounds the polling fallback.
	PollMaxAttempts int `env:"POLL_MAX_ATTEMPTS" envDefault:"5"`
}

// Sanitize clamps policy values to sane bounds.
func (c *SessionConfig) Sanitize() {
	if c.SessionPullTimeout <= 0 {
		c.SessionPullTimeout = 5 * time.Second
	}
	if c.ProfileLookupTimeout <= 0 {
		c.ProfileLookupTimeout = 9 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = 5 * time.Second
	}
	// The safety valve must outlast a full pull+lookup cycle or it fires on
	// every slow but healthy initialization.
	if c.SafetyTimeout < c.SessionPullTimeout+c.ProfileLookupTimeout {
		c.SafetyTimeout = c.SessionPullTimeout + c.ProfileLookupTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.PollMaxAttempts <= 0 {
		c.PollMaxAttempts = 5
	}
}
