package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/agrilink/sessiongate/config"
	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
	apperrors "github.com/agrilink/sessiongate/internal/errors"
)

// ProfilePollerOptions groups dependencies for ProfilePoller.
type ProfilePollerOptions struct {
	Loader *ProfileLoader
	Logger *slog.Logger
	Config config.SessionConfig
}

// ProfilePoller is the degraded-mode recovery strategy layered on top of the
// loader: it re-invokes Load on a fixed interval until the profile appears,
// attempts are exhausted, or the context is torn down. It is not part of the
// loader's core contract.
type ProfilePoller struct {
	loader *ProfileLoader
	logger *slog.Logger
	cfg    config.SessionConfig
}

// NewProfilePoller constructs a ProfilePoller.
func NewProfilePoller(opts ProfilePollerOptions) *ProfilePoller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	cfg.Sanitize()
	return &ProfilePoller{loader: opts.Loader, logger: logger, cfg: cfg}
}

// Poll runs bounded interval attempts and returns the first profile that
// appears. A dedup-suppressed attempt counts as an attempt: the in-flight
// load it collapsed into will be visible on a later tick.
func (p *ProfilePoller) Poll(ctx context.Context, authID string) (*domainprofile.Profile, error) {
	if authID == "" {
		return nil, apperrors.Validation("auth ID is required")
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.cfg.PollMaxAttempts; attempt++ {
		prof, err := p.loader.Load(ctx, authID)
		if err != nil {
			p.logger.Warn("poll attempt failed", "auth_id", authID, "attempt", attempt, "error", err)
		}
		if prof != nil {
			return prof, nil
		}
		if attempt == p.cfg.PollMaxAttempts {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, apperrors.Timeout("profile did not appear within the polling budget")
}
