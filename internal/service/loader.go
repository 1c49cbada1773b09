package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrilink/sessiongate/config"
	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
	apperrors "github.com/agrilink/sessiongate/internal/errors"
	"github.com/agrilink/sessiongate/internal/observability/telemetry"
	"github.com/agrilink/sessiongate/internal/ports"
)

// ProfileLoaderOptions groups dependencies for ProfileLoader.
type ProfileLoaderOptions struct {
	Profiles    ports.ProfileRepository
	Provisioner ports.Provisioner
	Provider    ports.AuthProvider
	Dedup       ports.DedupStore
	Telemetry   telemetry.Recorder
	Logger      *slog.Logger
	Config      config.SessionConfig
}

// ProfileLoader is the retrying profile fetch orchestration. It bounds each
// lookup by a fixed timeout, retries transient failures under a bounded
// policy, provisions on a clean miss, and collapses overlapping calls for
// the same (identity, attempt) pair through the dedup store.
type ProfileLoader struct {
	profiles    ports.ProfileRepository
	provisioner ports.Provisioner
	provider    ports.AuthProvider
	dedup       ports.DedupStore
	telemetry   telemetry.Recorder
	logger      *slog.Logger
	cfg         config.SessionConfig
}

// NewProfileLoader constructs a ProfileLoader.
func NewProfileLoader(opts ProfileLoaderOptions) *ProfileLoader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Telemetry
	if rec == nil {
		rec = telemetry.Nop()
	}
	dedup := opts.Dedup
	if dedup == nil {
		dedup = NewMemoryDedupStore()
	}
	cfg := opts.Config
	cfg.Sanitize()
	return &ProfileLoader{
		profiles:    opts.Profiles,
		provisioner: opts.Provisioner,
		provider:    opts.Provider,
		dedup:       dedup,
		telemetry:   rec,
		logger:      logger,
		cfg:         cfg,
	}
}

// Load resolves the profile for an auth identity, provisioning it on first
// sight. Returns (nil, nil) when an overlapping load already holds the
// de-duplication marker for the current attempt; the caller treats that as
// "another chain is doing the work".
func (l *ProfileLoader) Load(ctx context.Context, authID string) (*domainprofile.Profile, error) {
	if authID == "" {
		return nil, apperrors.Validation("auth ID is required")
	}

	started := time.Now()
	var lastErr error
	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		claimed, err := l.dedup.Acquire(ctx, dedupKey(authID, attempt), l.cfg.DedupWindow)
		if err != nil {
			// A broken dedup store must not block profile loading.
			l.logger.Warn("dedup store unavailable, proceeding without suppression", "error", err)
		} else if !claimed {
			l.logger.Debug("load suppressed by in-flight duplicate", "auth_id", authID, "attempt", attempt)
			return nil, nil
		}

		if attempt > 0 {
			l.telemetry.Record(ctx, telemetry.Event{
				Level:    slog.LevelWarn,
				Category: telemetry.CategoryProfile,
				Message:  "profile load retry",
				Data:     map[string]any{"auth_id": authID, "attempt": attempt},
			})
			if serr := sleepCtx(ctx, l.cfg.RetryDelay); serr != nil {
				return nil, serr
			}
		}

		prof, err := l.attempt(ctx, authID)
		if err == nil {
			l.telemetry.Record(ctx, telemetry.Event{
				Level:    slog.LevelInfo,
				Category: telemetry.CategoryProfile,
				Message:  "profile loaded",
				Data: map[string]any{
					"auth_id":     authID,
					"attempts":    attempt + 1,
					"duration_ms": time.Since(started).Milliseconds(),
				},
			})
			return prof, nil
		}

		lastErr = err
		if !apperrors.IsTransient(err) {
			break
		}
	}

	// Retry exhaustion or a terminal failure. Drop markers so an explicit
	// user-initiated retry is not suppressed for the rest of the window.
	l.ReleaseMarkers(ctx, authID)

	l.telemetry.Record(ctx, telemetry.Event{
		Level:    slog.LevelError,
		Category: telemetry.CategoryError,
		Message:  "profile load failed",
		Data:     map[string]any{"auth_id": authID, "error": lastErr.Error()},
	})
	if apperrors.IsProvision(lastErr) || apperrors.IsValidation(lastErr) || apperrors.IsConflict(lastErr) {
		return nil, lastErr
	}
	return nil, apperrors.Wrap(lastErr, apperrors.ErrCodeTransient, "profile load failed")
}

// attempt performs one bounded lookup round trip, falling back to
// provisioning on a clean miss.
func (l *ProfileLoader) attempt(ctx context.Context, authID string) (*domainprofile.Profile, error) {
	res := RaceDeadline(ctx, l.cfg.ProfileLookupTimeout, func(ctx context.Context) (*domainprofile.Profile, error) {
		return l.profiles.FindByAuthID(ctx, authID)
	})
	if res.TimedOut {
		// A timeout is a transient failure, not a definitive miss.
		return nil, apperrors.Timeout(fmt.Sprintf("profile lookup for %s timed out", authID))
	}
	if res.Err != nil {
		if apperrors.IsNotFound(res.Err) {
			return l.provisionOnMiss(ctx, authID)
		}
		return nil, res.Err
	}

	prof := res.Value
	if prof.Incomplete() {
		// Advisory only: callers render a completion prompt, the load succeeds.
		l.telemetry.Record(ctx, telemetry.Event{
			Level:    slog.LevelInfo,
			Category: telemetry.CategoryProfile,
			Message:  "profile incomplete",
			Data:     map[string]any{"auth_id": authID},
		})
	}
	if err := l.profiles.TouchLastLogin(ctx, authID); err != nil {
		l.logger.Warn("record last login failed", "auth_id", authID, "error", err)
	}
	return prof, nil
}

// provisionOnMiss creates the profile with best-effort defaults. The email
// comes from the live auth user record when the provider can supply it.
func (l *ProfileLoader) provisionOnMiss(ctx context.Context, authID string) (*domainprofile.Profile, error) {
	var email string
	if l.provider != nil {
		if user, err := l.provider.GetUser(ctx); err == nil && user != nil && user.ID == authID {
			email = user.Email
		}
	}
	if email == "" {
		return nil, apperrors.Provision("cannot provision profile without an email")
	}

	result, err := l.provisioner.Provision(ctx, authID, email, domainprofile.Defaults{
		Role: domainprofile.RoleAgriculteur,
	})
	if err != nil {
		if apperrors.IsProvision(err) || apperrors.IsValidation(err) || apperrors.IsConflict(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProvision, "provision profile failed")
	}
	l.telemetry.Record(ctx, telemetry.Event{
		Level:    slog.LevelInfo,
		Category: telemetry.CategoryProfile,
		Message:  "profile created on first sight",
		Data:     map[string]any{"auth_id": authID, "existed": result.Existed},
	})
	return result.Profile, nil
}

// ReleaseMarkers drops every de-duplication marker held for an identity.
// The markers exist to collapse concurrent duplicates of the same load, not
// to rate-limit deliberate re-loads: an explicit refresh releases them first
// so a marker left over from a just-finished load cannot swallow it.
func (l *ProfileLoader) ReleaseMarkers(ctx context.Context, authID string) {
	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		_ = l.dedup.Release(ctx, dedupKey(authID, attempt))
	}
}

func dedupKey(authID string, attempt int) string {
	return fmt.Sprintf("profile-load:%s:%d", authID, attempt)
}
