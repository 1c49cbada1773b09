package service

import (
	"context"
	"log/slog"

	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
	apperrors "github.com/agrilink/sessiongate/internal/errors"
	"github.com/agrilink/sessiongate/internal/observability/telemetry"
	"github.com/agrilink/sessiongate/internal/ports"
)

// ProvisionerServiceOptions groups dependencies for ProvisionerService.
type ProvisionerServiceOptions struct {
	Profiles  ports.ProfileRepository
	Telemetry telemetry.Recorder
}

// ProvisionerService establishes a profile for a previously unseen auth
// identity. It is idempotent: an existing row is returned as-is, and a lost
// creation race is recovered by re-fetching the winner's row rather than
// propagating the constraint error.
type ProvisionerService struct {
	profiles  ports.ProfileRepository
	telemetry telemetry.Recorder
}

var _ ports.Provisioner = (*ProvisionerService)(nil)

// NewProvisionerService constructs a new ProvisionerService.
func NewProvisionerService(opts ProvisionerServiceOptions) *ProvisionerService {
	rec := opts.Telemetry
	if rec == nil {
		rec = telemetry.Nop()
	}
	return &ProvisionerService{profiles: opts.Profiles, telemetry: rec}
}

// Provision returns the existing profile for authID, or creates one with
// best-effort defaults.
func (s *ProvisionerService) Provision(
	ctx context.Context,
	authID, email string,
	defaults domainprofile.Defaults,
) (ports.ProvisionResult, error) {
	if authID == "" {
		return ports.ProvisionResult{}, apperrors.ValidationField("authId", "auth ID is required")
	}
	if email == "" {
		return ports.ProvisionResult{}, apperrors.ValidationField("email", "email is required")
	}

	existing, err := s.profiles.FindByAuthID(ctx, authID)
	if err == nil {
		return ports.ProvisionResult{Profile: existing, Existed: true}, nil
	}
	if !apperrors.IsNotFound(err) {
		return ports.ProvisionResult{}, apperrors.Wrap(err, apperrors.ErrCodeProvision, "lookup before provision failed")
	}

	created, err := s.profiles.Insert(ctx, &domainprofile.NewProfileRequest{
		AuthID: authID,
		Email:  email,
		Nom:    defaults.Nom,
		Prenom: defaults.Prenom,
		Role:   defaults.Role,
	})
	if err == nil {
		s.telemetry.Record(ctx, telemetry.Event{
			Level:    slog.LevelInfo,
			Category: telemetry.CategoryProfile,
			Message:  "profile provisioned",
			Data:     map[string]any{"auth_id": authID, "role": created.Role},
		})
		return ports.ProvisionResult{Profile: created, Existed: false}, nil
	}

	// Lost the creation race: the uniqueness constraint guarantees exactly
	// one row, so the winner's row is the result.
	if apperrors.IsConflict(err) && apperrors.GetField(err) != "email" {
		winner, ferr := s.profiles.FindByAuthID(ctx, authID)
		if ferr != nil {
			return ports.ProvisionResult{}, apperrors.Wrap(ferr, apperrors.ErrCodeProvision, "re-fetch after creation race failed")
		}
		return ports.ProvisionResult{Profile: winner, Existed: true}, nil
	}

	if apperrors.IsConflict(err) {
		// Duplicate email on a different auth identity is a real conflict.
		return ports.ProvisionResult{}, err
	}

	s.telemetry.Record(ctx, telemetry.Event{
		Level:    slog.LevelError,
		Category: telemetry.CategoryError,
		Message:  "profile provisioning failed",
		Data:     map[string]any{"auth_id": authID, "error": err.Error()},
	})
	return ports.ProvisionResult{}, apperrors.Wrap(err, apperrors.ErrCodeProvision, "create profile failed")
}
