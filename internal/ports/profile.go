package ports

import (
	"context"
	"time"

	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
)

// ProfileRepository persists application profiles keyed by auth identity.
// A uniqueness constraint on the auth ID is assumed at the datastore;
// Insert surfaces a conflict AppError when a creation race is lost.
type ProfileRepository interface {
	// FindByAuthID returns the profile for an auth identity, or a NotFound
	// error when no row exists.
	FindByAuthID(ctx context.Context, authID string) (*domainprofile.Profile, error)

	// Insert creates a new profile row and returns it with generated fields set.
	Insert(ctx context.Context, req *domainprofile.NewProfileRequest) (*domainprofile.Profile, error)

	// Update applies user-editable field changes to the row for authID.
	Update(ctx context.Context, authID string, req domainprofile.UpdateRequest) (*domainprofile.Profile, error)

	// TouchLastLogin records a session re-establishment for the profile.
	TouchLastLogin(ctx context.Context, authID string) error
}

// ProvisionResult is the outcome of an idempotent provision call.
type ProvisionResult struct {
	Profile *domainprofile.Profile
	// Existed is true when the profile already existed and no row was created.
	Existed bool
}

// Provisioner establishes a profile for a previously unseen auth identity.
// Semantically idempotent: concurrent create attempts for the same identity
// converge on one row.
type Provisioner interface {
	Provision(ctx context.Context, authID, email string, defaults domainprofile.Defaults) (ProvisionResult, error)
}

// DedupStore holds short-lived de-duplication markers used to collapse
// overlapping load attempts. Entries are insert-only with timed eviction.
type DedupStore interface {
	// Acquire atomically claims key for ttl. Returns false when the key is
	// already held, in which case the caller must stand down.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the marker early, allowing the next legitimate attempt.
	Release(ctx context.Context, key string) error
}
