package data

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agrilink/sessiongate/internal/data/pgxutil"
	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
	apperrors "github.com/agrilink/sessiongate/internal/errors"
	"github.com/agrilink/sessiongate/internal/ports"
)

// ProfileRepo provides database operations for application profiles. The
// profiles table carries a uniqueness constraint on auth_id; creation races
// surface as Conflict errors which the provisioner recovers from.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.ProfileRepository = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a new ProfileRepo with a custom time provider (useful for tests).
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

const profileColumns = `id, auth_id, email, nom, prenom, telephone, role, status, registered_at, last_login_at`

// FindByAuthID retrieves the profile for an auth identity.
func (r *ProfileRepo) FindByAuthID(ctx context.Context, authID string) (*domainprofile.Profile, error) {
	if strings.TrimSpace(authID) == "" {
		return nil, apperrors.Validation("auth ID is required")
	}

	var out domainprofile.Profile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+profileColumns+`
			FROM profiles
			WHERE auth_id = $1
		`, authID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainprofile.Profile])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Insert creates a new profile row. A lost creation race surfaces as a
// Conflict error; callers re-fetch rather than propagating it.
func (r *ProfileRepo) Insert(ctx context.Context, req *domainprofile.NewProfileRequest) (*domainprofile.Profile, error) {
	if req == nil {
		return nil, apperrors.Validation("new profile request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	registeredAt := r.timeProvider.Now().UTC()
	var out domainprofile.Profile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO profiles (
				id, auth_id, email, nom, prenom, telephone, role, status, registered_at, last_login_at
			) VALUES (
				$1, $2, $3, $4, $5, '', $6, $7, $8, NULL
			) RETURNING `+profileColumns+`
		`,
			uuid.NewString(),
			req.AuthID,
			req.Email,
			req.Nom,
			req.Prenom,
			req.Role,
			req.Status,
			registeredAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainprofile.Profile])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Update applies user-editable field changes and returns the updated row.
func (r *ProfileRepo) Update(ctx context.Context, authID string, req domainprofile.UpdateRequest) (*domainprofile.Profile, error) {
	if strings.TrimSpace(authID) == "" {
		return nil, apperrors.Validation("auth ID is required")
	}
	if req.Empty() {
		return r.FindByAuthID(ctx, authID)
	}

	var out domainprofile.Profile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE profiles SET
				nom       = COALESCE($2, nom),
				prenom    = COALESCE($3, prenom),
				telephone = COALESCE($4, telephone)
			WHERE auth_id = $1
			RETURNING `+profileColumns+`
		`, authID, req.Nom, req.Prenom, req.Telephone)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainprofile.Profile])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// TouchLastLogin records a session re-establishment for the profile.
func (r *ProfileRepo) TouchLastLogin(ctx context.Context, authID string) error {
	if strings.TrimSpace(authID) == "" {
		return apperrors.Validation("auth ID is required")
	}

	now := r.timeProvider.Now().UTC()
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE profiles SET last_login_at = $2 WHERE auth_id = $1
		`, authID, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	}); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}
