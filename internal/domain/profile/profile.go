package profile

// Package profile contains the application-level profile record and its
// validation rules. The profile extends a provider auth identity with
// business attributes; at most one profile exists per auth identity.

import (
	"errors"
	"strings"
	"time"
)

// Role values accepted for a profile. Stored as plain strings for easy
// persistence.
const (
	RoleAgriculteur = "agriculteur"
	RoleConseiller  = "conseiller"
	RoleAdmin       = "admin"
)

// Status values for a profile.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Profile is the application-owned record keyed by AuthID (unique foreign
// reference to the provider identity).
type Profile struct {
	ID           string     `json:"id" db:"id"`
	AuthID       string     `json:"auth_id" db:"auth_id"`
	Email        string     `json:"email" db:"email"`
	Nom          string     `json:"nom" db:"nom"`
	Prenom       string     `json:"prenom" db:"prenom"`
	Telephone    string     `json:"telephone" db:"telephone"`
	Role         string     `json:"role" db:"role"`
	Status       string     `json:"status" db:"status"`
	RegisteredAt time.Time  `json:"registered_at" db:"registered_at"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}

// Incomplete reports whether both human-identity fields are blank. This is
// an advisory hint for the UI (render a "complete your profile" prompt), not
// an error condition.
func (p Profile) Incomplete() bool {
	return strings.TrimSpace(p.Nom) == "" && strings.TrimSpace(p.Prenom) == ""
}

// Defaults carries best-effort initial values used when provisioning a
// profile for a previously unseen auth identity.
type Defaults struct {
	Nom    string
	Prenom string
	Role   string
}

// NewProfileRequest groups the fields required to create a profile row.
type NewProfileRequest struct {
	AuthID string
	Email  string
	Nom    string
	Prenom string
	Role   string
	Status string
}

// Normalize fills zero-valued fields with their defaults and trims inputs.
func (r *NewProfileRequest) Normalize() {
	r.AuthID = strings.TrimSpace(r.AuthID)
	r.Email = strings.TrimSpace(r.Email)
	r.Nom = strings.TrimSpace(r.Nom)
	r.Prenom = strings.TrimSpace(r.Prenom)
	if r.Role == "" {
		r.Role = RoleAgriculteur
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
}

// Validate checks the request for required fields.
func (r *NewProfileRequest) Validate() error {
	if r.AuthID == "" {
		return errors.New("auth ID is required")
	}
	if r.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

// UpdateRequest carries the user-editable fields of a profile.
type UpdateRequest struct {
	Nom       *string `json:"nom,omitempty"`
	Prenom    *string `json:"prenom,omitempty"`
	Telephone *string `json:"telephone,omitempty"`
}

// Empty reports whether the update carries no field changes.
func (r UpdateRequest) Empty() bool {
	return r.Nom == nil && r.Prenom == nil && r.Telephone == nil
}
