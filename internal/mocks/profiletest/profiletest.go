package profiletest

// Package profiletest contains in-memory doubles for the profile ports.
// MemoryProfileRepo enforces the same uniqueness rules as the Postgres repo
// so provisioning races and conflict recovery can be exercised without a
// database.

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
	apperrors "github.com/agrilink/sessiongate/internal/errors"
	"github.com/agrilink/sessiongate/internal/ports"
)

var (
	_ ports.ProfileRepository = (*MemoryProfileRepo)(nil)
	_ ports.Provisioner       = (*StubProvisioner)(nil)
)

// MemoryProfileRepo is a map-backed ProfileRepository with unique auth_id
// and email constraints. Per-method hooks allow injecting failures.
type MemoryProfileRepo struct {
	FindErr   error
	InsertErr error
	UpdateErr error
	TouchErr  error

	// FindDelay, when set, is slept before every lookup. Used to simulate a
	// slow datastore in timeout tests.
	FindDelay time.Duration

	mu       sync.Mutex
	byAuthID map[string]*domainprofile.Profile
	now      func() time.Time

	findCalls   int
	insertCalls int
	touchCalls  int
}

// NewMemoryProfileRepo creates an empty repo using the wall clock.
func NewMemoryProfileRepo() *MemoryProfileRepo {
	return &MemoryProfileRepo{
		byAuthID: make(map[string]*domainprofile.Profile),
		now:      time.Now,
	}
}

// Seed stores a profile directly, bypassing constraints and hooks.
func (r *MemoryProfileRepo) Seed(p domainprofile.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := p
	r.byAuthID[p.AuthID] = &cp
}

// SetFindErr swaps the lookup failure hook under the repo lock, so a test
// can heal the datastore while a retry or poll loop is still running.
func (r *MemoryProfileRepo) SetFindErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FindErr = err
}

// Get returns a copy of the stored profile, or nil.
func (r *MemoryProfileRepo) Get(authID string) *domainprofile.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byAuthID[authID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r *MemoryProfileRepo) FindByAuthID(ctx context.Context, authID string) (*domainprofile.Profile, error) {
	if r.FindDelay > 0 {
		select {
		case <-time.After(r.FindDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	p, ok := r.byAuthID[authID]
	if !ok {
		return nil, apperrors.NotFoundf("profile not found for auth ID %s", authID)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProfileRepo) Insert(ctx context.Context, req *domainprofile.NewProfileRequest) (*domainprofile.Profile, error) {
	req.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCalls++
	if r.InsertErr != nil {
		return nil, r.InsertErr
	}
	if _, ok := r.byAuthID[req.AuthID]; ok {
		err := apperrors.Conflict("profile already exists")
		err.Field = "auth_id"
		return nil, err
	}
	for _, existing := range r.byAuthID {
		if existing.Email == req.Email {
			err := apperrors.Conflict("email already in use")
			err.Field = "email"
			return nil, err
		}
	}

	p := &domainprofile.Profile{
		ID:           uuid.NewString(),
		AuthID:       req.AuthID,
		Email:        req.Email,
		Nom:          req.Nom,
		Prenom:       req.Prenom,
		Role:         req.Role,
		Status:       req.Status,
		RegisteredAt: r.now(),
	}
	r.byAuthID[req.AuthID] = p
	cp := *p
	return &cp, nil
}

func (r *MemoryProfileRepo) Update(ctx context.Context, authID string, req domainprofile.UpdateRequest) (*domainprofile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return nil, r.UpdateErr
	}
	p, ok := r.byAuthID[authID]
	if !ok {
		return nil, apperrors.NotFoundf("profile not found for auth ID %s", authID)
	}
	if req.Nom != nil {
		p.Nom = *req.Nom
	}
	if req.Prenom != nil {
		p.Prenom = *req.Prenom
	}
	if req.Telephone != nil {
		p.Telephone = *req.Telephone
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProfileRepo) TouchLastLogin(ctx context.Context, authID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchCalls++
	if r.TouchErr != nil {
		return r.TouchErr
	}
	p, ok := r.byAuthID[authID]
	if !ok {
		return apperrors.NotFoundf("profile not found for auth ID %s", authID)
	}
	t := r.now()
	p.LastLoginAt = &t
	return nil
}

// FindCalls reports how many lookups were attempted.
func (r *MemoryProfileRepo) FindCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findCalls
}

// InsertCalls reports how many inserts were attempted.
func (r *MemoryProfileRepo) InsertCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertCalls
}

// TouchCalls reports how many last-login touches were attempted.
func (r *MemoryProfileRepo) TouchCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touchCalls
}

// StubProvisioner returns a canned result or error and counts calls.
type StubProvisioner struct {
	Result ports.ProvisionResult
	Err    error

	mu    sync.Mutex
	calls []provisionCall
}

type provisionCall struct {
	AuthID   string
	Email    string
	Defaults domainprofile.Defaults
}

func (s *StubProvisioner) Provision(ctx context.Context, authID, email string, defaults domainprofile.Defaults) (ports.ProvisionResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, provisionCall{AuthID: authID, Email: email, Defaults: defaults})
	s.mu.Unlock()
	if s.Err != nil {
		return ports.ProvisionResult{}, s.Err
	}
	return s.Result, nil
}

// Calls reports how many provision attempts were made.
func (s *StubProvisioner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// LastCall returns the arguments of the most recent provision attempt.
func (s *StubProvisioner) LastCall() (authID, email string, defaults domainprofile.Defaults, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return "", "", domainprofile.Defaults{}, false
	}
	c := s.calls[len(s.calls)-1]
	return c.AuthID, c.Email, c.Defaults, true
}
