// Package mocks provides mock implementations for testing the session
// bootstrap ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for the repository-shaped interfaces. The mocks are generated using
// go:generate directives and provide a fluent API for setting up test
// expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	repo := mocks.NewMockProfileRepository(ctrl)
//	repo.EXPECT().FindByAuthID(gomock.Any(), "auth-1").Return(profile, nil)
//
// Hand-written doubles with richer in-memory behavior live in the
// subpackages (authtest, profiletest, telemetrytest); prefer those when the
// test exercises multi-call state machines rather than single expectations.
package mocks

// Generate mock for ProfileRepository interface from internal/ports.
// This creates MockProfileRepository with methods for all ProfileRepository
// interface methods: FindByAuthID, Insert, Update, TouchLastLogin
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=profile_repository_mock.go github.com/agrilink/sessiongate/internal/ports ProfileRepository

// Generate mock for Provisioner interface from internal/ports.
// This creates MockProvisioner with methods for all Provisioner interface
// methods: Provision
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=provisioner_mock.go github.com/agrilink/sessiongate/internal/ports Provisioner
