package config

import "strings"

// ProviderConfig contains connection parameters for the identity+data
// provider. URL and AnonKey are required for client operation; ServiceKey is
// the privileged credential used only by server-side provisioning and update
// paths and must never reach the UI boundary.
type ProviderConfig struct {
	URL     string `env:"URL"`
	AnonKey string `env:"ANON_KEY"`
	// ServiceKey bypasses per-row access policy. Server-only.
	ServiceKey string `env:"SERVICE_KEY"`
	// JWKSVerify enables access-token verification against the provider JWKS.
	JWKSVerify bool `env:"JWKS_VERIFY" envDefault:"false"`
}

// Configured reports whether the client-side connection parameters are present.
func (p ProviderConfig) Configured() bool {
	return strings.TrimSpace(p.URL) != "" && strings.TrimSpace(p.AnonKey) != ""
}
