package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - provider.go: Identity provider connection configuration
//   - session.go: Session bootstrap timing and retry policy
//   - database.go: Database and Redis configuration
//   - http.go: HTTP server configuration
//   - observability.go: Metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior (debug logging, relaxed guards).
	IsDev bool `env:"DEV" envDefault:"false"`

	// Provider configuration
	Provider ProviderConfig `envPrefix:"PROVIDER_"`

	// Session bootstrap configuration
	Session SessionConfig `envPrefix:"SESSION_"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Session.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
}
