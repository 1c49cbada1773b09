package config

import "time"

// HTTPConfig contains HTTP server configuration for the provisioning and
// profile update endpoints.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// ReadTimeout bounds reading the full request including body.
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`

	// WriteTimeout bounds writing the full response.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"20s"`

	// ShutdownGrace is the drain window during graceful shutdown.
	ShutdownGrace time.Duration `env:"HTTP_SHUTDOWN_GRACE" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = 10 * time.Second
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = 20 * time.Second
	}
	if h.ShutdownGrace <= 0 {
		h.ShutdownGrace = 10 * time.Second
	}
}
