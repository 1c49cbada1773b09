package config

import "strings"

// ObservabilityConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityConfig struct {
	MetricsEnabled bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress  string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	StatsdPrefix   string `env:"OBSERVABILITY_METRICS_STATSD_PREFIX"  envDefault:"sessiongate"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.MetricsEnabled = false
	}
}
