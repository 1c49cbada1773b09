package config

// DBConfig contains PostgreSQL database configuration for the profile store.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"sessiongate"`
	Password string `env:"PASSWORD" envDefault:"sessiongate"`
	Name     string `env:"NAME"     envDefault:"sessiongate"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
}

// RedisConfig contains Redis configuration for the de-duplication store.
// Redis is optional; when Addr is empty the process-local store is used.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}
